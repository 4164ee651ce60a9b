/*
 * @module service/scheduler/snapshot_scheduler
 * @description 快照归档调度器，周期性持久化训练进度快照并清理过期历史记录
 * @architecture 定时任务调度 - 业务服务层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 调度器启动 -> 周期快照(仅监控中) -> 保留期清理 -> 调度器停止
 * @rules 监控空闲时跳过快照归档；清理任务每日执行一次
 * @dependencies github.com/robfig/cron/v3, fontpack-service/service/progress, fontpack-service/service/cache
 * @refs ../progress/store.go
 */

package scheduler

import (
	"context"
	"log/slog"
	"os"
	"time"

	"fontpack-service/service/cache"
	"fontpack-service/service/progress"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cast"
)

const defaultRetentionDays = 7

// SnapshotScheduler 快照归档调度器
type SnapshotScheduler struct {
	monitor *progress.Monitor
	store   *progress.SnapshotStore
	cache   *cache.SnapshotCache

	cron      *cron.Cron
	retention time.Duration
	started   bool
}

// NewSnapshotScheduler 创建快照归档调度器
func NewSnapshotScheduler(monitor *progress.Monitor, store *progress.SnapshotStore, snapshotCache *cache.SnapshotCache) *SnapshotScheduler {
	retentionDays := cast.ToInt(os.Getenv("SNAPSHOT_RETENTION_DAYS"))
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}

	return &SnapshotScheduler{
		monitor:   monitor,
		store:     store,
		cache:     snapshotCache,
		cron:      cron.New(cron.WithSeconds()),
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Start 启动调度器，注册快照归档和保留期清理任务
func (s *SnapshotScheduler) Start() error {
	if s.started {
		return nil
	}

	snapshotSpec := os.Getenv("SNAPSHOT_CRON")
	if snapshotSpec == "" {
		snapshotSpec = "*/30 * * * * *" // 每30秒归档一次
	}

	if _, err := s.cron.AddFunc(snapshotSpec, s.archiveSnapshot); err != nil {
		return err
	}

	// 每日凌晨清理过期快照
	if _, err := s.cron.AddFunc("0 0 2 * * *", s.cleanupExpired); err != nil {
		return err
	}

	s.cron.Start()
	s.started = true

	slog.Info("快照归档调度器已启动",
		"snapshot_cron", snapshotSpec,
		"retention", s.retention.String())
	return nil
}

// Stop 停止调度器
func (s *SnapshotScheduler) Stop() {
	if !s.started {
		return
	}
	s.cron.Stop()
	s.started = false
	slog.Info("快照归档调度器已停止")
}

// archiveSnapshot 归档当前监控会话的进度快照
func (s *SnapshotScheduler) archiveSnapshot() {
	packageID, ok := s.monitor.CurrentPackageID()
	if !ok {
		return
	}

	snapshot := s.monitor.Snapshot()

	if err := s.store.SaveSnapshot(packageID, snapshot); err != nil {
		slog.Error("归档进度快照失败", "package_id", packageID, "error", err)
		return
	}

	if s.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.cache.SetLatest(ctx, packageID, snapshot); err != nil {
			slog.Error("更新快照缓存失败", "package_id", packageID, "error", err)
		}
	}
}

// cleanupExpired 清理超过保留期的快照记录
func (s *SnapshotScheduler) cleanupExpired() {
	deleted, err := s.store.CleanupSnapshots(s.retention)
	if err != nil {
		slog.Error("清理过期快照失败", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("已清理过期快照", "deleted", deleted)
	}
}
