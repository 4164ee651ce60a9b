/*
 * @module service/progress/store
 * @description 进度快照与异常记录持久化服务，提供快照归档、异常历史记录和保留期清理
 * @architecture 分层架构 - 数据访问层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 快照写入 -> 历史查询 -> 定期清理过期记录
 * @rules 异常告警时间戳唯一，重复写入返回错误；清理仅删除早于保留期的记录
 * @dependencies fontpack-service/service/models, gorm.io/gorm
 * @refs monitor.go, ../scheduler/snapshot_scheduler.go
 */

package progress

import (
	"fmt"
	"time"

	"fontpack-service/service/models"

	"gorm.io/gorm"
)

// SnapshotStore 进度快照持久化服务
type SnapshotStore struct {
	db *gorm.DB
}

// NewSnapshotStore 创建快照持久化服务实例
func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// SaveSnapshot 归档一条进度快照
func (s *SnapshotStore) SaveSnapshot(packageID int, snapshot models.ProgressSnapshot) error {
	record := &models.SnapshotRecord{
		PackageID:           packageID,
		Percentage:          snapshot.Progress.Percentage,
		PhaseName:           snapshot.Progress.CurrentPhase.Name,
		CharactersCompleted: snapshot.Progress.CharactersCompleted,
		CharactersTotal:     snapshot.Progress.CharactersTotal,
		TrainingSpeed:       snapshot.Metrics.TrainingSpeed,
		MemoryUsage:         snapshot.Metrics.MemoryUsage,
		GPUUtilization:      snapshot.Metrics.GPUUtilization,
		HealthStatus:        string(snapshot.Health.Status),
		Snapshot: models.JSONB{
			"timestamp": snapshot.Timestamp,
			"progress":  snapshot.Progress,
			"metrics":   snapshot.Metrics,
			"health":    snapshot.Health,
		},
	}

	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("保存进度快照失败: %w", err)
	}
	return nil
}

// ListSnapshots 按时间倒序分页查询指定字体包的快照历史
func (s *SnapshotStore) ListSnapshots(packageID, page, pageSize int) ([]models.SnapshotRecord, int64, error) {
	var records []models.SnapshotRecord
	var total int64

	query := s.db.Model(&models.SnapshotRecord{}).Where("package_id = ?", packageID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计快照数量失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("查询快照历史失败: %w", err)
	}

	return records, total, nil
}

// RecordAnomaly 持久化一条异常告警记录
func (s *SnapshotStore) RecordAnomaly(packageID int, anomaly models.AnomalyAlert) error {
	record := &models.AnomalyRecord{
		PackageID:      packageID,
		Type:           string(anomaly.Type),
		Severity:       string(anomaly.Severity),
		Message:        anomaly.Message,
		AlertTimestamp: anomaly.Timestamp,
		Resolved:       anomaly.Resolved,
	}

	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("保存异常记录失败: %w", err)
	}
	return nil
}

// MarkAnomalyResolved 将指定时间戳的异常记录标记为已解决
func (s *SnapshotStore) MarkAnomalyResolved(alertTimestamp string) error {
	now := time.Now()
	result := s.db.Model(&models.AnomalyRecord{}).
		Where("alert_timestamp = ?", alertTimestamp).
		Updates(map[string]interface{}{
			"resolved":    true,
			"resolved_at": &now,
		})
	if result.Error != nil {
		return fmt.Errorf("更新异常记录失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("异常记录不存在: %s", alertTimestamp)
	}
	return nil
}

// ListAnomalies 分页查询指定字体包的异常历史，resolved为nil时不过滤解决状态
func (s *SnapshotStore) ListAnomalies(packageID, page, pageSize int, resolved *bool) ([]models.AnomalyRecord, int64, error) {
	var records []models.AnomalyRecord
	var total int64

	query := s.db.Model(&models.AnomalyRecord{}).Where("package_id = ?", packageID)
	if resolved != nil {
		query = query.Where("resolved = ?", *resolved)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计异常记录失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("查询异常历史失败: %w", err)
	}

	return records, total, nil
}

// CleanupSnapshots 删除早于保留期的快照记录，返回删除数量
func (s *SnapshotStore) CleanupSnapshots(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SnapshotRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("清理过期快照失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}
