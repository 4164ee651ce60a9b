/*
 * @module service/cache/snapshot_cache
 * @description 基于Redis的最新进度快照缓存，为仪表盘查询提供低延迟读路径
 * @architecture 工具层 - 提供分布式缓存能力
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 快照写入时更新缓存 -> 查询时优先命中缓存 -> 未命中回源监控器
 * @rules 缓存键按字体包ID隔离，带过期时间；Redis不可用时缓存层整体降级为空操作
 * @dependencies github.com/go-redis/redis/v8, fontpack-service/service/models
 * @refs ../scheduler/snapshot_scheduler.go, ../../api/controllers/progress_controller.go
 */

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"fontpack-service/service/models"

	"github.com/go-redis/redis/v8"
)

const (
	snapshotKeyPrefix = "fontpack:progress:latest:"
	snapshotTTL       = 10 * time.Minute
)

// SnapshotCache 最新进度快照缓存
type SnapshotCache struct {
	client *redis.Client
}

// NewSnapshotCache 创建快照缓存实例，从环境变量读取Redis配置
func NewSnapshotCache() (*SnapshotCache, error) {
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		fmt.Sscanf(dbStr, "%d", &db)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}

	slog.Info("快照缓存初始化成功",
		"redis_host", host,
		"redis_port", port)

	return &SnapshotCache{client: client}, nil
}

// SetLatest 写入指定字体包的最新快照
func (c *SnapshotCache) SetLatest(ctx context.Context, packageID int, snapshot models.ProgressSnapshot) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("序列化快照失败: %w", err)
	}

	key := fmt.Sprintf("%s%d", snapshotKeyPrefix, packageID)
	if err := c.client.Set(ctx, key, data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("写入快照缓存失败: %w", err)
	}
	return nil
}

// GetLatest 读取指定字体包的最新快照，缓存未命中时第二个返回值为false
func (c *SnapshotCache) GetLatest(ctx context.Context, packageID int) (*models.ProgressSnapshot, bool, error) {
	if c == nil {
		return nil, false, nil
	}

	key := fmt.Sprintf("%s%d", snapshotKeyPrefix, packageID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取快照缓存失败: %w", err)
	}

	var snapshot models.ProgressSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("反序列化快照失败: %w", err)
	}
	return &snapshot, true, nil
}

// Invalidate 删除指定字体包的缓存快照
func (c *SnapshotCache) Invalidate(ctx context.Context, packageID int) error {
	if c == nil {
		return nil
	}
	key := fmt.Sprintf("%s%d", snapshotKeyPrefix, packageID)
	return c.client.Del(ctx, key).Err()
}

// Close 关闭Redis连接
func (c *SnapshotCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// getEnvWithDefault 获取环境变量，不存在时返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
