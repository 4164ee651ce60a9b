/*
 * @module service/models/records
 * @description 监控数据持久化模型，定义进度快照记录、异常历史记录和SSE事件记录
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 内存状态 -> 定时快照 -> 数据库记录 -> 历史查询
 * @rules 快照记录按包ID和创建时间索引，异常历史以告警时间戳唯一
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/progress/store.go, service/event/
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SnapshotRecord 进度快照持久化记录
type SnapshotRecord struct {
	ID                  string    `gorm:"type:uuid;primary_key" json:"id"`
	PackageID           int       `gorm:"not null;index" json:"package_id"`
	Percentage          float64   `gorm:"not null" json:"percentage"`
	PhaseName           string    `json:"phase_name"`
	CharactersCompleted int       `json:"characters_completed"`
	CharactersTotal     int       `json:"characters_total"`
	TrainingSpeed       float64   `json:"training_speed"`
	MemoryUsage         float64   `json:"memory_usage"`
	GPUUtilization      float64   `json:"gpu_utilization"`
	HealthStatus        string    `json:"health_status"`
	Snapshot            JSONB     `gorm:"type:jsonb" json:"snapshot"` // 完整快照内容
	CreatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// BeforeCreate 创建前钩子
func (s *SnapshotRecord) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (SnapshotRecord) TableName() string {
	return "progress_snapshots"
}

// AnomalyRecord 异常告警历史记录，已解决的告警在此保留可查询历史
type AnomalyRecord struct {
	ID             string     `gorm:"type:uuid;primary_key" json:"id"`
	PackageID      int        `gorm:"not null;index" json:"package_id"`
	Type           string     `gorm:"not null" json:"type"`
	Severity       string     `gorm:"not null" json:"severity"`
	Message        string     `gorm:"not null" json:"message"`
	AlertTimestamp string     `gorm:"not null;uniqueIndex" json:"alert_timestamp"`
	Resolved       bool       `gorm:"not null;default:false" json:"resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// BeforeCreate 创建前钩子
func (a *AnomalyRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (AnomalyRecord) TableName() string {
	return "anomaly_records"
}

// SSEEvent SSE推送事件记录
type SSEEvent struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	EventType string    `gorm:"not null" json:"event_type"` // progress_update, anomaly_alert, health_status等
	UserName  string    `gorm:"not null;index" json:"user_name"`
	Data      JSONB     `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	Sent      bool      `gorm:"not null;default:false" json:"sent"`
}

// BeforeCreate 创建前钩子
func (s *SSEEvent) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (SSEEvent) TableName() string {
	return "sse_events"
}

// SSEConnection SSE连接记录
type SSEConnection struct {
	ID           string    `gorm:"type:uuid;primary_key" json:"id"`
	UserName     string    `gorm:"not null;index" json:"user_name"`
	ConnectionID string    `gorm:"not null;uniqueIndex" json:"connection_id"`
	ClientIP     string    `json:"client_ip"`
	ConnectedAt  time.Time `gorm:"not null" json:"connected_at"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
}

// BeforeCreate 创建前钩子
func (c *SSEConnection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (SSEConnection) TableName() string {
	return "sse_connections"
}
