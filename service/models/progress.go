/*
 * @module service/models/progress
 * @description 字体包训练进度监控领域模型，定义进度数据、字符进度、性能指标、异常告警和健康状态
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 训练启动 -> 进度推进 -> 异常检测 -> 健康评估 -> 训练完成
 * @rules 进度百分比始终在[0,100]范围内，异常以时间戳为唯一标识
 * @refs service/progress/
 */

package models

// CharacterStatus 字符训练状态
type CharacterStatus string

const (
	CharacterStatusPending   CharacterStatus = "pending"   // 等待训练
	CharacterStatusTraining  CharacterStatus = "training"  // 训练中
	CharacterStatusCompleted CharacterStatus = "completed" // 已完成
	CharacterStatusFailed    CharacterStatus = "failed"    // 训练失败
)

// AnomalyType 异常类型
type AnomalyType string

const (
	AnomalyTypePerformance AnomalyType = "performance" // 性能异常
	AnomalyTypeQuality     AnomalyType = "quality"     // 质量异常
	AnomalyTypeError       AnomalyType = "error"       // 错误异常
)

// AnomalySeverity 异常严重程度
type AnomalySeverity string

const (
	AnomalySeverityLow    AnomalySeverity = "low"
	AnomalySeverityMedium AnomalySeverity = "medium"
	AnomalySeverityHigh   AnomalySeverity = "high"
)

// HealthStatus 健康状态
type HealthStatus string

const (
	HealthStatusHealthy HealthStatus = "healthy"
	HealthStatusWarning HealthStatus = "warning"
	HealthStatusError   HealthStatus = "error"
)

// TrainingPhase 训练阶段信息
type TrainingPhase struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`   // pending, running, completed
	Progress    float64 `json:"progress"` // 阶段内进度 0-100
}

// ProgressData 总体训练进度
type ProgressData struct {
	Percentage             float64       `json:"percentage"` // 总体进度 0-100
	CurrentPhase           TrainingPhase `json:"current_phase"`
	EstimatedTimeRemaining float64       `json:"estimated_time_remaining"` // 预计剩余时间（秒）
	CharactersCompleted    int           `json:"characters_completed"`
	CharactersTotal        int           `json:"characters_total"`
	CurrentCharacter       string        `json:"current_character"`
}

// CharacterProgress 单字符训练进度
type CharacterProgress struct {
	Status   CharacterStatus `json:"status"`   // pending, training, completed, failed
	Progress float64         `json:"progress"` // 0-100
	Quality  float64         `json:"quality"`  // 质量评分 0-100
	Issues   []string        `json:"issues"`
}

// PerformanceMetrics 训练性能指标
type PerformanceMetrics struct {
	TrainingSpeed       float64 `json:"training_speed"`  // 字符/分钟
	MemoryUsage         float64 `json:"memory_usage"`    // 内存使用率 0-100
	GPUUtilization      float64 `json:"gpu_utilization"` // GPU利用率 0-100
	EstimatedCompletion string  `json:"estimated_completion,omitempty"`
}

// AnomalyAlert 异常告警，以Timestamp作为唯一标识
type AnomalyAlert struct {
	Type      AnomalyType     `json:"type"`     // performance, quality, error
	Severity  AnomalySeverity `json:"severity"` // low, medium, high
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"` // RFC3339Nano，调用方保证唯一
	Resolved  bool            `json:"resolved"`
}

// SystemHealth 系统健康状态，由活跃异常集合派生
type SystemHealth struct {
	Status    HealthStatus `json:"status"` // healthy, warning, error
	Issues    []string     `json:"issues"`
	LastCheck string       `json:"last_check"`
}

// ProgressSnapshot 进度快照，供外部持久化和对比使用的只读副本
type ProgressSnapshot struct {
	Timestamp string             `json:"timestamp"`
	Progress  ProgressData       `json:"progress"`
	Metrics   PerformanceMetrics `json:"metrics"`
	Health    SystemHealth       `json:"health"`
}

// ProgressPatch 总体进度的部分更新，nil字段保持原值
type ProgressPatch struct {
	Percentage             *float64       `json:"percentage,omitempty"`
	CurrentPhase           *TrainingPhase `json:"current_phase,omitempty"`
	EstimatedTimeRemaining *float64       `json:"estimated_time_remaining,omitempty"`
	CharactersCompleted    *int           `json:"characters_completed,omitempty"`
	CharactersTotal        *int           `json:"characters_total,omitempty"`
	CurrentCharacter       *string        `json:"current_character,omitempty"`
}

// CharacterProgressPatch 字符进度的部分更新
type CharacterProgressPatch struct {
	Status   *CharacterStatus `json:"status,omitempty"`
	Progress *float64         `json:"progress,omitempty"`
	Quality  *float64         `json:"quality,omitempty"`
	Issues   []string         `json:"issues,omitempty"`
}

// PerformanceMetricsPatch 性能指标的部分更新
type PerformanceMetricsPatch struct {
	TrainingSpeed       *float64 `json:"training_speed,omitempty"`
	MemoryUsage         *float64 `json:"memory_usage,omitempty"`
	GPUUtilization      *float64 `json:"gpu_utilization,omitempty"`
	EstimatedCompletion *string  `json:"estimated_completion,omitempty"`
}
