/*
 * @module service/metrics/exporter
 * @description Prometheus指标导出器，将训练进度、性能指标和健康状态暴露为监控指标
 * @architecture 观察者模式 - 可观测层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 监控器事件 -> 指标更新 -> /metrics端点抓取
 * @rules 指标更新由监听器驱动，活跃异常计数在告警添加和解决时同步刷新
 * @dependencies github.com/prometheus/client_golang, fontpack-service/service/progress
 * @refs ../../main.go
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fontpack-service/service/models"
	"fontpack-service/service/progress"
)

// Exporter 训练监控指标导出器
type Exporter struct {
	progressPercentage  prometheus.Gauge
	charactersCompleted prometheus.Gauge
	trainingSpeed       prometheus.Gauge
	memoryUsage         prometheus.Gauge
	gpuUtilization      prometheus.Gauge
	activeAnomalies     prometheus.Gauge
	healthState         *prometheus.GaugeVec

	monitor *progress.Monitor
	detach  []func()
}

// NewExporter 创建指标导出器并注册指标
func NewExporter() *Exporter {
	return &Exporter{
		progressPercentage: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fontpack_training_progress_percentage",
			Help: "当前字体包训练总体进度百分比",
		}),
		charactersCompleted: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fontpack_training_characters_completed",
			Help: "已完成训练的字符数量",
		}),
		trainingSpeed: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fontpack_training_speed_chars_per_minute",
			Help: "训练速度（字符/分钟）",
		}),
		memoryUsage: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fontpack_training_memory_usage_percent",
			Help: "训练进程内存使用率",
		}),
		gpuUtilization: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fontpack_training_gpu_utilization_percent",
			Help: "训练进程GPU利用率",
		}),
		activeAnomalies: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fontpack_training_active_anomalies",
			Help: "当前活跃的训练异常数量",
		}),
		healthState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fontpack_training_health_state",
			Help: "训练系统健康状态（1为当前状态）",
		}, []string{"status"}),
	}
}

// Attach 订阅监控器事件以驱动指标更新
func (e *Exporter) Attach(monitor *progress.Monitor) {
	e.monitor = monitor

	e.detach = append(e.detach, monitor.OnProgressUpdate(func(data models.ProgressData) {
		e.progressPercentage.Set(data.Percentage)
		e.charactersCompleted.Set(float64(data.CharactersCompleted))

		m := monitor.PerformanceMetrics()
		e.trainingSpeed.Set(m.TrainingSpeed)
		e.memoryUsage.Set(m.MemoryUsage)
		e.gpuUtilization.Set(m.GPUUtilization)
	}))

	e.detach = append(e.detach, monitor.OnHealthStatusChange(func(health models.SystemHealth) {
		e.activeAnomalies.Set(float64(len(monitor.Anomalies())))

		for _, status := range []models.HealthStatus{
			models.HealthStatusHealthy,
			models.HealthStatusWarning,
			models.HealthStatusError,
		} {
			value := 0.0
			if status == health.Status {
				value = 1.0
			}
			e.healthState.WithLabelValues(string(status)).Set(value)
		}
	}))
}

// Detach 注销所有监听器
func (e *Exporter) Detach() {
	for _, remove := range e.detach {
		remove()
	}
	e.detach = nil
}
