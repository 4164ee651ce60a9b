package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"fontpack-service/service/models"
	"fontpack-service/service/progress"
)

func TestExporterAttach(t *testing.T) {
	e := NewExporter()
	m := progress.NewMonitor(progress.DefaultMonitorConfig())
	defer m.Close()

	e.Attach(m)
	defer e.Detach()

	// 先更新性能指标，进度事件触发时一并读取
	speed := 12.5
	m.UpdatePerformanceMetrics(models.PerformanceMetricsPatch{TrainingSpeed: &speed})
	p := 40.0
	m.UpdateOverallProgress(models.ProgressPatch{Percentage: &p})

	assert.Equal(t, 40.0, testutil.ToFloat64(e.progressPercentage))
	assert.Equal(t, 12.5, testutil.ToFloat64(e.trainingSpeed))
	// 训练速度指标单位为字符/分钟
	assert.Equal(t, 1, testutil.CollectAndCount(e.trainingSpeed, "fontpack_training_speed_chars_per_minute"))

	m.AddAnomaly(models.AnomalyAlert{
		Type:      models.AnomalyTypePerformance,
		Severity:  models.AnomalySeverityMedium,
		Message:   "训练速度低于预期",
		Timestamp: "2025-06-01T12:00:00Z",
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(e.activeAnomalies))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.healthState.WithLabelValues(string(models.HealthStatusWarning))))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.healthState.WithLabelValues(string(models.HealthStatusHealthy))))
}
