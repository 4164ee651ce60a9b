package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fontpack-service/service/models"
)

func TestAddAnomaly(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	var anomalyEvents []models.AnomalyAlert
	var healthEvents []models.SystemHealth
	m.OnAnomalyDetected(func(a models.AnomalyAlert) { anomalyEvents = append(anomalyEvents, a) })
	m.OnHealthStatusChange(func(h models.SystemHealth) { healthEvents = append(healthEvents, h) })

	ok := m.AddAnomaly(models.AnomalyAlert{
		Type:      models.AnomalyTypePerformance,
		Severity:  models.AnomalySeverityMedium,
		Message:   "训练速度低于预期",
		Timestamp: "2025-06-01T12:00:00Z",
	})
	require.True(t, ok)

	assert.Len(t, m.Anomalies(), 1)
	require.Len(t, anomalyEvents, 1)
	assert.Equal(t, "训练速度低于预期", anomalyEvents[0].Message)

	// 健康事件在异常事件之后无条件分发
	require.Len(t, healthEvents, 1)
	assert.Equal(t, models.HealthStatusWarning, healthEvents[0].Status)
}

func TestAddAnomalyDuplicateTimestamp(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	alert := models.AnomalyAlert{
		Severity:  models.AnomalySeverityMedium,
		Message:   "GPU利用率异常",
		Timestamp: "2025-06-01T12:00:00Z",
	}
	require.True(t, m.AddAnomaly(alert))

	// 时间戳即告警身份，重复添加被拒绝
	assert.False(t, m.AddAnomaly(alert))
	assert.Len(t, m.Anomalies(), 1)
}

func TestHealthSeverityPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		severities []models.AnomalySeverity
		want       models.HealthStatus
	}{
		{
			name:       "无异常时健康",
			severities: nil,
			want:       models.HealthStatusHealthy,
		},
		{
			name:       "仅low级异常不改变健康状态",
			severities: []models.AnomalySeverity{models.AnomalySeverityLow},
			want:       models.HealthStatusHealthy,
		},
		{
			name:       "medium级异常为警告",
			severities: []models.AnomalySeverity{models.AnomalySeverityLow, models.AnomalySeverityMedium},
			want:       models.HealthStatusWarning,
		},
		{
			name:       "high级异常优先为错误",
			severities: []models.AnomalySeverity{models.AnomalySeverityMedium, models.AnomalySeverityHigh},
			want:       models.HealthStatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
			defer m.Close()

			for i, severity := range tt.severities {
				require.True(t, m.AddAnomaly(models.AnomalyAlert{
					Severity:  severity,
					Message:   "测试异常",
					Timestamp: string(rune('a' + i)),
				}))
			}

			assert.Equal(t, tt.want, m.HealthStatus().Status)
		})
	}
}

func TestHealthErrorIssuesOnlyHigh(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	m.AddAnomaly(models.AnomalyAlert{
		Severity: models.AnomalySeverityMedium, Message: "训练速度低于预期", Timestamp: "t1",
	})
	m.AddAnomaly(models.AnomalyAlert{
		Severity: models.AnomalySeverityHigh, Message: "内存使用率过高", Timestamp: "t2",
	})

	health := m.HealthStatus()
	assert.Equal(t, models.HealthStatusError, health.Status)
	// 错误状态仅罗列high级告警信息
	assert.Equal(t, []string{"内存使用率过高"}, health.Issues)
}

func TestResolveAnomaly(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	var healthEvents []models.SystemHealth
	m.OnHealthStatusChange(func(h models.SystemHealth) { healthEvents = append(healthEvents, h) })

	m.AddAnomaly(models.AnomalyAlert{
		Severity: models.AnomalySeverityHigh, Message: "字符质量检查失败", Timestamp: "t1",
	})
	require.Len(t, healthEvents, 1)

	resolved := m.ResolveAnomaly("t1")
	require.NotNil(t, resolved)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, "字符质量检查失败", resolved.Message)

	// 已解决的告警从活跃列表移除，健康状态恢复
	assert.Empty(t, m.Anomalies())
	assert.Equal(t, models.HealthStatusHealthy, m.HealthStatus().Status)
	require.Len(t, healthEvents, 2)
	assert.Equal(t, models.HealthStatusHealthy, healthEvents[1].Status)
}

func TestResolveAnomalyUnknownTimestamp(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	var healthEvents []models.SystemHealth
	m.OnHealthStatusChange(func(h models.SystemHealth) { healthEvents = append(healthEvents, h) })

	assert.Nil(t, m.ResolveAnomaly("不存在的时间戳"))
	// 未命中时不分发健康事件
	assert.Empty(t, healthEvents)
}

func TestResolveAnomalyReturnsDetachedCopy(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	m.AddAnomaly(models.AnomalyAlert{
		Severity: models.AnomalySeverityMedium, Message: "模型收敛速度缓慢", Timestamp: "t1",
	})
	m.AddAnomaly(models.AnomalyAlert{
		Severity: models.AnomalySeverityMedium, Message: "GPU利用率异常", Timestamp: "t2",
	})

	resolved := m.ResolveAnomaly("t1")
	require.NotNil(t, resolved)

	resolved.Message = "已被篡改"
	remaining := m.Anomalies()
	require.Len(t, remaining, 1)
	assert.Equal(t, "GPU利用率异常", remaining[0].Message)
	assert.False(t, remaining[0].Resolved)
}
