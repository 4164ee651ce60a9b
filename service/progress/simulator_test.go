package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fontpack-service/service/models"
)

func TestSimulateProgressTick(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock, &fixedRand{value: 0.9})
	defer m.Close()

	m.StartMonitoring(1)
	m.simulateProgressTick(currentSession(m))

	data := m.OverallProgress()
	assert.Equal(t, 1.8, data.Percentage) // 0.9*2
	assert.Equal(t, "数据预处理", data.CurrentPhase.Name)
	assert.Equal(t, "一", data.CurrentCharacter)
	assert.InDelta(t, 2946.0, data.EstimatedTimeRemaining, 1e-6) // (100-1.8)*30

	chars := m.CharacterProgress()
	assert.Equal(t, models.CharacterStatusTraining, chars["一"].Status)
	assert.Equal(t, 9.0, chars["一"].Progress) // 0.9*10
	// 仅推进首个未完成字符
	assert.Equal(t, models.CharacterStatusPending, chars["二"].Status)

	metrics := m.PerformanceMetrics()
	assert.Equal(t, 24.0, metrics.TrainingSpeed)  // 15+0.9*10
	assert.Equal(t, 78.0, metrics.MemoryUsage)    // 60+0.9*20
	assert.Equal(t, 93.5, metrics.GPUUtilization) // 80+0.9*15
	assert.NotEmpty(t, metrics.EstimatedCompletion)
}

func TestSimulateProgressCharacterCompletion(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.9})
	defer m.Close()

	m.StartMonitoring(1)
	session := currentSession(m)

	// 每tick推进9%，第12个tick达到100%并完成
	for i := 0; i < 12; i++ {
		m.simulateProgressTick(session)
	}

	chars := m.CharacterProgress()
	assert.Equal(t, models.CharacterStatusCompleted, chars["一"].Status)
	assert.Equal(t, 97.0, chars["一"].Quality) // 70+0.9*30
	assert.Equal(t, 1, m.OverallProgress().CharactersCompleted)
	// 完成后继续推进下一个字符
	assert.Equal(t, models.CharacterStatusTraining, chars["二"].Status)
}

func TestSimulateProgressTickStaleGeneration(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.9})
	defer m.Close()

	m.StartMonitoring(1)
	stale := currentSession(m)
	m.StartMonitoring(2)

	// 旧会话的残留回调被丢弃
	m.simulateProgressTick(stale)
	assert.Equal(t, 0.0, m.OverallProgress().Percentage)
}

func TestSimulateProgressClamp(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.9})
	defer m.Close()

	m.StartMonitoring(1)
	session := currentSession(m)

	p := 99.5
	m.UpdateOverallProgress(models.ProgressPatch{Percentage: &p})

	m.simulateProgressTick(session)
	assert.Equal(t, 100.0, m.OverallProgress().Percentage)
	assert.Equal(t, "质量检查", m.OverallProgress().CurrentPhase.Name)
}

func TestSimulateAnomalyTick(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.99})
	defer m.Close()

	m.StartMonitoring(1)
	session := currentSession(m)

	m.simulateAnomalyTick(session)

	anomalies := m.Anomalies()
	require.Len(t, anomalies, 1)
	assert.Equal(t, models.AnomalyTypeError, anomalies[0].Type)
	assert.Equal(t, models.AnomalySeverityLow, anomalies[0].Severity)
	assert.Equal(t, "数据预处理出现警告", anomalies[0].Message)

	// 同一纳秒内重复注入时时间戳追加序号
	m.simulateAnomalyTick(session)
	anomalies = m.Anomalies()
	require.Len(t, anomalies, 2)
	assert.NotEqual(t, anomalies[0].Timestamp, anomalies[1].Timestamp)
}

func TestSimulateAnomalyTickTimestampUniqueAfterResolve(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.99})
	defer m.Close()

	m.StartMonitoring(1)
	session := currentSession(m)

	// 冻结时钟下连续注入至上限，时间戳依次追加序号
	for i := 0; i < 3; i++ {
		m.simulateAnomalyTick(session)
	}
	anomalies := m.Anomalies()
	require.Len(t, anomalies, 3)

	// 解决中间一条后再次注入，新时间戳不得与任何活跃告警重复
	resolved := m.ResolveAnomaly(anomalies[1].Timestamp)
	require.NotNil(t, resolved)

	m.simulateAnomalyTick(session)
	anomalies = m.Anomalies()
	require.Len(t, anomalies, 3)

	seen := make(map[string]bool)
	for _, a := range anomalies {
		assert.False(t, seen[a.Timestamp], "时间戳重复: %s", a.Timestamp)
		seen[a.Timestamp] = true
	}
}

func TestSimulateAnomalyTickBelowChance(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	m.StartMonitoring(1)
	m.simulateAnomalyTick(currentSession(m))

	assert.Empty(t, m.Anomalies())
}

func TestSimulateAnomalyTickActiveCap(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.99})
	defer m.Close()

	m.StartMonitoring(1)
	session := currentSession(m)

	for i := 0; i < 3; i++ {
		require.True(t, m.AddAnomaly(models.AnomalyAlert{
			Severity:  models.AnomalySeverityLow,
			Message:   "测试异常",
			Timestamp: string(rune('a' + i)),
		}))
	}

	// 活跃异常达到上限时不再注入
	m.simulateAnomalyTick(session)
	assert.Len(t, m.Anomalies(), 3)
}

func TestPhaseFor(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{0, "数据预处理"},
		{19.9, "数据预处理"},
		{20, "模型训练"},
		{79.9, "模型训练"},
		{80, "质量检查"},
		{100, "质量检查"},
	}

	for _, tt := range tests {
		phase := phaseFor(tt.percentage)
		assert.Equal(t, tt.want, phase.Name, "percentage=%v", tt.percentage)
		assert.Equal(t, tt.percentage, phase.Progress)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-5, 0, 100))
	assert.Equal(t, 100.0, clamp(150, 0, 100))
	assert.Equal(t, 42.0, clamp(42, 0, 100))
}
