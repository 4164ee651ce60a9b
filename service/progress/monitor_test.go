package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fontpack-service/service/models"
)

func TestStartMonitoring(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock, &fixedRand{value: 0.5})
	defer m.Close()

	m.StartMonitoring(1)

	assert.True(t, m.IsMonitoring())
	packageID, ok := m.CurrentPackageID()
	require.True(t, ok)
	assert.Equal(t, 1, packageID)

	// 字符集已按配置初始化
	chars := m.CharacterProgress()
	assert.Len(t, chars, 10)
	assert.Equal(t, models.CharacterStatusPending, chars["一"].Status)
	assert.Equal(t, 10, m.OverallProgress().CharactersTotal)

	// 固定随机值0.5时每个tick推进1.0
	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		return m.OverallProgress().Percentage == 1.0
	}, time.Second, 5*time.Millisecond)
}

func TestStartMonitoringIdempotent(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock, &fixedRand{value: 0.5})
	defer m.Close()

	m.StartMonitoring(1)
	session := currentSession(m)

	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		return m.OverallProgress().Percentage == 1.0
	}, time.Second, 5*time.Millisecond)

	// 同一包ID重复启动为空操作，不重置进度也不更换会话
	m.StartMonitoring(1)

	assert.Equal(t, session, currentSession(m))
	assert.Equal(t, 1.0, m.OverallProgress().Percentage)

	// 单一会话下进度按单倍速率推进
	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		return m.OverallProgress().Percentage == 2.0
	}, time.Second, 5*time.Millisecond)
}

func TestStartMonitoringSwitchPackage(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock, &fixedRand{value: 0.5})
	defer m.Close()

	m.StartMonitoring(1)
	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		return m.OverallProgress().Percentage > 0
	}, time.Second, 5*time.Millisecond)

	// 切换包ID时先停止旧会话再重置
	m.StartMonitoring(2)

	packageID, ok := m.CurrentPackageID()
	require.True(t, ok)
	assert.Equal(t, 2, packageID)
	assert.Equal(t, 0.0, m.OverallProgress().Percentage)
	assert.Equal(t, "准备中", m.OverallProgress().CurrentPhase.Name)
}

func TestStopMonitoring(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock, &fixedRand{value: 0.5})
	defer m.Close()

	m.StartMonitoring(1)
	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		return m.OverallProgress().Percentage == 1.0
	}, time.Second, 5*time.Millisecond)

	m.StopMonitoring()

	assert.False(t, m.IsMonitoring())
	_, ok := m.CurrentPackageID()
	assert.False(t, ok)

	// 进度数据保留但不再推进
	clock.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1.0, m.OverallProgress().Percentage)

	// 重复停止为空操作
	m.StopMonitoring()
	assert.False(t, m.IsMonitoring())
}

func TestUpdateOverallProgress(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	var received []models.ProgressData
	m.OnProgressUpdate(func(data models.ProgressData) {
		received = append(received, data)
	})

	percentage := 55.5
	current := "七"
	m.UpdateOverallProgress(models.ProgressPatch{
		Percentage:       &percentage,
		CurrentCharacter: &current,
	})

	data := m.OverallProgress()
	assert.Equal(t, 55.5, data.Percentage)
	assert.Equal(t, "七", data.CurrentCharacter)
	// 未给出的字段保持不变
	assert.Equal(t, "准备中", data.CurrentPhase.Name)

	require.Len(t, received, 1)
	assert.Equal(t, 55.5, received[0].Percentage)
}

func TestUpdateCharacterProgress(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	status := models.CharacterStatusTraining
	progressVal := 40.0
	m.UpdateCharacterProgress("福", models.CharacterProgressPatch{
		Status:   &status,
		Progress: &progressVal,
	})

	chars := m.CharacterProgress()
	entry, ok := chars["福"]
	require.True(t, ok)
	assert.Equal(t, models.CharacterStatusTraining, entry.Status)
	assert.Equal(t, 40.0, entry.Progress)
	// 未指定的字段使用默认值
	assert.Equal(t, 0.0, entry.Quality)
	assert.Empty(t, entry.Issues)
}

func TestUpdatePerformanceMetrics(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	speed := 22.5
	m.UpdatePerformanceMetrics(models.PerformanceMetricsPatch{
		TrainingSpeed: &speed,
	})

	metrics := m.PerformanceMetrics()
	assert.Equal(t, 22.5, metrics.TrainingSpeed)
	assert.Equal(t, 0.0, metrics.MemoryUsage)
}

func TestListenerUnsubscribe(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	count := 0
	remove := m.OnProgressUpdate(func(models.ProgressData) { count++ })

	p := 10.0
	m.UpdateOverallProgress(models.ProgressPatch{Percentage: &p})
	assert.Equal(t, 1, count)

	remove()
	m.UpdateOverallProgress(models.ProgressPatch{Percentage: &p})
	assert.Equal(t, 1, count)

	// 重复注销为空操作
	remove()
	m.UpdateOverallProgress(models.ProgressPatch{Percentage: &p})
	assert.Equal(t, 1, count)
}

func TestListenerPanicIsolation(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	var order []string
	m.OnProgressUpdate(func(models.ProgressData) {
		order = append(order, "first")
		panic("监听器故障")
	})
	m.OnProgressUpdate(func(models.ProgressData) {
		order = append(order, "second")
	})

	p := 10.0
	m.UpdateOverallProgress(models.ProgressPatch{Percentage: &p})

	// 故障监听器不影响后续监听器，且按注册顺序执行
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSnapshotIsDetached(t *testing.T) {
	clock := newFakeClock()
	m := newTestMonitor(clock, &fixedRand{value: 0.5})
	defer m.Close()

	m.AddAnomaly(models.AnomalyAlert{
		Type:      models.AnomalyTypePerformance,
		Severity:  models.AnomalySeverityHigh,
		Message:   "内存使用率过高",
		Timestamp: "2025-06-01T12:00:00Z",
	})

	snapshot := m.Snapshot()
	assert.Equal(t, clock.Now().Format(time.RFC3339Nano), snapshot.Timestamp)
	require.Len(t, snapshot.Health.Issues, 1)

	// 修改快照不影响内部状态
	snapshot.Health.Issues[0] = "已被篡改"
	assert.Equal(t, "内存使用率过高", m.HealthStatus().Issues[0])
}

func TestResetProgressData(t *testing.T) {
	m := newTestMonitor(newFakeClock(), &fixedRand{value: 0.5})
	defer m.Close()

	p := 80.0
	m.UpdateOverallProgress(models.ProgressPatch{Percentage: &p})
	m.UpdateCharacterProgress("一", models.CharacterProgressPatch{Progress: &p})
	m.AddAnomaly(models.AnomalyAlert{
		Severity:  models.AnomalySeverityHigh,
		Message:   "字符质量检查失败",
		Timestamp: "2025-06-01T12:00:00Z",
	})

	m.ResetProgressData()

	assert.Equal(t, 0.0, m.OverallProgress().Percentage)
	assert.Empty(t, m.CharacterProgress())
	assert.Empty(t, m.Anomalies())
	assert.Equal(t, models.HealthStatusHealthy, m.HealthStatus().Status)
	assert.Equal(t, 0.0, m.PerformanceMetrics().TrainingSpeed)
}
