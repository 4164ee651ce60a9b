/*
 * @module service/progress/monitor
 * @description 字体包训练进度监控器，管理监控会话生命周期、进度状态存储、异常与健康派生和事件分发
 * @architecture 状态机 + 观察者模式 - 业务服务层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 空闲 -> 启动监控(重置状态/启动定时器) -> 周期推进 -> 停止监控(取消定时器/清除标识)
 * @rules 同一包ID重复启动为幂等空操作；切换包ID先完整停止旧会话再重置；定时器取消先于状态重置
 * @dependencies fontpack-service/service/models, context, sync
 * @refs simulator.go, listener_registry.go, clock.go
 */

package progress

import (
	"context"
	"sync"
	"time"

	"fontpack-service/service/models"
)

// 初始阶段定义
const (
	initialPhaseName        = "准备中"
	initialPhaseDescription = "正在初始化训练环境"
)

// MonitorConfig 监控器配置
type MonitorConfig struct {
	ProgressInterval   time.Duration // 进度推进间隔
	AnomalyInterval    time.Duration // 异常注入检查间隔
	CharacterSet       []string      // 会话目标字符集
	MaxActiveAnomalies int           // 模拟异常的活跃数量上限
	AnomalyChance      float64       // 每次异常检查的注入阈值，随机值大于该阈值时注入
	Clock              Clock         // 时钟源，nil时使用真实时钟
	Rand               RandSource    // 随机源，nil时使用默认随机源
}

// DefaultMonitorConfig 获取默认监控配置
func DefaultMonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		ProgressInterval:   2 * time.Second,
		AnomalyInterval:    10 * time.Second,
		CharacterSet:       defaultCharacterSet(),
		MaxActiveAnomalies: 3,
		AnomalyChance:      0.98,
	}
}

// Monitor 训练进度监控器，单实例同一时刻仅监控一个字体包
type Monitor struct {
	mu  sync.Mutex
	cfg *MonitorConfig

	clock Clock
	rand  RandSource

	// 会话状态
	isMonitoring     bool
	currentPackageID *int
	session          uint64 // 会话代数，用于隔离已取消会话的残留回调
	cancel           context.CancelFunc

	// 进度状态
	overall        models.ProgressData
	characters     map[string]*models.CharacterProgress
	characterOrder []string
	metrics        models.PerformanceMetrics
	anomalies      []models.AnomalyAlert
	health         models.SystemHealth

	listeners listenerRegistry
}

// NewMonitor 创建进度监控器实例
func NewMonitor(cfg *MonitorConfig) *Monitor {
	if cfg == nil {
		cfg = DefaultMonitorConfig()
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 2 * time.Second
	}
	if cfg.AnomalyInterval <= 0 {
		cfg.AnomalyInterval = 10 * time.Second
	}
	if len(cfg.CharacterSet) == 0 {
		cfg.CharacterSet = defaultCharacterSet()
	}
	if cfg.MaxActiveAnomalies <= 0 {
		cfg.MaxActiveAnomalies = 3
	}
	if cfg.AnomalyChance <= 0 {
		cfg.AnomalyChance = 0.98
	}

	clock := cfg.Clock
	if clock == nil {
		clock = NewRealClock()
	}
	randSource := cfg.Rand
	if randSource == nil {
		randSource = newDefaultRandSource()
	}

	m := &Monitor{
		cfg:        cfg,
		clock:      clock,
		rand:       randSource,
		characters: make(map[string]*models.CharacterProgress),
	}
	m.resetLocked()
	return m
}

// StartMonitoring 开始监控指定字体包的训练进度。
// 对同一活跃包ID重复调用为幂等空操作；监控不同包ID时先停止旧会话。
func (m *Monitor) StartMonitoring(packageID int) {
	m.mu.Lock()

	if m.isMonitoring && m.currentPackageID != nil && *m.currentPackageID == packageID {
		m.mu.Unlock()
		return
	}

	// 先取消旧会话的定时器，再重置状态，防止残留回调写入新会话数据
	if m.isMonitoring {
		m.stopLocked()
	}

	m.resetLocked()
	m.seedCharactersLocked()

	id := packageID
	m.currentPackageID = &id
	m.isMonitoring = true
	m.session++

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	gen := m.session

	progressTicker := m.clock.NewTicker(m.cfg.ProgressInterval)
	anomalyTicker := m.clock.NewTicker(m.cfg.AnomalyInterval)

	go m.tickLoop(ctx, progressTicker, func() { m.simulateProgressTick(gen) })
	go m.tickLoop(ctx, anomalyTicker, func() { m.simulateAnomalyTick(gen) })

	m.mu.Unlock()
}

// StopMonitoring 停止监控。重复调用为幂等空操作，永不报错。
func (m *Monitor) StopMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isMonitoring {
		return
	}
	m.stopLocked()
}

// stopLocked 取消定时器并清除会话标识，调用方必须持有锁
func (m *Monitor) stopLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.isMonitoring = false
	m.currentPackageID = nil
	// 代数递增，使尚未获得锁的残留tick回调失效
	m.session++
}

// tickLoop 定时器驱动循环，ctx取消时退出并释放定时器
func (m *Monitor) tickLoop(ctx context.Context, ticker Ticker, onTick func()) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			onTick()
		}
	}
}

// IsMonitoring 获取监控状态
func (m *Monitor) IsMonitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isMonitoring
}

// CurrentPackageID 获取当前监控的字体包ID，空闲时第二个返回值为false
func (m *Monitor) CurrentPackageID() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentPackageID == nil {
		return 0, false
	}
	return *m.currentPackageID, true
}

// UpdateOverallProgress 部分更新总体进度并分发进度事件
func (m *Monitor) UpdateOverallProgress(patch models.ProgressPatch) {
	m.mu.Lock()
	m.applyProgressPatchLocked(patch)
	data := m.overall
	m.mu.Unlock()

	m.listeners.notifyProgress(data)
}

func (m *Monitor) applyProgressPatchLocked(patch models.ProgressPatch) {
	if patch.Percentage != nil {
		m.overall.Percentage = *patch.Percentage
	}
	if patch.CurrentPhase != nil {
		m.overall.CurrentPhase = *patch.CurrentPhase
	}
	if patch.EstimatedTimeRemaining != nil {
		m.overall.EstimatedTimeRemaining = *patch.EstimatedTimeRemaining
	}
	if patch.CharactersCompleted != nil {
		m.overall.CharactersCompleted = *patch.CharactersCompleted
	}
	if patch.CharactersTotal != nil {
		m.overall.CharactersTotal = *patch.CharactersTotal
	}
	if patch.CurrentCharacter != nil {
		m.overall.CurrentCharacter = *patch.CurrentCharacter
	}
}

// UpdateCharacterProgress 部分更新指定字符的训练进度，条目不存在时以默认值创建
func (m *Monitor) UpdateCharacterProgress(character string, patch models.CharacterProgressPatch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.characters[character]
	if !ok {
		entry = &models.CharacterProgress{
			Status:   models.CharacterStatusPending,
			Progress: 0,
			Quality:  0,
			Issues:   []string{},
		}
		m.characters[character] = entry
		m.characterOrder = append(m.characterOrder, character)
	}

	if patch.Status != nil {
		entry.Status = *patch.Status
	}
	if patch.Progress != nil {
		entry.Progress = *patch.Progress
	}
	if patch.Quality != nil {
		entry.Quality = *patch.Quality
	}
	if patch.Issues != nil {
		entry.Issues = append([]string{}, patch.Issues...)
	}
}

// UpdatePerformanceMetrics 部分更新性能指标
func (m *Monitor) UpdatePerformanceMetrics(patch models.PerformanceMetricsPatch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if patch.TrainingSpeed != nil {
		m.metrics.TrainingSpeed = *patch.TrainingSpeed
	}
	if patch.MemoryUsage != nil {
		m.metrics.MemoryUsage = *patch.MemoryUsage
	}
	if patch.GPUUtilization != nil {
		m.metrics.GPUUtilization = *patch.GPUUtilization
	}
	if patch.EstimatedCompletion != nil {
		m.metrics.EstimatedCompletion = *patch.EstimatedCompletion
	}
}

// AddAnomaly 添加异常告警。时间戳与现有活跃告警重复时拒绝并返回false。
// 添加成功后同步重新计算健康状态，依次分发异常事件和健康事件。
func (m *Monitor) AddAnomaly(anomaly models.AnomalyAlert) bool {
	m.mu.Lock()
	if m.hasActiveTimestampLocked(anomaly.Timestamp) {
		m.mu.Unlock()
		return false
	}
	m.anomalies = append(m.anomalies, anomaly)
	m.recomputeHealthLocked()
	health := cloneHealth(m.health)
	m.mu.Unlock()

	m.listeners.notifyAnomaly(anomaly)
	m.listeners.notifyHealth(health)
	return true
}

// ResolveAnomaly 解决指定时间戳的异常告警。
// 命中时从活跃列表移除，返回resolved=true的独立副本并分发健康事件；未命中返回nil。
func (m *Monitor) ResolveAnomaly(timestamp string) *models.AnomalyAlert {
	m.mu.Lock()
	idx := -1
	for i, a := range m.anomalies {
		if a.Timestamp == timestamp {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return nil
	}

	resolved := m.anomalies[idx]
	resolved.Resolved = true
	m.anomalies = append(m.anomalies[:idx], m.anomalies[idx+1:]...)
	m.recomputeHealthLocked()
	health := cloneHealth(m.health)
	m.mu.Unlock()

	m.listeners.notifyHealth(health)
	return &resolved
}

// hasActiveTimestampLocked 判断指定时间戳是否已存在于活跃告警列表，调用方必须持有锁
func (m *Monitor) hasActiveTimestampLocked(timestamp string) bool {
	for _, a := range m.anomalies {
		if a.Timestamp == timestamp {
			return true
		}
	}
	return false
}

// recomputeHealthLocked 按严重程度优先级派生健康状态：
// 存在high级活跃异常为error，否则存在medium级为warning，否则为healthy。
// low级异常不改变健康状态。调用方必须持有锁。
func (m *Monitor) recomputeHealthLocked() {
	var highIssues, activeIssues []string
	hasMedium := false

	for _, a := range m.anomalies {
		if a.Resolved {
			continue
		}
		activeIssues = append(activeIssues, a.Message)
		switch a.Severity {
		case models.AnomalySeverityHigh:
			highIssues = append(highIssues, a.Message)
		case models.AnomalySeverityMedium:
			hasMedium = true
		}
	}

	switch {
	case len(highIssues) > 0:
		m.health.Status = models.HealthStatusError
		m.health.Issues = highIssues
	case hasMedium:
		m.health.Status = models.HealthStatusWarning
		m.health.Issues = activeIssues
	default:
		m.health.Status = models.HealthStatusHealthy
		m.health.Issues = []string{}
	}
	m.health.LastCheck = m.clock.Now().Format(time.RFC3339Nano)
}

// Snapshot 获取当前进度快照，返回与内部状态完全隔离的深拷贝
func (m *Monitor) Snapshot() models.ProgressSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return models.ProgressSnapshot{
		Timestamp: m.clock.Now().Format(time.RFC3339Nano),
		Progress:  m.overall,
		Metrics:   m.metrics,
		Health:    cloneHealth(m.health),
	}
}

// OverallProgress 获取总体进度副本
func (m *Monitor) OverallProgress() models.ProgressData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overall
}

// CharacterProgress 获取字符进度映射的深拷贝
func (m *Monitor) CharacterProgress() map[string]models.CharacterProgress {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]models.CharacterProgress, len(m.characters))
	for ch, entry := range m.characters {
		cp := *entry
		cp.Issues = append([]string{}, entry.Issues...)
		out[ch] = cp
	}
	return out
}

// PerformanceMetrics 获取性能指标副本
func (m *Monitor) PerformanceMetrics() models.PerformanceMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

// Anomalies 获取活跃异常告警列表副本
func (m *Monitor) Anomalies() []models.AnomalyAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AnomalyAlert, len(m.anomalies))
	copy(out, m.anomalies)
	return out
}

// HealthStatus 获取健康状态副本
func (m *Monitor) HealthStatus() models.SystemHealth {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneHealth(m.health)
}

// ResetProgressData 重置所有进度数据到初始状态
func (m *Monitor) ResetProgressData() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

// resetLocked 恢复初始状态，调用方必须持有锁
func (m *Monitor) resetLocked() {
	m.overall = models.ProgressData{
		Percentage: 0,
		CurrentPhase: models.TrainingPhase{
			Name:        initialPhaseName,
			Description: initialPhaseDescription,
			Status:      "pending",
			Progress:    0,
		},
		EstimatedTimeRemaining: 0,
		CharactersCompleted:    0,
		CharactersTotal:        0,
		CurrentCharacter:       "",
	}
	m.characters = make(map[string]*models.CharacterProgress)
	m.characterOrder = nil
	m.metrics = models.PerformanceMetrics{}
	m.anomalies = []models.AnomalyAlert{}
	m.health = models.SystemHealth{
		Status:    models.HealthStatusHealthy,
		Issues:    []string{},
		LastCheck: m.clock.Now().Format(time.RFC3339Nano),
	}
}

// seedCharactersLocked 按配置的字符集初始化本会话的字符进度条目
func (m *Monitor) seedCharactersLocked() {
	for _, ch := range m.cfg.CharacterSet {
		m.characters[ch] = &models.CharacterProgress{
			Status:   models.CharacterStatusPending,
			Progress: 0,
			Quality:  0,
			Issues:   []string{},
		}
		m.characterOrder = append(m.characterOrder, ch)
	}
	m.overall.CharactersTotal = len(m.cfg.CharacterSet)
}

// OnProgressUpdate 注册进度更新监听器，返回幂等的注销函数
func (m *Monitor) OnProgressUpdate(listener ProgressListener) func() {
	return m.listeners.addProgress(listener)
}

// OnAnomalyDetected 注册异常检测监听器，返回幂等的注销函数
func (m *Monitor) OnAnomalyDetected(listener AnomalyListener) func() {
	return m.listeners.addAnomaly(listener)
}

// OnHealthStatusChange 注册健康状态监听器，返回幂等的注销函数
func (m *Monitor) OnHealthStatusChange(listener HealthListener) func() {
	return m.listeners.addHealth(listener)
}

// Close 停止监控并清空所有监听器，供组合层在销毁时调用
func (m *Monitor) Close() {
	m.StopMonitoring()
	m.listeners.clear()
}

// cloneHealth 深拷贝健康状态
func cloneHealth(h models.SystemHealth) models.SystemHealth {
	out := h
	out.Issues = append([]string{}, h.Issues...)
	return out
}
