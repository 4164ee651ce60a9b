/*
 * @module service/progress/simulator
 * @description 训练遥测模拟器，在监控会话期间周期性推进进度、字符状态、性能指标并概率性注入异常
 * @architecture 定时回调 - 业务服务层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 进度tick: 校验会话代数 -> 推进总体进度 -> 推进字符 -> 刷新指标 -> 分发事件
 * @rules 所有数值静默截断到合法区间；残留回调通过会话代数校验丢弃；模拟路径永不报错
 * @dependencies fontpack-service/service/models, math/rand
 * @refs monitor.go
 */

package progress

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"fontpack-service/service/models"
)

// RandSource 随机源抽象，测试中注入固定序列以获得确定性行为
type RandSource interface {
	Float64() float64
}

type defaultRandSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newDefaultRandSource() *defaultRandSource {
	return &defaultRandSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *defaultRandSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// defaultCharacterSet 默认训练字符集
func defaultCharacterSet() []string {
	return []string{"一", "二", "三", "四", "五", "六", "七", "八", "九", "十"}
}

// 训练阶段定义，按总体进度百分比划分
var trainingPhases = []struct {
	threshold   float64
	name        string
	description string
}{
	{20, "数据预处理", "正在预处理训练数据"},
	{80, "模型训练", "正在训练字体生成模型"},
	{100, "质量检查", "正在进行质量检查和优化"},
}

// 模拟异常池，注入时随机选取
var anomalyPool = []models.AnomalyAlert{
	{Type: models.AnomalyTypePerformance, Severity: models.AnomalySeverityMedium, Message: "训练速度低于预期"},
	{Type: models.AnomalyTypePerformance, Severity: models.AnomalySeverityHigh, Message: "内存使用率过高"},
	{Type: models.AnomalyTypePerformance, Severity: models.AnomalySeverityMedium, Message: "GPU利用率异常"},
	{Type: models.AnomalyTypeQuality, Severity: models.AnomalySeverityHigh, Message: "字符质量检查失败"},
	{Type: models.AnomalyTypeQuality, Severity: models.AnomalySeverityLow, Message: "模型收敛速度缓慢"},
	{Type: models.AnomalyTypeError, Severity: models.AnomalySeverityLow, Message: "数据预处理出现警告"},
}

// simulateProgressTick 推进一次模拟训练进度，gen与当前会话不一致时丢弃
func (m *Monitor) simulateProgressTick(gen uint64) {
	m.mu.Lock()

	if !m.isMonitoring || gen != m.session {
		m.mu.Unlock()
		return
	}

	// 总体进度按随机步长推进并截断到[0,100]
	m.overall.Percentage = clamp(m.overall.Percentage+m.rand.Float64()*2, 0, 100)
	m.overall.CurrentPhase = phaseFor(m.overall.Percentage)
	m.overall.EstimatedTimeRemaining = (100 - m.overall.Percentage) * 30

	m.advanceCharactersLocked()
	m.refreshMetricsLocked()

	data := m.overall
	m.mu.Unlock()

	m.listeners.notifyProgress(data)
}

// advanceCharactersLocked 推进字符训练状态，调用方必须持有锁
func (m *Monitor) advanceCharactersLocked() {
	completed := 0
	current := ""

	for _, ch := range m.characterOrder {
		entry := m.characters[ch]

		switch entry.Status {
		case models.CharacterStatusCompleted, models.CharacterStatusFailed:
			if entry.Status == models.CharacterStatusCompleted {
				completed++
			}
			continue
		case models.CharacterStatusPending:
			// 仅推进首个未完成字符
			if current != "" {
				continue
			}
			entry.Status = models.CharacterStatusTraining
		}

		if current == "" {
			current = ch
		} else {
			continue
		}

		if r := m.rand.Float64(); r > 0.7 {
			entry.Progress = clamp(entry.Progress+r*10, 0, 100)
		}

		if entry.Progress >= 100 {
			if m.rand.Float64() > 0.95 {
				entry.Status = models.CharacterStatusFailed
				entry.Issues = append(entry.Issues, "字符质量不达标，需要重新训练")
			} else {
				entry.Status = models.CharacterStatusCompleted
				entry.Quality = clamp(70+m.rand.Float64()*30, 0, 100)
				completed++
			}
			current = ""
		}
	}

	m.overall.CharactersCompleted = completed
	m.overall.CurrentCharacter = current
}

// refreshMetricsLocked 刷新模拟性能指标，调用方必须持有锁
func (m *Monitor) refreshMetricsLocked() {
	m.metrics.TrainingSpeed = 15 + m.rand.Float64()*10
	m.metrics.MemoryUsage = clamp(60+m.rand.Float64()*20, 0, 100)
	m.metrics.GPUUtilization = clamp(80+m.rand.Float64()*15, 0, 100)

	remaining := time.Duration(m.overall.EstimatedTimeRemaining) * time.Second
	m.metrics.EstimatedCompletion = m.clock.Now().Add(remaining).Format(time.RFC3339Nano)
}

// simulateAnomalyTick 概率性注入一条模拟异常，活跃异常达到上限时跳过
func (m *Monitor) simulateAnomalyTick(gen uint64) {
	m.mu.Lock()

	if !m.isMonitoring || gen != m.session {
		m.mu.Unlock()
		return
	}
	if len(m.anomalies) >= m.cfg.MaxActiveAnomalies {
		m.mu.Unlock()
		return
	}
	if m.rand.Float64() <= m.cfg.AnomalyChance {
		m.mu.Unlock()
		return
	}

	template := anomalyPool[int(m.rand.Float64()*float64(len(anomalyPool)))%len(anomalyPool)]
	anomaly := models.AnomalyAlert{
		Type:      template.Type,
		Severity:  template.Severity,
		Message:   template.Message,
		Timestamp: m.clock.Now().Format(time.RFC3339Nano),
		Resolved:  false,
	}

	// 同一纳秒内多次注入时追加序号保证时间戳唯一，序号递增直到不与任何活跃异常冲突
	base := anomaly.Timestamp
	for n := 1; m.hasActiveTimestampLocked(anomaly.Timestamp); n++ {
		anomaly.Timestamp = fmt.Sprintf("%s#%d", base, n)
	}

	m.anomalies = append(m.anomalies, anomaly)
	m.recomputeHealthLocked()
	health := cloneHealth(m.health)
	m.mu.Unlock()

	m.listeners.notifyAnomaly(anomaly)
	m.listeners.notifyHealth(health)
}

// phaseFor 根据总体进度百分比返回当前训练阶段
func phaseFor(percentage float64) models.TrainingPhase {
	for _, p := range trainingPhases {
		if percentage < p.threshold {
			return models.TrainingPhase{
				Name:        p.name,
				Description: p.description,
				Status:      "running",
				Progress:    percentage,
			}
		}
	}
	last := trainingPhases[len(trainingPhases)-1]
	return models.TrainingPhase{
		Name:        last.name,
		Description: last.description,
		Status:      "running",
		Progress:    percentage,
	}
}

// clamp 截断数值到[min,max]区间
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
