/*
 * @module service/progress/clock
 * @description 时钟抽象，将定时器从运行时时间中解耦，允许测试注入可控的时间源
 * @architecture 工具层 - 依赖注入
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 创建定时器 -> 周期触发 -> 停止释放
 * @rules 所有周期性调度必须通过Clock创建，禁止直接调用time.NewTicker
 * @dependencies time
 * @refs monitor.go, simulator.go
 */

package progress

import "time"

// Clock 时钟抽象
type Clock interface {
	NewTicker(d time.Duration) Ticker
	Now() time.Time
}

// Ticker 定时器抽象
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// realClock 基于运行时时间的时钟实现
type realClock struct{}

// NewRealClock 创建真实时钟
func NewRealClock() Clock {
	return realClock{}
}

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

func (realClock) Now() time.Time {
	return time.Now()
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}
