package progress

import (
	"sync"
	"time"
)

// fakeClock 可手动推进的时钟，测试中替代真实时钟
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTicker{
		interval: d,
		ch:       make(chan time.Time, 64),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance 推进时钟并向所有到期的定时器投递tick
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*fakeTicker{}, c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		t.advance(d, now)
	}
}

type fakeTicker struct {
	mu       sync.Mutex
	interval time.Duration
	elapsed  time.Duration
	stopped  bool
	ch       chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) advance(d time.Duration, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.elapsed += d
	for t.elapsed >= t.interval {
		t.elapsed -= t.interval
		select {
		case t.ch <- now:
		default:
		}
	}
}

// fixedRand 返回固定值的随机源
type fixedRand struct {
	value float64
}

func (r *fixedRand) Float64() float64 { return r.value }

// scriptedRand 按脚本序列返回随机值，耗尽后循环
type scriptedRand struct {
	mu     sync.Mutex
	values []float64
	index  int
}

func (r *scriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.values[r.index%len(r.values)]
	r.index++
	return v
}

// newTestMonitor 创建使用假时钟和固定随机源的监控器
func newTestMonitor(clock *fakeClock, rand RandSource) *Monitor {
	cfg := DefaultMonitorConfig()
	cfg.Clock = clock
	cfg.Rand = rand
	return NewMonitor(cfg)
}

// currentSession 读取监控器的当前会话代数
func currentSession(m *Monitor) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}
