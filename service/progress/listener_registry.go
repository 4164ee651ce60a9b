/*
 * @module service/progress/listener_registry
 * @description 监听器注册表，管理进度更新、异常检测、健康状态三个独立事件通道的订阅与分发
 * @architecture 观察者模式 - 事件分发层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 注册监听器 -> 事件触发 -> 按注册顺序同步分发 -> 注销监听器
 * @rules 监听器按注册顺序调用，单个监听器异常不影响其他监听器，注销函数可重复调用
 * @dependencies log/slog, sync
 * @refs monitor.go, service/models/progress.go
 */

package progress

import (
	"log/slog"
	"sync"

	"fontpack-service/service/models"
)

// ProgressListener 进度更新监听器
type ProgressListener func(data models.ProgressData)

// AnomalyListener 异常检测监听器
type AnomalyListener func(anomaly models.AnomalyAlert)

// HealthListener 健康状态监听器
type HealthListener func(health models.SystemHealth)

type progressEntry struct {
	id int64
	fn ProgressListener
}

type anomalyEntry struct {
	id int64
	fn AnomalyListener
}

type healthEntry struct {
	id int64
	fn HealthListener
}

// listenerRegistry 三通道监听器注册表，保证注册顺序分发
type listenerRegistry struct {
	mu       sync.Mutex
	nextID   int64
	progress []progressEntry
	anomaly  []anomalyEntry
	health   []healthEntry
}

// addProgress 注册进度监听器，返回幂等的注销函数
func (r *listenerRegistry) addProgress(fn ProgressListener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.progress = append(r.progress, progressEntry{id: id, fn: fn})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.progress {
			if e.id == id {
				r.progress = append(r.progress[:i], r.progress[i+1:]...)
				return
			}
		}
	}
}

// addAnomaly 注册异常监听器
func (r *listenerRegistry) addAnomaly(fn AnomalyListener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.anomaly = append(r.anomaly, anomalyEntry{id: id, fn: fn})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.anomaly {
			if e.id == id {
				r.anomaly = append(r.anomaly[:i], r.anomaly[i+1:]...)
				return
			}
		}
	}
}

// addHealth 注册健康状态监听器
func (r *listenerRegistry) addHealth(fn HealthListener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.health = append(r.health, healthEntry{id: id, fn: fn})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.health {
			if e.id == id {
				r.health = append(r.health[:i], r.health[i+1:]...)
				return
			}
		}
	}
}

// notifyProgress 分发进度更新事件
func (r *listenerRegistry) notifyProgress(data models.ProgressData) {
	r.mu.Lock()
	entries := make([]progressEntry, len(r.progress))
	copy(entries, r.progress)
	r.mu.Unlock()

	for _, e := range entries {
		safeInvoke("进度监听器", func() { e.fn(data) })
	}
}

// notifyAnomaly 分发异常检测事件
func (r *listenerRegistry) notifyAnomaly(anomaly models.AnomalyAlert) {
	r.mu.Lock()
	entries := make([]anomalyEntry, len(r.anomaly))
	copy(entries, r.anomaly)
	r.mu.Unlock()

	for _, e := range entries {
		safeInvoke("异常监听器", func() { e.fn(anomaly) })
	}
}

// notifyHealth 分发健康状态事件
func (r *listenerRegistry) notifyHealth(health models.SystemHealth) {
	r.mu.Lock()
	entries := make([]healthEntry, len(r.health))
	copy(entries, r.health)
	r.mu.Unlock()

	for _, e := range entries {
		safeInvoke("健康状态监听器", func() { e.fn(health) })
	}
}

// clear 清空所有监听器
func (r *listenerRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = nil
	r.anomaly = nil
	r.health = nil
}

// safeInvoke 隔离单个监听器的panic，保证分发不被中断
func safeInvoke(name string, fn func()) {
	defer func() {
		if err := recover(); err != nil {
			slog.Error(name+"执行错误", "error", err)
		}
	}()
	fn()
}
