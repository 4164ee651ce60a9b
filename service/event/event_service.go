/*
 * @module service/event/event_service
 * @description 事件管理服务，提供SSE事件推送、连接管理和训练监控事件转发功能
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 监控器事件 -> 事件封装 -> 持久化 -> 客户端推送
 * @rules 确保事件的实时性和可靠性，队列满时丢弃而非阻塞推送
 * @dependencies fontpack-service/service/models, fontpack-service/service/progress, gorm.io/gorm
 * @refs ../../api/controllers/event_controller.go
 */

package event

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"fontpack-service/service/models"
	"fontpack-service/service/progress"

	"gorm.io/gorm"
)

// 训练监控事件类型
const (
	EventTypeProgressUpdate = "progress_update"
	EventTypeAnomalyAlert   = "anomaly_alert"
	EventTypeHealthStatus   = "health_status"
)

// EventService 事件管理服务
type EventService struct {
	db          *gorm.DB
	connections map[string]map[string]*SSEClient // userName -> connectionID -> client
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc

	detachMonitor []func()
}

// SSEClient SSE客户端连接
type SSEClient struct {
	ID       string
	UserName string
	Channel  chan *models.SSEEvent
	Done     chan bool
	ClientIP string
}

// NewEventService 创建事件服务实例
func NewEventService(db *gorm.DB) *EventService {
	ctx, cancel := context.WithCancel(context.Background())

	service := &EventService{
		db:          db,
		connections: make(map[string]map[string]*SSEClient),
		ctx:         ctx,
		cancel:      cancel,
	}

	// 启动连接清理器
	go service.startConnectionCleaner()

	return service
}

// AttachMonitor 订阅监控器的进度、异常和健康事件并广播给SSE客户端
func (s *EventService) AttachMonitor(monitor *progress.Monitor) {
	removeProgress := monitor.OnProgressUpdate(func(data models.ProgressData) {
		s.BroadcastEvent(&models.SSEEvent{
			EventType: EventTypeProgressUpdate,
			Data: models.JSONB{
				"percentage":           data.Percentage,
				"current_phase":        data.CurrentPhase,
				"characters_completed": data.CharactersCompleted,
				"characters_total":     data.CharactersTotal,
				"current_character":    data.CurrentCharacter,
			},
		})
	})

	removeAnomaly := monitor.OnAnomalyDetected(func(anomaly models.AnomalyAlert) {
		s.BroadcastEvent(&models.SSEEvent{
			EventType: EventTypeAnomalyAlert,
			Data: models.JSONB{
				"type":      string(anomaly.Type),
				"severity":  string(anomaly.Severity),
				"message":   anomaly.Message,
				"timestamp": anomaly.Timestamp,
			},
		})
	})

	removeHealth := monitor.OnHealthStatusChange(func(health models.SystemHealth) {
		s.BroadcastEvent(&models.SSEEvent{
			EventType: EventTypeHealthStatus,
			Data: models.JSONB{
				"status":     string(health.Status),
				"issues":     health.Issues,
				"last_check": health.LastCheck,
			},
		})
	})

	s.mu.Lock()
	s.detachMonitor = append(s.detachMonitor, removeProgress, removeAnomaly, removeHealth)
	s.mu.Unlock()
}

// === SSE连接管理 ===

// AddSSEConnection 添加SSE连接
func (s *EventService) AddSSEConnection(userName, connectionID, clientIP string) *SSEClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connections[userName] == nil {
		s.connections[userName] = make(map[string]*SSEClient)
	}

	client := &SSEClient{
		ID:       connectionID,
		UserName: userName,
		Channel:  make(chan *models.SSEEvent, 100), // 缓冲100个事件
		Done:     make(chan bool),
		ClientIP: clientIP,
	}

	s.connections[userName][connectionID] = client

	// 记录连接到数据库
	connection := &models.SSEConnection{
		UserName:     userName,
		ConnectionID: connectionID,
		ClientIP:     clientIP,
		ConnectedAt:  time.Now(),
		IsActive:     true,
	}
	s.db.Create(connection)

	log.Printf("SSE连接已建立: 用户=%s, 连接ID=%s, IP=%s", userName, connectionID, clientIP)
	return client
}

// RemoveSSEConnection 移除SSE连接
func (s *EventService) RemoveSSEConnection(userName, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userConnections, exists := s.connections[userName]; exists {
		if client, exists := userConnections[connectionID]; exists {
			close(client.Done)
			delete(userConnections, connectionID)

			if len(userConnections) == 0 {
				delete(s.connections, userName)
			}

			// 更新数据库连接状态
			s.db.Model(&models.SSEConnection{}).
				Where("connection_id = ?", connectionID).
				Update("is_active", false)

			log.Printf("SSE连接已断开: 用户=%s, 连接ID=%s", userName, connectionID)
		}
	}
}

// SendEventToUser 向指定用户发送事件
func (s *EventService) SendEventToUser(userName string, event *models.SSEEvent) error {
	s.mu.RLock()
	userConnections, exists := s.connections[userName]
	s.mu.RUnlock()

	if !exists {
		log.Printf("用户 %s 没有活跃的SSE连接", userName)
		return fmt.Errorf("用户 %s 没有活跃的SSE连接", userName)
	}

	event.UserName = userName
	event.Sent = true

	// 保存事件到数据库
	if err := s.db.Create(event).Error; err != nil {
		log.Printf("保存SSE事件失败: %v", err)
		return err
	}

	// 向所有连接发送事件
	for _, client := range userConnections {
		select {
		case client.Channel <- event:
		default:
			log.Printf("用户 %s 的连接 %s 事件队列已满，跳过发送", userName, client.ID)
		}
	}

	return nil
}

// BroadcastEvent 广播事件给所有用户
func (s *EventService) BroadcastEvent(event *models.SSEEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if event.UserName == "" {
		event.UserName = "broadcast"
	}
	event.Sent = true

	// 保存事件到数据库
	if err := s.db.Create(event).Error; err != nil {
		log.Printf("保存广播事件失败: %v", err)
		return err
	}

	for userName, userConnections := range s.connections {
		for _, client := range userConnections {
			eventCopy := *event
			eventCopy.UserName = userName

			select {
			case client.Channel <- &eventCopy:
			default:
				log.Printf("用户 %s 的连接 %s 事件队列已满，跳过广播", userName, client.ID)
			}
		}
	}

	return nil
}

// startConnectionCleaner 启动连接清理器
func (s *EventService) startConnectionCleaner() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupInactiveConnections()
		case <-s.ctx.Done():
			log.Println("连接清理器已停止")
			return
		}
	}
}

// cleanupInactiveConnections 清理不活跃的连接
func (s *EventService) cleanupInactiveConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userName, userConnections := range s.connections {
		for connectionID, client := range userConnections {
			select {
			case <-client.Done:
				delete(userConnections, connectionID)
				log.Printf("清理已断开的连接: 用户=%s, 连接ID=%s", userName, connectionID)
			default:
				// 连接仍然活跃
			}
		}

		if len(userConnections) == 0 {
			delete(s.connections, userName)
		}
	}
}

// Stop 停止事件服务
func (s *EventService) Stop() {
	s.cancel()

	s.mu.Lock()
	for _, detach := range s.detachMonitor {
		detach()
	}
	s.detachMonitor = nil

	// 关闭所有SSE连接
	for _, userConnections := range s.connections {
		for _, client := range userConnections {
			close(client.Done)
		}
	}
	s.connections = make(map[string]map[string]*SSEClient)
	s.mu.Unlock()

	log.Println("事件服务已停止")
}

// GetSSEConnectionList 获取SSE连接列表
func (s *EventService) GetSSEConnectionList(page, pageSize int, userName, clientIP string, isActive *bool) ([]models.SSEConnection, int64, error) {
	var connections []models.SSEConnection
	var total int64

	query := s.db.Model(&models.SSEConnection{})

	if userName != "" {
		query = query.Where("user_name = ?", userName)
	}
	if clientIP != "" {
		query = query.Where("client_ip = ?", clientIP)
	}
	if isActive != nil {
		query = query.Where("is_active = ?", *isActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("connected_at DESC").
		Offset(offset).Limit(pageSize).Find(&connections).Error

	return connections, total, err
}

// GetEventHistoryList 获取事件历史列表
func (s *EventService) GetEventHistoryList(page, pageSize int, userName, eventType string, sent *bool) ([]models.SSEEvent, int64, error) {
	var events []models.SSEEvent
	var total int64

	query := s.db.Model(&models.SSEEvent{})

	if userName != "" {
		query = query.Where("user_name = ?", userName)
	}
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}
	if sent != nil {
		query = query.Where("sent = ?", *sent)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").
		Offset(offset).Limit(pageSize).Find(&events).Error

	return events, total, err
}
