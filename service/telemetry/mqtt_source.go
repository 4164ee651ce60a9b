/*
 * @module service/telemetry/mqtt_source
 * @description MQTT遥测数据源，订阅真实训练节点上报的遥测消息并写入进度监控器
 * @architecture 事件驱动架构 - 数据接入层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 连接broker -> 订阅主题 -> 解析消息 -> 更新监控器状态
 * @rules MQTT_BROKER未配置时数据源不启用；非法消息记录日志后丢弃
 * @dependencies github.com/eclipse/paho.mqtt.golang, github.com/spf13/cast, fontpack-service/service/progress
 * @refs ../progress/monitor.go
 */

package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cast"

	"fontpack-service/service/models"
	"fontpack-service/service/progress"
)

// 遥测主题
const (
	topicProgress = "fontpack/training/+/progress"
	topicMetrics  = "fontpack/training/+/metrics"
	topicAnomaly  = "fontpack/training/+/anomaly"
)

// MQTTSource MQTT遥测数据源
type MQTTSource struct {
	client  mqtt.Client
	monitor *progress.Monitor
	broker  string
	qos     byte
}

// NewMQTTSourceFromEnv 从环境变量创建MQTT遥测数据源，MQTT_BROKER未配置时返回nil
func NewMQTTSourceFromEnv(monitor *progress.Monitor) *MQTTSource {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		slog.Info("未配置MQTT_BROKER，遥测数据源未启用")
		return nil
	}

	port := cast.ToInt(os.Getenv("MQTT_PORT"))
	if port <= 0 {
		port = 1883
	}

	return &MQTTSource{
		monitor: monitor,
		broker:  fmt.Sprintf("tcp://%s:%d", broker, port),
		qos:     1,
	}
}

// Start 连接broker并订阅遥测主题
func (s *MQTTSource) Start() error {
	if s == nil {
		return nil
	}

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = "fontpack-telemetry"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.broker)
	opts.SetClientID(clientID)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)

	if username := os.Getenv("MQTT_USERNAME"); username != "" {
		opts.SetUsername(username)
		opts.SetPassword(os.Getenv("MQTT_PASSWORD"))
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		slog.Error("MQTT遥测连接丢失", "error", err)
	})

	s.client = mqtt.NewClient(opts)

	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("连接MQTT broker失败: %v", token.Error())
	}

	subscriptions := map[string]mqtt.MessageHandler{
		topicProgress: s.handleProgressMessage,
		topicMetrics:  s.handleMetricsMessage,
		topicAnomaly:  s.handleAnomalyMessage,
	}
	for topic, handler := range subscriptions {
		if token := s.client.Subscribe(topic, s.qos, handler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("订阅主题 %s 失败: %v", topic, token.Error())
		}
	}

	slog.Info("MQTT遥测数据源已启动", "broker", s.broker, "client_id", clientID)
	return nil
}

// handleProgressMessage 处理进度遥测消息
func (s *MQTTSource) handleProgressMessage(client mqtt.Client, msg mqtt.Message) {
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		slog.Error("解析进度遥测消息失败", "topic", msg.Topic(), "error", err)
		return
	}

	patch := models.ProgressPatch{}
	if v, ok := payload["percentage"]; ok {
		p := cast.ToFloat64(v)
		patch.Percentage = &p
	}
	if v, ok := payload["characters_completed"]; ok {
		c := cast.ToInt(v)
		patch.CharactersCompleted = &c
	}
	if v, ok := payload["current_character"]; ok {
		ch := cast.ToString(v)
		patch.CurrentCharacter = &ch
	}
	if v, ok := payload["estimated_time_remaining"]; ok {
		t := cast.ToFloat64(v)
		patch.EstimatedTimeRemaining = &t
	}

	s.monitor.UpdateOverallProgress(patch)
}

// handleMetricsMessage 处理性能指标遥测消息
func (s *MQTTSource) handleMetricsMessage(client mqtt.Client, msg mqtt.Message) {
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		slog.Error("解析指标遥测消息失败", "topic", msg.Topic(), "error", err)
		return
	}

	patch := models.PerformanceMetricsPatch{}
	if v, ok := payload["training_speed"]; ok {
		speed := cast.ToFloat64(v)
		patch.TrainingSpeed = &speed
	}
	if v, ok := payload["memory_usage"]; ok {
		mem := cast.ToFloat64(v)
		patch.MemoryUsage = &mem
	}
	if v, ok := payload["gpu_utilization"]; ok {
		gpu := cast.ToFloat64(v)
		patch.GPUUtilization = &gpu
	}
	if v, ok := payload["estimated_completion"]; ok {
		eta := cast.ToString(v)
		patch.EstimatedCompletion = &eta
	}

	s.monitor.UpdatePerformanceMetrics(patch)
}

// handleAnomalyMessage 处理异常告警遥测消息
func (s *MQTTSource) handleAnomalyMessage(client mqtt.Client, msg mqtt.Message) {
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		slog.Error("解析异常遥测消息失败", "topic", msg.Topic(), "error", err)
		return
	}

	timestamp := cast.ToString(payload["timestamp"])
	if timestamp == "" {
		timestamp = time.Now().Format(time.RFC3339Nano)
	}

	anomaly := models.AnomalyAlert{
		Type:      models.AnomalyType(cast.ToString(payload["type"])),
		Severity:  models.AnomalySeverity(cast.ToString(payload["severity"])),
		Message:   cast.ToString(payload["message"]),
		Timestamp: timestamp,
	}

	if !s.monitor.AddAnomaly(anomaly) {
		slog.Warn("丢弃重复时间戳的异常遥测", "timestamp", timestamp)
	}
}

// Stop 断开MQTT连接
func (s *MQTTSource) Stop() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Disconnect(250)
	slog.Info("MQTT遥测数据源已停止")
}
