/*
 * @module service/event/kafka_publisher
 * @description 异常告警Kafka发布器，将训练异常事件投递到消息队列供下游告警系统消费
 * @architecture 事件驱动架构 - 消息发布层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 异常产生 -> JSON序列化 -> Kafka投递
 * @rules KAFKA_BROKERS未配置时发布器不启用；投递失败记录日志不中断监控
 * @dependencies github.com/segmentio/kafka-go, fontpack-service/service/models
 * @refs event_service.go
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"fontpack-service/service/models"
	"fontpack-service/service/progress"

	"github.com/segmentio/kafka-go"
)

const defaultAnomalyTopic = "fontpack-training-anomalies"

// AnomalyPublisher 异常告警Kafka发布器
type AnomalyPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewAnomalyPublisherFromEnv 从环境变量创建异常发布器，KAFKA_BROKERS未配置时返回nil
func NewAnomalyPublisherFromEnv() *AnomalyPublisher {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		slog.Info("未配置KAFKA_BROKERS，异常Kafka发布器未启用")
		return nil
	}

	topic := os.Getenv("KAFKA_ANOMALY_TOPIC")
	if topic == "" {
		topic = defaultAnomalyTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	}

	slog.Info("异常Kafka发布器初始化成功", "brokers", brokers, "topic", topic)
	return &AnomalyPublisher{writer: writer, topic: topic}
}

// Publish 发布一条异常告警消息
func (p *AnomalyPublisher) Publish(ctx context.Context, packageID int, anomaly models.AnomalyAlert) error {
	if p == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"package_id": packageID,
		"type":       string(anomaly.Type),
		"severity":   string(anomaly.Severity),
		"message":    anomaly.Message,
		"timestamp":  anomaly.Timestamp,
		"resolved":   anomaly.Resolved,
	})
	if err != nil {
		return fmt.Errorf("序列化异常消息失败: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", packageID)),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("投递异常消息失败: %w", err)
	}
	return nil
}

// AttachMonitor 订阅监控器的异常事件并异步投递到Kafka
func (p *AnomalyPublisher) AttachMonitor(monitor *progress.Monitor) func() {
	if p == nil {
		return func() {}
	}

	return monitor.OnAnomalyDetected(func(anomaly models.AnomalyAlert) {
		packageID, ok := monitor.CurrentPackageID()
		if !ok {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := p.Publish(ctx, packageID, anomaly); err != nil {
				slog.Error("发布异常告警到Kafka失败", "error", err)
			}
		}()
	})
}

// Close 关闭Kafka写入器
func (p *AnomalyPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
