/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fontpack-service/service/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.SnapshotRecord{},
		&models.AnomalyRecord{},
		&models.SSEEvent{},
		&models.SSEConnection{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"progress_snapshots",
		"anomaly_records",
		"sse_events",
		"sse_connections",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// SnapshotRecordOption 快照记录选项函数类型
type SnapshotRecordOption func(*models.SnapshotRecord)

// CreateSnapshotRecord 创建测试快照记录
func (f *TestDataFactory) CreateSnapshotRecord(packageID int, opts ...SnapshotRecordOption) *models.SnapshotRecord {
	record := &models.SnapshotRecord{
		PackageID:           packageID,
		Percentage:          42.5,
		PhaseName:           "模型训练",
		CharactersCompleted: 4,
		CharactersTotal:     10,
		TrainingSpeed:       18.3,
		MemoryUsage:         65.0,
		GPUUtilization:      88.0,
		HealthStatus:        "healthy",
		Snapshot:            models.JSONB{"percentage": 42.5},
		CreatedAt:           time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(record)
	}

	err := f.DB.Create(record).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test snapshot record: %v", err))
	}

	return record
}

// AnomalyRecordOption 异常记录选项函数类型
type AnomalyRecordOption func(*models.AnomalyRecord)

// CreateAnomalyRecord 创建测试异常记录
func (f *TestDataFactory) CreateAnomalyRecord(packageID int, opts ...AnomalyRecordOption) *models.AnomalyRecord {
	record := &models.AnomalyRecord{
		PackageID:      packageID,
		Type:           "performance",
		Severity:       "medium",
		Message:        "训练速度低于预期",
		AlertTimestamp: time.Now().Format(time.RFC3339Nano),
		Resolved:       false,
		CreatedAt:      time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(record)
	}

	err := f.DB.Create(record).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test anomaly record: %v", err))
	}

	return record
}

// SSEEventOption SSE事件选项函数类型
type SSEEventOption func(*models.SSEEvent)

// CreateSSEEvent 创建测试SSE事件
func (f *TestDataFactory) CreateSSEEvent(userName string, opts ...SSEEventOption) *models.SSEEvent {
	event := &models.SSEEvent{
		EventType: "progress_update",
		UserName:  userName,
		Data:      models.JSONB{"percentage": 10.0},
		Sent:      true,
		CreatedAt: time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(event)
	}

	err := f.DB.Create(event).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test sse event: %v", err))
	}

	return event
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
