/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移和监控相关服务的装配
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 应用启动时执行初始化流程：数据库 -> 迁移 -> 服务装配 -> 调度器启动
 * @rules 数据库不可用时启动失败；Redis、Kafka、MQTT为可选依赖，缺失时对应能力降级
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs ../main.go
 */

package service

import (
	"fmt"
	"log"
	"os"

	"fontpack-service/service/cache"
	"fontpack-service/service/event"
	"fontpack-service/service/metrics"
	"fontpack-service/service/models"
	"fontpack-service/service/progress"
	"fontpack-service/service/scheduler"
	"fontpack-service/service/telemetry"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                     *gorm.DB
	GlobalMonitor          *progress.Monitor
	GlobalSnapshotStore    *progress.SnapshotStore
	GlobalSnapshotCache    *cache.SnapshotCache
	GlobalEventService     *event.EventService
	GlobalAnomalyPublisher *event.AnomalyPublisher
	GlobalMetricsExporter  *metrics.Exporter
	GlobalScheduler        *scheduler.SnapshotScheduler
	GlobalMQTTSource       *telemetry.MQTTSource
)

// Init 执行服务初始化，应用启动时调用一次
func Init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := DB.AutoMigrate(
		&models.SnapshotRecord{},
		&models.AnomalyRecord{},
		&models.SSEEvent{},
		&models.SSEConnection{},
	); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	// 核心监控器
	GlobalMonitor = progress.NewMonitor(progress.DefaultMonitorConfig())
	GlobalSnapshotStore = progress.NewSnapshotStore(DB)

	// 快照缓存（可选）
	var err error
	GlobalSnapshotCache, err = cache.NewSnapshotCache()
	if err != nil {
		log.Printf("快照缓存初始化失败，缓存层已降级: %v", err)
		GlobalSnapshotCache = nil
	}

	// 事件服务，订阅监控器事件推送给SSE客户端
	GlobalEventService = event.NewEventService(DB)
	GlobalEventService.AttachMonitor(GlobalMonitor)

	// 异常Kafka发布器（可选）
	GlobalAnomalyPublisher = event.NewAnomalyPublisherFromEnv()
	GlobalAnomalyPublisher.AttachMonitor(GlobalMonitor)

	// Prometheus指标导出
	GlobalMetricsExporter = metrics.NewExporter()
	GlobalMetricsExporter.Attach(GlobalMonitor)

	// 异常和解决事件持久化为历史记录
	GlobalMonitor.OnAnomalyDetected(func(anomaly models.AnomalyAlert) {
		packageID, ok := GlobalMonitor.CurrentPackageID()
		if !ok {
			return
		}
		if err := GlobalSnapshotStore.RecordAnomaly(packageID, anomaly); err != nil {
			log.Printf("持久化异常记录失败: %v", err)
		}
	})

	// 快照归档调度器
	GlobalScheduler = scheduler.NewSnapshotScheduler(GlobalMonitor, GlobalSnapshotStore, GlobalSnapshotCache)
	if err := GlobalScheduler.Start(); err != nil {
		log.Printf("启动快照归档调度器失败: %v", err)
	}

	// MQTT遥测数据源（可选），配置后以真实遥测替代模拟数据驱动监控器
	GlobalMQTTSource = telemetry.NewMQTTSourceFromEnv(GlobalMonitor)
	if err := GlobalMQTTSource.Start(); err != nil {
		log.Printf("启动MQTT遥测数据源失败: %v", err)
	}

	log.Println("服务初始化完成")
}
