/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs controllers/
 */

package api

import (
	"fontpack-service/api/controllers"
	"fontpack-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// SSE事件订阅
	eventController := controllers.NewEventController(service.GlobalEventService)
	r.Get("/sse/{user_name}", eventController.HandleSSE)

	// 事件管理
	r.Route("/events", func(r chi.Router) {
		r.Post("/send", eventController.SendEvent)
		r.Post("/broadcast", eventController.BroadcastEvent)
		r.Get("/connections", eventController.GetSSEConnectionList)
		r.Get("/history", eventController.GetEventHistoryList)
	})

	// 训练进度监控
	r.Route("/monitoring", func(r chi.Router) {
		progressController := controllers.NewProgressController(
			service.GlobalMonitor, service.GlobalSnapshotStore, service.GlobalSnapshotCache)

		// 会话管理
		r.Post("/{package_id}/start", progressController.StartMonitoring)
		r.Post("/stop", progressController.StopMonitoring)
		r.Get("/status", progressController.GetMonitoringStatus)
		r.Post("/reset", progressController.ResetProgress)

		// 进度查询
		r.Get("/progress", progressController.GetProgress)
		r.Get("/characters", progressController.GetCharacterProgress)
		r.Get("/metrics", progressController.GetMetrics)
		r.Get("/health", progressController.GetHealth)
		r.Get("/snapshot", progressController.GetSnapshot)

		// 快照历史
		r.Get("/{package_id}/snapshot/latest", progressController.GetLatestSnapshot)
		r.Get("/{package_id}/snapshots", progressController.ListSnapshots)

		// 异常管理
		r.Get("/anomalies", progressController.GetAnomalies)
		r.Post("/anomalies", progressController.AddAnomaly)
		r.Post("/anomalies/resolve", progressController.ResolveAnomaly)
		r.Get("/{package_id}/anomalies/history", progressController.ListAnomalyHistory)
	})

	// 训练基础设施监控
	r.Route("/infra", func(r chi.Router) {
		infraController := controllers.NewInfraController()
		r.Get("/nodes", infraController.GetTrainingNodes)
		r.Get("/nodes/{node}/gpu", infraController.GetNodeGPUMetrics)
		r.Get("/nodes/{node}/memory", infraController.GetNodeMemoryRange)
		r.Get("/packages/{package_id}/logs", infraController.GetTrainingLogs)
	})
}
