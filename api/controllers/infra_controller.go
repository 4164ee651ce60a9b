/*
 * @module api/controllers/infra_controller
 * @description 训练基础设施监控控制器，代理查询训练节点的指标和日志
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow HTTP请求 -> VictoriaMetrics/Loki查询 -> 响应返回
 * @rules 查询超时30秒，失败返回统一错误响应
 * @dependencies fontpack-service/monitor_client, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs ../../monitor_client/
 */

package controllers

import (
	"net/http"
	"time"

	"fontpack-service/monitor_client"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"
)

// InfraController 训练基础设施监控控制器
type InfraController struct{}

// NewInfraController 创建基础设施控制器实例
func NewInfraController() *InfraController {
	return &InfraController{}
}

// GetNodeGPUMetrics 获取节点GPU利用率
// @Summary 获取训练节点GPU利用率
// @Description 从指标服务查询指定训练节点的即时GPU利用率
// @Tags 基础设施
// @Produce json
// @Param node path string true "训练节点名称"
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse "查询失败"
// @Router /infra/nodes/{node}/gpu [get]
func (c *InfraController) GetNodeGPUMetrics(w http.ResponseWriter, r *http.Request) {
	node := chi.URLParam(r, "node")
	if node == "" {
		render.Render(w, r, BadRequestResponse("节点名称不能为空", nil))
		return
	}

	result, err := monitor_client.QueryNodeGPUUtilization(r.Context(), node)
	if err != nil {
		render.Render(w, r, InternalErrorResponse("查询GPU指标失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("查询GPU指标成功", result))
}

// GetNodeMemoryRange 获取节点内存使用历史
// @Summary 获取训练节点内存使用历史
// @Description 从指标服务查询指定训练节点一段时间内的内存使用率
// @Tags 基础设施
// @Produce json
// @Param node path string true "训练节点名称"
// @Param hours query int false "查询小时数" default(1)
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse "查询失败"
// @Router /infra/nodes/{node}/memory [get]
func (c *InfraController) GetNodeMemoryRange(w http.ResponseWriter, r *http.Request) {
	node := chi.URLParam(r, "node")
	if node == "" {
		render.Render(w, r, BadRequestResponse("节点名称不能为空", nil))
		return
	}

	hours := cast.ToInt(r.URL.Query().Get("hours"))
	if hours <= 0 {
		hours = 1
	}

	end := time.Now()
	start := end.Add(time.Duration(-hours) * time.Hour)

	result, err := monitor_client.QueryNodeMemoryUsageRange(r.Context(), node, start, end, 15*time.Second)
	if err != nil {
		render.Render(w, r, InternalErrorResponse("查询内存指标失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("查询内存指标成功", result))
}

// GetTrainingLogs 获取训练日志
// @Summary 获取字体包训练日志
// @Description 从日志服务查询指定字体包训练任务最近的日志
// @Tags 基础设施
// @Produce json
// @Param package_id path int true "字体包ID"
// @Param limit query int false "日志条数限制" default(100)
// @Param hours query int false "查询小时数" default(1)
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse "查询失败"
// @Router /infra/packages/{package_id}/logs [get]
func (c *InfraController) GetTrainingLogs(w http.ResponseWriter, r *http.Request) {
	packageID := cast.ToInt(chi.URLParam(r, "package_id"))
	if packageID <= 0 {
		render.Render(w, r, BadRequestResponse("无效的字体包ID", nil))
		return
	}

	limit := cast.ToInt(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	hours := cast.ToInt(r.URL.Query().Get("hours"))

	result, err := monitor_client.LokiTrainingLogs(r.Context(), packageID, limit, hours)
	if err != nil {
		render.Render(w, r, InternalErrorResponse("查询训练日志失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("查询训练日志成功", result))
}

// GetTrainingNodes 获取训练节点列表
// @Summary 获取训练节点列表
// @Description 从日志服务查询当前上报日志的训练节点名称
// @Tags 基础设施
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIResponse "查询失败"
// @Router /infra/nodes [get]
func (c *InfraController) GetTrainingNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := monitor_client.LokiLabelValues(r.Context(), "node")
	if err != nil {
		render.Render(w, r, InternalErrorResponse("查询训练节点失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("查询训练节点成功", nodes))
}
