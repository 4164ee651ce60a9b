/*
 * @module api/controllers/progress_controller
 * @description 训练进度监控控制器，提供监控会话管理、进度查询、异常处理和快照历史API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow HTTP请求 -> 监控器操作 -> 响应返回
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies fontpack-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs ../../service/progress/monitor.go
 */

package controllers

import (
	"context"
	"net/http"
	"time"

	"fontpack-service/service/cache"
	"fontpack-service/service/models"
	"fontpack-service/service/progress"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"
)

// ProgressController 训练进度监控控制器
type ProgressController struct {
	monitor       *progress.Monitor
	store         *progress.SnapshotStore
	snapshotCache *cache.SnapshotCache
}

// NewProgressController 创建进度监控控制器实例
func NewProgressController(monitor *progress.Monitor, store *progress.SnapshotStore, snapshotCache *cache.SnapshotCache) *ProgressController {
	return &ProgressController{
		monitor:       monitor,
		store:         store,
		snapshotCache: snapshotCache,
	}
}

// StartMonitoring 开始监控
// @Summary 开始监控字体包训练
// @Description 启动指定字体包的训练进度监控，对同一字体包重复调用为幂等操作
// @Tags 进度监控
// @Accept json
// @Produce json
// @Param package_id path int true "字体包ID"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /monitoring/{package_id}/start [post]
func (c *ProgressController) StartMonitoring(w http.ResponseWriter, r *http.Request) {
	packageID := cast.ToInt(chi.URLParam(r, "package_id"))
	if packageID <= 0 {
		render.Render(w, r, BadRequestResponse("无效的字体包ID", nil))
		return
	}

	c.monitor.StartMonitoring(packageID)

	render.Render(w, r, SuccessResponse("监控已启动", map[string]interface{}{
		"package_id": packageID,
	}))
}

// StopMonitoring 停止监控
// @Summary 停止训练监控
// @Description 停止当前的训练进度监控，重复调用为幂等操作
// @Tags 进度监控
// @Produce json
// @Success 200 {object} APIResponse
// @Router /monitoring/stop [post]
func (c *ProgressController) StopMonitoring(w http.ResponseWriter, r *http.Request) {
	c.monitor.StopMonitoring()
	render.Render(w, r, SuccessResponse("监控已停止", nil))
}

// GetMonitoringStatus 获取监控状态
// @Summary 获取监控状态
// @Description 获取当前监控会话状态和监控中的字体包ID
// @Tags 进度监控
// @Produce json
// @Success 200 {object} APIResponse
// @Router /monitoring/status [get]
func (c *ProgressController) GetMonitoringStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"is_monitoring": c.monitor.IsMonitoring(),
	}
	if packageID, ok := c.monitor.CurrentPackageID(); ok {
		status["package_id"] = packageID
	}

	render.Render(w, r, SuccessResponse("获取监控状态成功", status))
}

// GetProgress 获取总体进度
// @Summary 获取总体训练进度
// @Description 获取当前总体进度、训练阶段和字符完成情况
// @Tags 进度监控
// @Produce json
// @Success 200 {object} APIResponse
// @Router /monitoring/progress [get]
func (c *ProgressController) GetProgress(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, SuccessResponse("获取进度成功", c.monitor.OverallProgress()))
}

// GetCharacterProgress 获取字符进度
// @Summary 获取字符级训练进度
// @Description 获取本次会话中每个字符的训练状态、进度和质量评分
// @Tags 进度监控
// @Produce json
// @Success 200 {object} APIResponse
// @Router /monitoring/characters [get]
func (c *ProgressController) GetCharacterProgress(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, SuccessResponse("获取字符进度成功", c.monitor.CharacterProgress()))
}

// GetMetrics 获取性能指标
// @Summary 获取训练性能指标
// @Description 获取训练速度、内存使用率和GPU利用率
// @Tags 进度监控
// @Produce json
// @Success 200 {object} APIResponse
// @Router /monitoring/metrics [get]
func (c *ProgressController) GetMetrics(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, SuccessResponse("获取性能指标成功", c.monitor.PerformanceMetrics()))
}

// GetHealth 获取健康状态
// @Summary 获取训练健康状态
// @Description 获取由活跃异常派生的系统健康状态
// @Tags 进度监控
// @Produce json
// @Success 200 {object} APIResponse
// @Router /monitoring/health [get]
func (c *ProgressController) GetHealth(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, SuccessResponse("获取健康状态成功", c.monitor.HealthStatus()))
}

// GetSnapshot 获取当前快照
// @Summary 获取当前进度快照
// @Description 获取总体进度、性能指标和健康状态的即时快照
// @Tags 进度监控
// @Produce json
// @Success 200 {object} APIResponse
// @Router /monitoring/snapshot [get]
func (c *ProgressController) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, SuccessResponse("获取快照成功", c.monitor.Snapshot()))
}

// GetLatestSnapshot 获取最新缓存快照
// @Summary 获取最新归档快照
// @Description 优先从缓存读取指定字体包的最新归档快照
// @Tags 进度监控
// @Produce json
// @Param package_id path int true "字体包ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse "快照不存在"
// @Router /monitoring/{package_id}/snapshot/latest [get]
func (c *ProgressController) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	packageID := cast.ToInt(chi.URLParam(r, "package_id"))
	if packageID <= 0 {
		render.Render(w, r, BadRequestResponse("无效的字体包ID", nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	snapshot, hit, err := c.snapshotCache.GetLatest(ctx, packageID)
	if err != nil {
		render.Render(w, r, InternalErrorResponse("读取快照缓存失败", err))
		return
	}
	if !hit {
		render.Render(w, r, NotFoundResponse("快照不存在"))
		return
	}

	render.Render(w, r, SuccessResponse("获取最新快照成功", snapshot))
}

// ListSnapshots 获取快照历史
// @Summary 获取快照历史
// @Description 分页获取指定字体包的归档快照历史
// @Tags 进度监控
// @Produce json
// @Param package_id path int true "字体包ID"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Success 200 {object} APIResponse{data=SnapshotListResponse}
// @Router /monitoring/{package_id}/snapshots [get]
func (c *ProgressController) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	packageID := cast.ToInt(chi.URLParam(r, "package_id"))
	if packageID <= 0 {
		render.Render(w, r, BadRequestResponse("无效的字体包ID", nil))
		return
	}

	page, size := parsePagination(r)

	records, total, err := c.store.ListSnapshots(packageID, page, size)
	if err != nil {
		render.Render(w, r, InternalErrorResponse("查询快照历史失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取快照历史成功", SnapshotListResponse{
		List:  records,
		Total: total,
		Page:  page,
		Size:  size,
	}))
}

// GetAnomalies 获取活跃异常列表
// @Summary 获取活跃异常告警
// @Description 获取当前所有未解决的异常告警
// @Tags 异常管理
// @Produce json
// @Success 200 {object} APIResponse
// @Router /monitoring/anomalies [get]
func (c *ProgressController) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, SuccessResponse("获取异常列表成功", c.monitor.Anomalies()))
}

// AddAnomaly 添加异常告警
// @Summary 添加异常告警
// @Description 手动添加一条异常告警，时间戳重复时拒绝
// @Tags 异常管理
// @Accept json
// @Produce json
// @Param request body AddAnomalyRequest true "异常告警"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "请求参数错误或时间戳重复"
// @Router /monitoring/anomalies [post]
func (c *ProgressController) AddAnomaly(w http.ResponseWriter, r *http.Request) {
	var req AddAnomalyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	if req.Message == "" {
		render.Render(w, r, BadRequestResponse("告警信息不能为空", nil))
		return
	}

	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = time.Now().Format(time.RFC3339Nano)
	}

	anomaly := models.AnomalyAlert{
		Type:      models.AnomalyType(req.Type),
		Severity:  models.AnomalySeverity(req.Severity),
		Message:   req.Message,
		Timestamp: timestamp,
	}

	if !c.monitor.AddAnomaly(anomaly) {
		render.Render(w, r, BadRequestResponse("异常时间戳已存在", nil))
		return
	}

	render.Render(w, r, SuccessResponse("异常告警已添加", map[string]interface{}{
		"timestamp": timestamp,
	}))
}

// ResolveAnomaly 解决异常告警
// @Summary 解决异常告警
// @Description 按时间戳解决指定异常告警，返回已标记解决的告警副本
// @Tags 异常管理
// @Accept json
// @Produce json
// @Param request body ResolveAnomalyRequest true "解决请求"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse "异常不存在"
// @Router /monitoring/anomalies/resolve [post]
func (c *ProgressController) ResolveAnomaly(w http.ResponseWriter, r *http.Request) {
	var req ResolveAnomalyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	if req.Timestamp == "" {
		render.Render(w, r, BadRequestResponse("时间戳不能为空", nil))
		return
	}

	resolved := c.monitor.ResolveAnomaly(req.Timestamp)
	if resolved == nil {
		render.Render(w, r, NotFoundResponse("异常不存在"))
		return
	}

	// 历史记录同步更新，失败不影响内存状态
	if err := c.store.MarkAnomalyResolved(req.Timestamp); err != nil {
		render.Render(w, r, SuccessResponse("异常已解决（历史记录更新失败）", resolved))
		return
	}

	render.Render(w, r, SuccessResponse("异常已解决", resolved))
}

// ListAnomalyHistory 获取异常历史
// @Summary 获取异常历史记录
// @Description 分页获取指定字体包的异常历史，支持按解决状态过滤
// @Tags 异常管理
// @Produce json
// @Param package_id path int true "字体包ID"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param resolved query bool false "解决状态过滤"
// @Success 200 {object} APIResponse{data=AnomalyListResponse}
// @Router /monitoring/{package_id}/anomalies/history [get]
func (c *ProgressController) ListAnomalyHistory(w http.ResponseWriter, r *http.Request) {
	packageID := cast.ToInt(chi.URLParam(r, "package_id"))
	if packageID <= 0 {
		render.Render(w, r, BadRequestResponse("无效的字体包ID", nil))
		return
	}

	page, size := parsePagination(r)

	var resolved *bool
	if resolvedStr := r.URL.Query().Get("resolved"); resolvedStr != "" {
		val := cast.ToBool(resolvedStr)
		resolved = &val
	}

	records, total, err := c.store.ListAnomalies(packageID, page, size, resolved)
	if err != nil {
		render.Render(w, r, InternalErrorResponse("查询异常历史失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取异常历史成功", AnomalyListResponse{
		List:  records,
		Total: total,
		Page:  page,
		Size:  size,
	}))
}

// ResetProgress 重置进度数据
// @Summary 重置进度数据
// @Description 将所有进度数据恢复到初始状态
// @Tags 进度监控
// @Produce json
// @Success 200 {object} APIResponse
// @Router /monitoring/reset [post]
func (c *ProgressController) ResetProgress(w http.ResponseWriter, r *http.Request) {
	c.monitor.ResetProgressData()
	render.Render(w, r, SuccessResponse("进度数据已重置", nil))
}

// parsePagination 解析分页参数
func parsePagination(r *http.Request) (page, size int) {
	page = cast.ToInt(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	size = cast.ToInt(r.URL.Query().Get("size"))
	if size <= 0 || size > 100 {
		size = 10
	}
	return page, size
}

// === 请求和响应结构体 ===

// AddAnomalyRequest 添加异常请求
type AddAnomalyRequest struct {
	Type      string `json:"type" example:"performance"`
	Severity  string `json:"severity" example:"medium"`
	Message   string `json:"message" example:"训练速度低于预期"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ResolveAnomalyRequest 解决异常请求
type ResolveAnomalyRequest struct {
	Timestamp string `json:"timestamp"`
}

// SnapshotListResponse 快照历史列表响应结构
type SnapshotListResponse struct {
	List  []models.SnapshotRecord `json:"list"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Size  int                     `json:"size"`
}

// AnomalyListResponse 异常历史列表响应结构
type AnomalyListResponse struct {
	List  []models.AnomalyRecord `json:"list"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Size  int                    `json:"size"`
}
