/*
 * @module api/controllers/response
 * @description 统一API响应结构和渲染辅助函数
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/font_training_monitor_impl.md
 * @stateFlow 业务结果 -> 统一响应封装 -> JSON渲染
 * @rules 成功响应status为0，失败响应status为HTTP状态码
 * @dependencies github.com/go-chi/render
 * @refs progress_controller.go, event_controller.go
 */

package controllers

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status"`         // 0表示成功，其他为错误码
	Msg    string      `json:"msg"`            // 提示信息
	Data   interface{} `json:"data,omitempty"` // 响应数据
}

// Render 实现render.Renderer接口
func (a *APIResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, http.StatusOK)
	return nil
}

// SuccessResponse 构建成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{
		Status: 0,
		Msg:    msg,
		Data:   data,
	}
}

// ErrorResponse 构建错误响应
func ErrorResponse(status int, msg string, err error) *APIResponse {
	resp := &APIResponse{
		Status: status,
		Msg:    msg,
	}
	if err != nil {
		resp.Data = err.Error()
	}
	return resp
}

// BadRequestResponse 构建参数错误响应
func BadRequestResponse(msg string, err error) *APIResponse {
	return ErrorResponse(http.StatusBadRequest, msg, err)
}

// NotFoundResponse 构建资源不存在响应
func NotFoundResponse(msg string) *APIResponse {
	return ErrorResponse(http.StatusNotFound, msg, nil)
}

// InternalErrorResponse 构建服务器内部错误响应
func InternalErrorResponse(msg string, err error) *APIResponse {
	return ErrorResponse(http.StatusInternalServerError, msg, err)
}
