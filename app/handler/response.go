package handler

import (
	"bili-downloader/app/bilibili"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ApiResponse 统一的接口响应结构
type ApiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ResponseHelper 响应辅助结构体
type ResponseHelper struct{}

// NewResponseHelper 创建响应辅助实例
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success 创建成功响应
func (r *ResponseHelper) Success(data any, message string) ApiResponse {
	return ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	}
}

// Error 创建错误响应
func (r *ResponseHelper) Error(errorCode int, message string) ApiResponse {
	return ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	}
}

var response = NewResponseHelper()

func success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, response.Success(data, message))
}

func fail(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, response.Error(statusCode, message))
}

// failWithError 按错误类型返回对应的状态码，data 中带上错误码和详情
func failWithError(c *gin.Context, err error) {
	status := bilibili.HTTPStatus(err)
	body := response.Error(status, err.Error())
	data := gin.H{"error": bilibili.ErrorCode(err)}
	var e *bilibili.Error
	if errors.As(err, &e) && len(e.Details) > 0 {
		data["details"] = e.Details
	}
	body.Data = data
	c.JSON(status, body)
}
