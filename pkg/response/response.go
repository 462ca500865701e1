// Package response 统一的 HTTP JSON 响应格式
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionpricing/pkg/logger"
)

// Response 响应体
type Response struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success 200 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   "success",
		Data:      data,
		RequestID: logger.RequestID(c.Request.Context()),
	})
}

// ErrorWithStatus 错误响应，code 取 HTTP 状态码
func ErrorWithStatus(c *gin.Context, status int, message, errorCode string) {
	c.AbortWithStatusJSON(status, Response{
		Code:      status,
		Message:   message,
		ErrorCode: errorCode,
		RequestID: logger.RequestID(c.Request.Context()),
	})
}
