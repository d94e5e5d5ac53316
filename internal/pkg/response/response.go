package response

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/cafe_sub_server/internal/pkg/apperr"
)

// 错误码定义
const (
	CodeSuccess            = 0
	CodeParamError         = 1000
	CodeAuthFailed         = 1001
	CodePermissionDenied   = 1002
	CodeResourceNotFound   = 1003
	CodeQuotaExceeded      = 1004
	CodeDuplicateAction    = 1005
	CodeNoActivePlan       = 1006
	CodeConflict           = 1007
	CodeDecodeError        = 1008
	CodeServerError        = 5000
	CodeServiceUnavailable = 5003
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:            "success",
	CodeParamError:         "参数错误",
	CodeAuthFailed:         "认证失败",
	CodePermissionDenied:   "权限不足",
	CodeResourceNotFound:   "资源不存在",
	CodeQuotaExceeded:      "今日已兑换",
	CodeDuplicateAction:    "重复操作",
	CodeNoActivePlan:       "没有有效套餐",
	CodeConflict:           "支付尚未确认",
	CodeDecodeError:        "无法解析",
	CodeServerError:        "服务器内部错误",
	CodeServiceUnavailable: "服务暂不可用，请稍后重试",
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ParamError 参数错误
func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

// AuthError 认证失败
func AuthError(c *gin.Context, message string) {
	Error(c, CodeAuthFailed, message)
}

// PermissionError 权限不足
func PermissionError(c *gin.Context, message string) {
	Error(c, CodePermissionDenied, message)
}

// NotFoundError 资源不存在
func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeResourceNotFound, message)
}

// ServerError 服务器错误
func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

// FromError 按业务错误分类输出对应的错误码
func FromError(c *gin.Context, err error) {
	code := CodeOf(err)
	if code == CodeServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		Error(c, code, "")
		return
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		Error(c, code, appErr.Error())
		return
	}
	Error(c, code, err.Error())
}

// CodeOf 业务错误对应的错误码
func CodeOf(err error) int {
	switch {
	case err == nil:
		return CodeSuccess
	case errors.Is(err, apperr.ErrQuotaExceeded):
		return CodeQuotaExceeded
	case errors.Is(err, apperr.ErrNoActiveSubscription):
		return CodeNoActivePlan
	}

	switch apperr.CategoryOf(err) {
	case apperr.ErrValidation:
		return CodeParamError
	case apperr.ErrUnauthorized:
		return CodeAuthFailed
	case apperr.ErrForbidden:
		return CodePermissionDenied
	case apperr.ErrNotFound:
		return CodeResourceNotFound
	case apperr.ErrConflict:
		return CodeConflict
	case apperr.ErrDecode:
		return CodeDecodeError
	case apperr.ErrTransient:
		return CodeServiceUnavailable
	default:
		return CodeServerError
	}
}
