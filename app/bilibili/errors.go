package bilibili

import (
	"errors"
	"fmt"
	"net/http"
)

// Error 解析与下载规划过程中的业务错误
type Error struct {
	Code    string         // 机器可读的错误码
	Message string         // 面向用户的描述
	Cause   error          // 底层错误
	Details map[string]any // 便于日志记录的上下文（id、错误码、尝试过的解析方式等）
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误码比较，配合 errors.Is(err, ErrXxx) 使用
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// 预定义错误类型，仅用于 errors.Is 比较
var (
	ErrUnsupportedURL    = &Error{Code: "UNSUPPORTED_URL", Message: "不支持的链接"}
	ErrMetadataNotFound  = &Error{Code: "METADATA_NOT_FOUND", Message: "未找到视频数据"}
	ErrMetadataMalformed = &Error{Code: "METADATA_MALFORMED", Message: "视频数据格式错误"}
	ErrAuthProbeFailed   = &Error{Code: "AUTH_PROBE_FAILED", Message: "登录状态检查失败"}
	ErrQualityNotAllowed = &Error{Code: "QUALITY_NOT_ALLOWED", Message: "无权限访问该清晰度"}
	ErrPlatformRejected  = &Error{Code: "PLATFORM_REJECTED", Message: "接口返回错误"}
	ErrStreamDataMissing = &Error{Code: "STREAM_DATA_MISSING", Message: "视频数据缺失，可能是权限不足或视频不存在"}
	ErrPageNotFound      = &Error{Code: "PAGE_NOT_FOUND", Message: "未找到分P数据"}
	ErrTransport         = &Error{Code: "TRANSPORT_ERROR", Message: "请求失败"}
)

func newError(kind *Error, message string, cause error, details map[string]any) *Error {
	if message == "" {
		message = kind.Message
	}
	return &Error{
		Code:    kind.Code,
		Message: message,
		Cause:   cause,
		Details: details,
	}
}

func unsupportedURL(rawURL string) error {
	return newError(ErrUnsupportedURL, fmt.Sprintf("不支持的链接: %s", rawURL), nil, map[string]any{"url": rawURL})
}

// NewUnsupportedURLError 链接无法识别时由调用方构造
func NewUnsupportedURLError(rawURL string) error {
	return unsupportedURL(rawURL)
}

func metadataNotFound(kind PageKind, attempted []string) error {
	return newError(ErrMetadataNotFound,
		fmt.Sprintf("解析 %s 失败: 未找到有效的视频数据", kind.Name()), nil,
		map[string]any{"kind": string(kind), "attempted": attempted})
}

func metadataMalformed(kind PageKind, locator string, cause error) error {
	return newError(ErrMetadataMalformed,
		fmt.Sprintf("解析 %s 失败: %s 数据格式错误", kind.Name(), locator), cause,
		map[string]any{"kind": string(kind), "locator": locator})
}

func qualityNotAllowed(quality int, tier Tier) error {
	return newError(ErrQualityNotAllowed,
		fmt.Sprintf("%s无权限访问%s，请选择其他清晰度或升级会员", tier, QualityLabel(quality)), nil,
		map[string]any{"quality": quality, "tier": int(tier)})
}

func platformRejected(code int, message string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	details["code"] = code
	details["message"] = message
	return newError(ErrPlatformRejected, fmt.Sprintf("API错误: %s (码: %d)", message, code), nil, details)
}

func pageNotFound(page int) error {
	return newError(ErrPageNotFound, fmt.Sprintf("未找到页码 %d 的视频数据", page), nil, map[string]any{"page": page})
}

func transportError(what string, cause error) error {
	return newError(ErrTransport, what+"失败", cause, nil)
}

// ErrorCode 提取错误码，非业务错误返回 UNKNOWN_ERROR
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "UNKNOWN_ERROR"
}

// PlatformCode 提取上游返回的业务错误码
func PlatformCode(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Code == ErrPlatformRejected.Code {
		code, ok := e.Details["code"].(int)
		return code, ok
	}
	return 0, false
}

// HTTPStatus 将错误映射为对外接口的 HTTP 状态码
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnsupportedURL), errors.Is(err, ErrPageNotFound):
		return http.StatusBadRequest
	case errors.Is(err, ErrQualityNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, ErrMetadataNotFound), errors.Is(err, ErrMetadataMalformed),
		errors.Is(err, ErrStreamDataMissing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrPlatformRejected), errors.Is(err, ErrAuthProbeFailed), errors.Is(err, ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
