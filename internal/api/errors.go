package api

import (
	"errors"
	"strings"

	"github.com/ynhind/open-library-client/internal/constants"
)

var (
	// ErrAuthenticationRequired 本地没有 token，未发起网络请求
	ErrAuthenticationRequired = errors.New(constants.SentinelAuthRequired)
	// ErrTokenExpired 后端判定 token 过期，本地凭证已清除
	ErrTokenExpired = errors.New(constants.SentinelTokenExpired)
)

// Error 后端请求失败（网络错误之外的非 2xx 响应）
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsAuthError 是否认证类错误（缺 token 或 token 过期）
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired) || errors.Is(err, ErrTokenExpired)
}

// IsNotVerified 后端提示账号未验证
func IsNotVerified(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), constants.SentinelNotVerified)
}
