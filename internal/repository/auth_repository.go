package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ynhind/open-library-client/internal/api"
	"github.com/ynhind/open-library-client/internal/constants"
	"github.com/ynhind/open-library-client/internal/models"
	"github.com/ynhind/open-library-client/internal/session"
)

var (
	// ErrLoginInvalid 登录响应缺少 token
	ErrLoginInvalid = errors.New("login response invalid")
)

// RegisterInput 注册输入
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// AuthRepository 认证接口访问层
type AuthRepository interface {
	Login(ctx context.Context, identifier, password string) (*models.User, error)
	Register(ctx context.Context, input RegisterInput) error
}

// APIAuthRepository 后端接口实现，登录成功后凭证写入会话存储
type APIAuthRepository struct {
	client *api.Client
	store  *session.Store
}

// NewAuthRepository 创建认证仓库
func NewAuthRepository(client *api.Client, store *session.Store) *APIAuthRepository {
	return &APIAuthRepository{client: client, store: store}
}

// Login 用户名或邮箱登录；成功后持久化 token 与用户身份
func (r *APIAuthRepository) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	raw, err := r.client.Request(ctx, constants.EndpointLogin, api.RequestOptions{
		Method: http.MethodPost,
		Body: struct {
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}{Identifier: identifier, Password: password},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, ErrLoginInvalid
	}
	if strings.TrimSpace(parsed.Token) == "" {
		return nil, ErrLoginInvalid
	}

	if err := r.store.SetCredentials(parsed.Token, parsed.User); err != nil {
		return nil, err
	}
	user := r.store.User()
	if user == nil {
		user = parsed.User
	}
	return user, nil
}

// Register 注册新账号；后续登录前可能需要邮箱验证
func (r *APIAuthRepository) Register(ctx context.Context, input RegisterInput) error {
	_, err := r.client.Request(ctx, constants.EndpointRegister, api.RequestOptions{
		Method: http.MethodPost,
		Body:   input,
	})
	return err
}
