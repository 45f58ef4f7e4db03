package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ynhind/open-library-client/internal/api"
	"github.com/ynhind/open-library-client/internal/constants"
)

// CartRepository 购物车接口访问层
type CartRepository interface {
	// GetCartItems 返回原始响应体，形态归一化由调用方统一处理
	GetCartItems(ctx context.Context) (json.RawMessage, error)
	AddCartItem(ctx context.Context, bookID uint, quantity int) error
	UpdateCartItem(ctx context.Context, bookID uint, quantity int) error
	RemoveCartItem(ctx context.Context, bookID uint) error
}

// APICartRepository 后端接口实现
type APICartRepository struct {
	client *api.Client
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(client *api.Client) *APICartRepository {
	return &APICartRepository{client: client}
}

// GetCartItems 获取当前购物车
func (r *APICartRepository) GetCartItems(ctx context.Context) (json.RawMessage, error) {
	return r.client.Request(ctx, constants.EndpointCart, api.RequestOptions{Auth: true})
}

// AddCartItem 加入购物车
func (r *APICartRepository) AddCartItem(ctx context.Context, bookID uint, quantity int) error {
	_, err := r.client.Request(ctx, constants.EndpointCartItem, api.RequestOptions{
		Method: http.MethodPost,
		Auth:   true,
		Body:   cartItemBody{BookID: bookID, Quantity: quantity},
	})
	return err
}

// UpdateCartItem 修改单条数量，成功与否由调用方决定是否套用本地变更
func (r *APICartRepository) UpdateCartItem(ctx context.Context, bookID uint, quantity int) error {
	_, err := r.client.Request(ctx, constants.EndpointCartItem, api.RequestOptions{
		Method: http.MethodPatch,
		Auth:   true,
		Body:   cartItemBody{BookID: bookID, Quantity: quantity},
	})
	return err
}

// RemoveCartItem 删除单条
func (r *APICartRepository) RemoveCartItem(ctx context.Context, bookID uint) error {
	endpoint := fmt.Sprintf("%s/%d", constants.EndpointCartItem, bookID)
	_, err := r.client.Request(ctx, endpoint, api.RequestOptions{
		Method: http.MethodDelete,
		Auth:   true,
	})
	return err
}

type cartItemBody struct {
	BookID   uint `json:"bookId"`
	Quantity int  `json:"quantity"`
}
