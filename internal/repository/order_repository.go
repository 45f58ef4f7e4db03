package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ynhind/open-library-client/internal/api"
	"github.com/ynhind/open-library-client/internal/constants"
	"github.com/ynhind/open-library-client/internal/models"
)

var (
	// ErrOrderNotFound 订单列表中没有匹配的订单
	ErrOrderNotFound = errors.New("Order not found")
)

// CreateOrderResult 下单结果；OrderID 为 0 表示响应缺少订单标识
type CreateOrderResult struct {
	OrderID uint
	Raw     json.RawMessage
}

// OrderRepository 订单接口访问层
type OrderRepository interface {
	CreateOrderFromCart(ctx context.Context, selectedBookIDs []uint) (*CreateOrderResult, error)
	GetUserOrders(ctx context.Context) ([]models.Order, error)
	GetOrderByID(ctx context.Context, orderID uint) (*models.Order, error)
}

// APIOrderRepository 后端接口实现
type APIOrderRepository struct {
	client *api.Client
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(client *api.Client) *APIOrderRepository {
	return &APIOrderRepository{client: client}
}

// CreateOrderFromCart 从选中的购物车条目创建订单
func (r *APIOrderRepository) CreateOrderFromCart(ctx context.Context, selectedBookIDs []uint) (*CreateOrderResult, error) {
	raw, err := r.client.Request(ctx, constants.EndpointPlaceOrder, api.RequestOptions{
		Method: http.MethodPost,
		Auth:   true,
		Body: struct {
			SelectedBookIDs []uint `json:"selectedBookIds"`
		}{SelectedBookIDs: selectedBookIDs},
	})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Order struct {
			OrderID uint `json:"orderId"`
		} `json:"order"`
	}
	// 响应形态不保证，解析失败按缺少订单标识处理，由调用方判定
	_ = json.Unmarshal(raw, &envelope)
	return &CreateOrderResult{OrderID: envelope.Order.OrderID, Raw: raw}, nil
}

// GetUserOrders 获取当前用户订单列表
func (r *APIOrderRepository) GetUserOrders(ctx context.Context) ([]models.Order, error) {
	raw, err := r.client.Request(ctx, constants.EndpointMyOrders, api.RequestOptions{Auth: true})
	if err != nil {
		return nil, err
	}
	var orders []models.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrderByID 按订单号查找。
// 后端没有单订单接口，只能拉取全量列表后线性扫描。
func (r *APIOrderRepository) GetOrderByID(ctx context.Context, orderID uint) (*models.Order, error) {
	orders, err := r.GetUserOrders(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].OrderID == orderID {
			return &orders[i], nil
		}
	}
	return nil, ErrOrderNotFound
}
