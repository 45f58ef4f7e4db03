package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ynhind/open-library-client/internal/api"
	"github.com/ynhind/open-library-client/internal/constants"
)

var (
	// ErrPaymentMethodInvalid 支付方式为空或不受支持（本地校验，不发请求）
	ErrPaymentMethodInvalid = errors.New("payment method invalid")
)

// PaymentResult 支付提交结果
type PaymentResult struct {
	IsPaid bool
	Raw    json.RawMessage
}

// PaymentRepository 支付接口访问层
type PaymentRepository interface {
	CreatePayment(ctx context.Context, orderID uint, method string) (*PaymentResult, error)
}

// APIPaymentRepository 后端接口实现
type APIPaymentRepository struct {
	client *api.Client
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(client *api.Client) *APIPaymentRepository {
	return &APIPaymentRepository{client: client}
}

// CreatePayment 为订单提交一笔支付。
// HTTP 成功但 isPaid 不为 true 时由调用方按失败处理。
func (r *APIPaymentRepository) CreatePayment(ctx context.Context, orderID uint, method string) (*PaymentResult, error) {
	if !constants.IsSupportedPaymentMethod(method) {
		return nil, ErrPaymentMethodInvalid
	}
	raw, err := r.client.Request(ctx, constants.EndpointPayment, api.RequestOptions{
		Method: http.MethodPost,
		Auth:   true,
		Body: struct {
			OrderID       uint   `json:"orderId"`
			PaymentMethod string `json:"payment_method"`
		}{OrderID: orderID, PaymentMethod: method},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		IsPaid bool `json:"isPaid"`
	}
	_ = json.Unmarshal(raw, &parsed)
	return &PaymentResult{IsPaid: parsed.IsPaid, Raw: raw}, nil
}
