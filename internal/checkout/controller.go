package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/ynhind/open-library-client/internal/models"
	"github.com/ynhind/open-library-client/internal/repository"

	"go.uber.org/zap"
)

var (
	// ErrOrderIDInvalid 缺少订单标识（本地校验，不发请求）
	ErrOrderIDInvalid = errors.New("order id invalid")
	// ErrPaymentInProgress 上一笔支付尚未返回，拒绝重复提交
	ErrPaymentInProgress = errors.New("payment already in progress")
	// ErrPaymentNotSettled HTTP 成功但 isPaid 不为 true
	ErrPaymentNotSettled = errors.New("payment not settled")
)

// Controller 结算流程控制器：支付提交与确认页数据。
// 支付失败只向用户反馈，由用户手动重试，不做自动重试。
type Controller struct {
	mu       sync.Mutex
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	logger   *zap.Logger
	paying   bool
}

// NewController 创建结算流程控制器
func NewController(payments repository.PaymentRepository, orders repository.OrderRepository, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{payments: payments, orders: orders, logger: log}
}

// Pay 为订单提交一笔支付
func (c *Controller) Pay(ctx context.Context, orderID uint, method string) error {
	if orderID == 0 {
		return ErrOrderIDInvalid
	}

	c.mu.Lock()
	if c.paying {
		c.mu.Unlock()
		return ErrPaymentInProgress
	}
	c.paying = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.paying = false
		c.mu.Unlock()
	}()

	result, err := c.payments.CreatePayment(ctx, orderID, method)
	if err != nil {
		c.logger.Debug("payment_failed",
			zap.Uint("order_id", orderID),
			zap.Error(err),
		)
		return err
	}
	if !result.IsPaid {
		return ErrPaymentNotSettled
	}

	c.logger.Info("payment_settled",
		zap.Uint("order_id", orderID),
		zap.String("method", method),
	)
	return nil
}

// Confirmation 拉取订单详情用于确认页展示
func (c *Controller) Confirmation(ctx context.Context, orderID uint) (*models.Order, error) {
	if orderID == 0 {
		return nil, ErrOrderIDInvalid
	}
	return c.orders.GetOrderByID(ctx, orderID)
}
