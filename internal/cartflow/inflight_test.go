package cartflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ynhind/open-library-client/internal/models"
	"github.com/ynhind/open-library-client/internal/repository"
)

// blockingOrderRepo 首次下单请求挂起直到放行，用以模拟在途请求
type blockingOrderRepo struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingOrderRepo) CreateOrderFromCart(ctx context.Context, ids []uint) (*repository.CreateOrderResult, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
		<-b.release
	}
	return &repository.CreateOrderResult{OrderID: 7}, nil
}

func (b *blockingOrderRepo) GetUserOrders(ctx context.Context) ([]models.Order, error) {
	return nil, nil
}

func (b *blockingOrderRepo) GetOrderByID(ctx context.Context, orderID uint) (*models.Order, error) {
	return nil, repository.ErrOrderNotFound
}

func TestCheckoutRejectsDoubleSubmission(t *testing.T) {
	orders := &blockingOrderRepo{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	payload := json.RawMessage(`[{"bookId":1,"title":"A","price":500000,"quantityAvailable":5,"quantity":1}]`)
	view := loadedView(t, &fakeCartRepo{payload: payload}, orders)
	if err := view.ToggleOne(1); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := view.Checkout(context.Background())
		done <- err
	}()

	<-orders.started
	if _, err := view.Checkout(context.Background()); !errors.Is(err, ErrCheckoutInProgress) {
		t.Fatalf("expected ErrCheckoutInProgress, got %v", err)
	}
	close(orders.release)

	if err := <-done; err != nil {
		t.Fatalf("first checkout failed: %v", err)
	}

	// 首次提交返回后允许再次结算
	if _, err := view.Checkout(context.Background()); errors.Is(err, ErrCheckoutInProgress) {
		t.Fatalf("expected in-flight flag released")
	}
}
