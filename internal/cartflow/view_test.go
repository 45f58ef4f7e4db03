package cartflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ynhind/open-library-client/internal/api"
	"github.com/ynhind/open-library-client/internal/models"
	"github.com/ynhind/open-library-client/internal/repository"
)

// fakeCartRepo 内存购物车仓库
type fakeCartRepo struct {
	payload   json.RawMessage
	loadErr   error
	updateErr error
	removeErr error
	onUpdate  func(bookID uint, quantity int)

	getCalls    int
	updateCalls int
	removeCalls int
}

func (f *fakeCartRepo) GetCartItems(ctx context.Context) (json.RawMessage, error) {
	f.getCalls++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.payload, nil
}

func (f *fakeCartRepo) AddCartItem(ctx context.Context, bookID uint, quantity int) error {
	return nil
}

func (f *fakeCartRepo) UpdateCartItem(ctx context.Context, bookID uint, quantity int) error {
	f.updateCalls++
	if f.onUpdate != nil {
		f.onUpdate(bookID, quantity)
	}
	return f.updateErr
}

func (f *fakeCartRepo) RemoveCartItem(ctx context.Context, bookID uint) error {
	f.removeCalls++
	return f.removeErr
}

// fakeOrderRepo 内存订单仓库
type fakeOrderRepo struct {
	result      *repository.CreateOrderResult
	createErr   error
	createCalls int
	gotIDs      []uint
}

func (f *fakeOrderRepo) CreateOrderFromCart(ctx context.Context, ids []uint) (*repository.CreateOrderResult, error) {
	f.createCalls++
	f.gotIDs = ids
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.result, nil
}

func (f *fakeOrderRepo) GetUserOrders(ctx context.Context) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, orderID uint) (*models.Order, error) {
	return nil, repository.ErrOrderNotFound
}

// twoLinePayload 书A（50万 x2 库存5）与书B（80万 x1 缺货）
func twoLinePayload() json.RawMessage {
	return json.RawMessage(`{"items":[
		{"bookId":1,"title":"Book A","price":500000,"author":"An","quantityAvailable":5,"quantity":2},
		{"bookId":2,"title":"Book B","price":800000,"author":"Binh","quantityAvailable":0,"quantity":1}
	]}`)
}

func loadedView(t *testing.T, carts *fakeCartRepo, orders repository.OrderRepository) *View {
	t.Helper()
	view := NewView(carts, orders, nil)
	if err := view.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return view
}

func TestLoadStates(t *testing.T) {
	view := NewView(&fakeCartRepo{payload: twoLinePayload()}, &fakeOrderRepo{}, nil)
	if view.State() != StateLoading {
		t.Fatalf("expected initial loading state, got %s", view.State())
	}
	if err := view.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if view.State() != StatePopulated {
		t.Fatalf("expected populated state, got %s", view.State())
	}

	empty := NewView(&fakeCartRepo{payload: json.RawMessage(`{"items":[]}`)}, &fakeOrderRepo{}, nil)
	if err := empty.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if empty.State() != StateEmptyCart {
		t.Fatalf("expected empty cart state, got %s", empty.State())
	}
}

func TestLoadErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{api.ErrTokenExpired, ErrorKindTokenExpired},
		{api.ErrAuthenticationRequired, ErrorKindAuthRequired},
		{errors.New("connection refused"), ErrorKindGeneric},
	}
	for _, tc := range cases {
		view := NewView(&fakeCartRepo{loadErr: tc.err}, &fakeOrderRepo{}, nil)
		if err := view.Load(context.Background()); err == nil {
			t.Fatalf("expected load error")
		}
		if view.State() != StateError {
			t.Fatalf("expected error state, got %s", view.State())
		}
		if view.ErrorKind() != tc.kind {
			t.Fatalf("expected kind %s, got %s", tc.kind, view.ErrorKind())
		}
	}
}

func TestToggleOneAndSubsetInvariant(t *testing.T) {
	view := loadedView(t, &fakeCartRepo{payload: twoLinePayload()}, &fakeOrderRepo{})

	if err := view.ToggleOne(1); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !view.IsSelected(1) {
		t.Fatalf("expected book 1 selected")
	}
	if err := view.ToggleOne(1); err != nil {
		t.Fatalf("toggle off failed: %v", err)
	}
	if view.IsSelected(1) {
		t.Fatalf("expected book 1 deselected")
	}

	if err := view.ToggleOne(2); !errors.Is(err, ErrLineOutOfStock) {
		t.Fatalf("expected out-of-stock rejection, got %v", err)
	}
	if err := view.ToggleOne(99); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected line-not-found, got %v", err)
	}

	assertSelectionSubset(t, view)
}

func TestToggleAllExcludesOutOfStock(t *testing.T) {
	view := loadedView(t, &fakeCartRepo{payload: twoLinePayload()}, &fakeOrderRepo{})

	view.ToggleAll()
	ids := view.SelectedIDs()
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected only in-stock line selected, got %v", ids)
	}
	assertSelectionSubset(t, view)

	// 再次全选应清空
	view.ToggleAll()
	if len(view.SelectedIDs()) != 0 {
		t.Fatalf("expected toggle-all to clear, got %v", view.SelectedIDs())
	}
}

func TestShippingThreshold(t *testing.T) {
	payload := json.RawMessage(`[{"bookId":1,"title":"T","price":1200000,"quantityAvailable":3,"quantity":1}]`)
	view := loadedView(t, &fakeCartRepo{payload: payload}, &fakeOrderRepo{})

	totals := view.Totals()
	if !totals.Shipping.Equal(models.NewMoney(0)) {
		t.Fatalf("expected free shipping at threshold, got %s", totals.Shipping)
	}
	if !totals.Total.Equal(models.NewMoney(1200000)) {
		t.Fatalf("unexpected total: %s", totals.Total)
	}

	below := json.RawMessage(`[{"bookId":1,"title":"T","price":1199999,"quantityAvailable":3,"quantity":1}]`)
	view = loadedView(t, &fakeCartRepo{payload: below}, &fakeOrderRepo{})
	totals = view.Totals()
	if !totals.Shipping.Equal(models.NewMoney(120000)) {
		t.Fatalf("expected flat shipping below threshold, got %s", totals.Shipping)
	}
	if !totals.Total.Equal(models.NewMoney(1319999)) {
		t.Fatalf("unexpected total: %s", totals.Total)
	}
}

func TestCheckoutBlockedWithoutSelection(t *testing.T) {
	orders := &fakeOrderRepo{}
	view := loadedView(t, &fakeCartRepo{payload: twoLinePayload()}, orders)

	_, err := view.Checkout(context.Background())
	if !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if orders.createCalls != 0 {
		t.Fatalf("expected no order request, got %d", orders.createCalls)
	}
}

func TestCheckoutBlockedOnEmptyCart(t *testing.T) {
	orders := &fakeOrderRepo{}
	view := loadedView(t, &fakeCartRepo{payload: json.RawMessage(`[]`)}, orders)

	_, err := view.Checkout(context.Background())
	if !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}
	if orders.createCalls != 0 {
		t.Fatalf("expected no order request, got %d", orders.createCalls)
	}
}

func TestCheckoutMalformedSuccess(t *testing.T) {
	orders := &fakeOrderRepo{result: &repository.CreateOrderResult{OrderID: 0}}
	view := loadedView(t, &fakeCartRepo{payload: twoLinePayload()}, orders)
	if err := view.ToggleOne(1); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	_, err := view.Checkout(context.Background())
	if !errors.Is(err, ErrOrderCreateFailed) {
		t.Fatalf("expected ErrOrderCreateFailed, got %v", err)
	}
	// 失败后条目与勾选保持不变，可直接重试
	if len(view.Lines()) != 2 || !view.IsSelected(1) {
		t.Fatalf("expected state untouched after failure")
	}
}

func TestCheckoutFailureKeepsSelection(t *testing.T) {
	orders := &fakeOrderRepo{createErr: errors.New("backend unavailable")}
	view := loadedView(t, &fakeCartRepo{payload: twoLinePayload()}, orders)
	if err := view.ToggleOne(1); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	if _, err := view.Checkout(context.Background()); err == nil {
		t.Fatalf("expected checkout error")
	}
	if !view.IsSelected(1) || len(view.Lines()) != 2 {
		t.Fatalf("expected selection and lines untouched")
	}
}

func TestSetQuantityOptimisticConfirm(t *testing.T) {
	carts := &fakeCartRepo{payload: twoLinePayload()}
	view := loadedView(t, carts, &fakeOrderRepo{})

	if err := view.SetQuantity(context.Background(), 1, 4); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if view.Lines()[0].Quantity != 4 {
		t.Fatalf("expected quantity applied, got %d", view.Lines()[0].Quantity)
	}
	if carts.updateCalls != 1 {
		t.Fatalf("expected one update request, got %d", carts.updateCalls)
	}
}

func TestSetQuantityFailureLeavesStateUntouched(t *testing.T) {
	carts := &fakeCartRepo{payload: twoLinePayload(), updateErr: errors.New("stock changed")}
	view := loadedView(t, carts, &fakeOrderRepo{})

	if err := view.SetQuantity(context.Background(), 1, 4); err == nil {
		t.Fatalf("expected update error")
	}
	if view.Lines()[0].Quantity != 2 {
		t.Fatalf("expected prior quantity preserved, got %d", view.Lines()[0].Quantity)
	}
}

func TestSetQuantityValidation(t *testing.T) {
	carts := &fakeCartRepo{payload: twoLinePayload()}
	view := loadedView(t, carts, &fakeOrderRepo{})

	if err := view.SetQuantity(context.Background(), 1, 0); !errors.Is(err, ErrQuantityInvalid) {
		t.Fatalf("expected ErrQuantityInvalid for zero, got %v", err)
	}
	if err := view.SetQuantity(context.Background(), 1, 6); !errors.Is(err, ErrQuantityInvalid) {
		t.Fatalf("expected ErrQuantityInvalid beyond stock, got %v", err)
	}
	if carts.updateCalls != 0 {
		t.Fatalf("expected no network request for invalid quantities")
	}
}

func TestSetQuantityStaleResponseDiscarded(t *testing.T) {
	carts := &fakeCartRepo{payload: twoLinePayload()}
	view := loadedView(t, carts, &fakeOrderRepo{})

	// 响应落地前同一条目又发出了更新的请求，旧响应应被丢弃
	carts.onUpdate = func(bookID uint, quantity int) {
		view.mu.Lock()
		view.lineSeq[bookID]++
		view.mu.Unlock()
	}
	if err := view.SetQuantity(context.Background(), 1, 4); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if view.Lines()[0].Quantity != 2 {
		t.Fatalf("expected stale response discarded, got quantity %d", view.Lines()[0].Quantity)
	}
}

func TestRemoveClearsSelection(t *testing.T) {
	carts := &fakeCartRepo{payload: twoLinePayload()}
	view := loadedView(t, carts, &fakeOrderRepo{})
	if err := view.ToggleOne(1); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	if err := view.Remove(context.Background(), 1); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if view.IsSelected(1) {
		t.Fatalf("expected selection cleared with removed line")
	}
	if len(view.Lines()) != 1 {
		t.Fatalf("expected one remaining line")
	}
	assertSelectionSubset(t, view)

	if err := view.Remove(context.Background(), 2); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if view.State() != StateEmptyCart {
		t.Fatalf("expected empty cart state after last removal, got %s", view.State())
	}
}

func TestRemoveFailureKeepsLine(t *testing.T) {
	carts := &fakeCartRepo{payload: twoLinePayload(), removeErr: errors.New("backend unavailable")}
	view := loadedView(t, carts, &fakeOrderRepo{})

	if err := view.Remove(context.Background(), 1); err == nil {
		t.Fatalf("expected remove error")
	}
	if len(view.Lines()) != 2 {
		t.Fatalf("expected lines untouched after failure")
	}
}

// 对应完整下单场景：书A有货、书B缺货的购物车从加载走到下单
func TestCartToOrderScenario(t *testing.T) {
	orders := &fakeOrderRepo{result: &repository.CreateOrderResult{OrderID: 501}}
	view := loadedView(t, &fakeCartRepo{payload: twoLinePayload()}, orders)

	// 全量口径：1,800,000 达到免运费门槛
	totals := view.Totals()
	if !totals.Subtotal.Equal(models.NewMoney(1800000)) {
		t.Fatalf("unexpected cart subtotal: %s", totals.Subtotal)
	}
	if !totals.Shipping.Equal(models.NewMoney(0)) {
		t.Fatalf("expected free shipping for full cart, got %s", totals.Shipping)
	}

	// 书B缺货，不进全选
	view.ToggleAll()
	ids := view.SelectedIDs()
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected select-all to pick only book A, got %v", ids)
	}

	// 勾选口径：1,000,000 低于门槛，加收运费
	selected := view.SelectedTotals()
	if !selected.Subtotal.Equal(models.NewMoney(1000000)) {
		t.Fatalf("unexpected selected subtotal: %s", selected.Subtotal)
	}
	if !selected.Shipping.Equal(models.NewMoney(120000)) {
		t.Fatalf("unexpected selected shipping: %s", selected.Shipping)
	}
	if !selected.Total.Equal(models.NewMoney(1120000)) {
		t.Fatalf("unexpected selected total: %s", selected.Total)
	}

	display := view.DisplayTotals()
	if !display.Total.Equal(selected.Total) {
		t.Fatalf("expected display totals to prefer selection")
	}

	result, err := view.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if result.OrderID != 501 {
		t.Fatalf("unexpected order id: %d", result.OrderID)
	}
	if !result.Total.Equal(models.NewMoney(1120000)) {
		t.Fatalf("unexpected checkout total: %s", result.Total)
	}
	if len(orders.gotIDs) != 1 || orders.gotIDs[0] != 1 {
		t.Fatalf("expected create-order called with book A only, got %v", orders.gotIDs)
	}
}

func assertSelectionSubset(t *testing.T, view *View) {
	t.Helper()
	known := make(map[uint]bool)
	for _, line := range view.Lines() {
		known[line.BookID] = true
	}
	for _, id := range view.SelectedIDs() {
		if !known[id] {
			t.Fatalf("selection contains unknown book id %d", id)
		}
	}
}
