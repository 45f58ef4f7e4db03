package cartflow

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ynhind/open-library-client/internal/api"
	"github.com/ynhind/open-library-client/internal/models"
	"github.com/ynhind/open-library-client/internal/repository"

	"go.uber.org/zap"
)

// 页面级渲染状态
const (
	StateLoading   = "loading"
	StateError     = "error"
	StateEmptyCart = "empty_cart"
	StatePopulated = "populated"
)

// 错误状态类别
const (
	ErrorKindTokenExpired = "token_expired"
	ErrorKindAuthRequired = "authentication_required"
	ErrorKindGeneric      = "generic"
)

var (
	// ErrCartEmpty 购物车为空时发起结算（本地校验，不发请求）
	ErrCartEmpty = errors.New("cart is empty")
	// ErrNoSelection 未选择任何条目时发起结算（本地校验，不发请求）
	ErrNoSelection = errors.New("select items to checkout")
	// ErrCheckoutInProgress 结算请求尚未返回，拒绝重复提交
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	// ErrOrderCreateFailed HTTP 成功但响应缺少订单标识
	ErrOrderCreateFailed = errors.New("Failed to create order")
	// ErrLineNotFound 操作的条目不在购物车中
	ErrLineNotFound = errors.New("cart line not found")
	// ErrLineOutOfStock 缺货条目不可勾选
	ErrLineOutOfStock = errors.New("cart line out of stock")
	// ErrQuantityInvalid 数量必须为正且不超过库存
	ErrQuantityInvalid = errors.New("quantity invalid")
)

// CheckoutResult 结算成功后带往支付流程的瞬态数据
type CheckoutResult struct {
	OrderID uint
	Total   models.Money
}

// View 购物车视图模型。
// 持有归一化后的条目、勾选集合与派生合计，单实例串行使用，
// 数量更新的响应按条目序号判旧，乱序返回的旧响应直接丢弃。
type View struct {
	mu        sync.Mutex
	cartRepo  repository.CartRepository
	orderRepo repository.OrderRepository
	logger    *zap.Logger

	state     string
	errorKind string
	errorMsg  string

	lines    []models.CartLine
	selected map[uint]struct{}

	lineSeq     map[uint]uint64 // 每条目已发出的最新请求序号
	checkingOut bool
}

// NewView 创建购物车视图模型（初始为加载状态）
func NewView(cartRepo repository.CartRepository, orderRepo repository.OrderRepository, log *zap.Logger) *View {
	if log == nil {
		log = zap.NewNop()
	}
	return &View{
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		logger:    log,
		state:     StateLoading,
		selected:  make(map[uint]struct{}),
		lineSeq:   make(map[uint]uint64),
	}
}

// Load 拉取购物车并归一化；勾选集合清空
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	v.state = StateLoading
	v.errorKind = ""
	v.errorMsg = ""
	v.mu.Unlock()

	raw, err := v.cartRepo.GetCartItems(ctx)
	if err != nil {
		v.applyLoadError(err)
		return err
	}

	lines, err := models.NormalizeCartPayload(raw)
	if err != nil {
		v.applyLoadError(err)
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines = lines
	v.selected = make(map[uint]struct{})
	v.lineSeq = make(map[uint]uint64)
	if len(lines) == 0 {
		v.state = StateEmptyCart
	} else {
		v.state = StatePopulated
	}
	v.logger.Debug("cart_loaded", zap.Int("lines", len(lines)))
	return nil
}

func (v *View) applyLoadError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = StateError
	v.errorMsg = err.Error()
	switch {
	case errors.Is(err, api.ErrTokenExpired):
		v.errorKind = ErrorKindTokenExpired
	case errors.Is(err, api.ErrAuthenticationRequired):
		v.errorKind = ErrorKindAuthRequired
	default:
		v.errorKind = ErrorKindGeneric
	}
}

// State 当前渲染状态
func (v *View) State() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// ErrorKind 错误状态类别（非错误状态为空串）
func (v *View) ErrorKind() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.errorKind
}

// ErrorMessage 错误状态文案
func (v *View) ErrorMessage() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.errorMsg
}

// Lines 当前条目快照
func (v *View) Lines() []models.CartLine {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.CartLine, len(v.lines))
	copy(out, v.lines)
	return out
}

// SelectedIDs 勾选的 bookId 升序列表
func (v *View) SelectedIDs() []uint {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selectedIDsLocked()
}

func (v *View) selectedIDsLocked() []uint {
	ids := make([]uint, 0, len(v.selected))
	for id := range v.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsSelected 条目是否已勾选
func (v *View) IsSelected(bookID uint) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.selected[bookID]
	return ok
}

// ToggleOne 勾选或取消一条；缺货条目不可勾选
func (v *View) ToggleOne(bookID uint) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	line := v.findLocked(bookID)
	if line == nil {
		return ErrLineNotFound
	}
	if _, ok := v.selected[bookID]; ok {
		delete(v.selected, bookID)
		return nil
	}
	if line.OutOfStock() {
		return ErrLineOutOfStock
	}
	v.selected[bookID] = struct{}{}
	return nil
}

// ToggleAll 全选或全不选。全选只覆盖有货条目，
// 缺货条目与单条勾选一样被排除在外。
func (v *View) ToggleAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	selectable := 0
	for _, line := range v.lines {
		if !line.OutOfStock() {
			selectable++
		}
	}
	if selectable > 0 && len(v.selected) == selectable {
		v.selected = make(map[uint]struct{})
		return
	}
	v.selected = make(map[uint]struct{}, selectable)
	for _, line := range v.lines {
		if !line.OutOfStock() {
			v.selected[line.BookID] = struct{}{}
		}
	}
}

// SetQuantity 修改单条数量。本地先校验，成功才套用变更；
// 失败保持原状；乱序返回的旧响应按序号丢弃。
func (v *View) SetQuantity(ctx context.Context, bookID uint, quantity int) error {
	v.mu.Lock()
	line := v.findLocked(bookID)
	if line == nil {
		v.mu.Unlock()
		return ErrLineNotFound
	}
	if quantity < 1 || quantity > line.QuantityAvailable {
		v.mu.Unlock()
		return ErrQuantityInvalid
	}
	v.lineSeq[bookID]++
	seq := v.lineSeq[bookID]
	v.mu.Unlock()

	if err := v.cartRepo.UpdateCartItem(ctx, bookID, quantity); err != nil {
		v.logger.Debug("cart_quantity_update_failed",
			zap.Uint("book_id", bookID),
			zap.Error(err),
		)
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.lineSeq[bookID] != seq {
		// 同一条目已有更新的请求在途，旧响应不落地
		v.logger.Debug("cart_quantity_update_stale",
			zap.Uint("book_id", bookID),
			zap.Uint64("seq", seq),
		)
		return nil
	}
	if current := v.findLocked(bookID); current != nil {
		current.Quantity = quantity
	}
	return nil
}

// Remove 删除单条；成功后本地移除并连带清除勾选
func (v *View) Remove(ctx context.Context, bookID uint) error {
	v.mu.Lock()
	if v.findLocked(bookID) == nil {
		v.mu.Unlock()
		return ErrLineNotFound
	}
	v.mu.Unlock()

	if err := v.cartRepo.RemoveCartItem(ctx, bookID); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.lines[:0]
	for _, line := range v.lines {
		if line.BookID != bookID {
			kept = append(kept, line)
		}
	}
	v.lines = kept
	delete(v.selected, bookID)
	delete(v.lineSeq, bookID)
	if len(v.lines) == 0 {
		v.state = StateEmptyCart
	}
	return nil
}

// Checkout 结算编排：本地校验、防重复提交、下单、
// 成功响应缺少订单标识按失败处理；失败时条目与勾选保持不变。
func (v *View) Checkout(ctx context.Context) (*CheckoutResult, error) {
	v.mu.Lock()
	if v.checkingOut {
		v.mu.Unlock()
		return nil, ErrCheckoutInProgress
	}
	if len(v.lines) == 0 {
		v.mu.Unlock()
		return nil, ErrCartEmpty
	}
	if len(v.selected) == 0 {
		v.mu.Unlock()
		return nil, ErrNoSelection
	}
	v.checkingOut = true
	ids := v.selectedIDsLocked()
	total := v.totalsLocked(v.selected).Total
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.checkingOut = false
		v.mu.Unlock()
	}()

	result, err := v.orderRepo.CreateOrderFromCart(ctx, ids)
	if err != nil {
		v.logger.Debug("checkout_failed", zap.Error(err))
		return nil, err
	}
	if result == nil || result.OrderID == 0 {
		return nil, ErrOrderCreateFailed
	}

	v.logger.Info("order_created",
		zap.Uint("order_id", result.OrderID),
		zap.Uints("book_ids", ids),
	)
	return &CheckoutResult{OrderID: result.OrderID, Total: total}, nil
}

func (v *View) findLocked(bookID uint) *models.CartLine {
	for i := range v.lines {
		if v.lines[i].BookID == bookID {
			return &v.lines[i]
		}
	}
	return nil
}
