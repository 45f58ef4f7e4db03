package cartflow

import (
	"github.com/ynhind/open-library-client/internal/constants"
	"github.com/ynhind/open-library-client/internal/models"
)

// Totals 派生合计，每次调用基于当前条目与勾选重新计算
type Totals struct {
	Subtotal models.Money
	Shipping models.Money
	Total    models.Money
}

// Totals 全部条目的合计
func (v *View) Totals() Totals {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.totalsLocked(nil)
}

// SelectedTotals 勾选条目的合计
func (v *View) SelectedTotals() Totals {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.totalsLocked(v.selected)
}

// DisplayTotals 展示用合计：有勾选取勾选合计，否则取全量合计
func (v *View) DisplayTotals() Totals {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.selected) > 0 {
		return v.totalsLocked(v.selected)
	}
	return v.totalsLocked(nil)
}

// totalsLocked subset 为 nil 时统计全部条目；
// 免运费门槛对全量和勾选两种口径各自独立判定。
func (v *View) totalsLocked(subset map[uint]struct{}) Totals {
	subtotal := models.NewMoney(0)
	counted := 0
	for _, line := range v.lines {
		if subset != nil {
			if _, ok := subset[line.BookID]; !ok {
				continue
			}
		}
		subtotal = subtotal.Add(line.LineTotal())
		counted++
	}

	shipping := models.NewMoney(0)
	if counted > 0 && !subtotal.GreaterThanOrEqual(models.NewMoney(constants.FreeShippingThreshold)) {
		shipping = models.NewMoney(constants.ShippingFlatFee)
	}

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}
