package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money 统一金额类型（VND，整数金额）
type Money struct {
	decimal.Decimal
}

// NewMoney 从整数金额创建
func NewMoney(amount int64) Money {
	return Money{Decimal: decimal.NewFromInt(amount)}
}

// NewMoneyFromDecimal 从 decimal 创建金额
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(0)}
}

// MarshalJSON 统一输出整数金额
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Round(0).IntPart())
}

// UnmarshalJSON 解析金额（字符串或数字）
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			m.Decimal = decimal.Zero
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.Decimal = d.Round(0)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	m.Decimal = decimal.NewFromFloat(f).Round(0)
	return nil
}

// Mul 乘以数量
func (m Money) Mul(quantity int) Money {
	return Money{Decimal: m.Decimal.Mul(decimal.NewFromInt(int64(quantity)))}
}

// Add 金额相加
func (m Money) Add(other Money) Money {
	return Money{Decimal: m.Decimal.Add(other.Decimal)}
}

// GreaterThanOrEqual 金额比较
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.Decimal.GreaterThanOrEqual(other.Decimal)
}

// Equal 金额相等
func (m Money) Equal(other Money) bool {
	return m.Decimal.Equal(other.Decimal)
}

// String 返回整数格式
func (m Money) String() string {
	return m.Decimal.Round(0).StringFixed(0)
}
