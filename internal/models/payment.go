package models

// Payment 支付记录（一笔支付对应一个订单）
type Payment struct {
	PaymentID     uint   `json:"paymentId,omitempty"`
	OrderID       uint   `json:"orderId"`
	PaymentMethod string `json:"payment_method"`
	IsPaid        bool   `json:"isPaid"`
	PaymentDate   string `json:"payment_date,omitempty"`
	Amount        Money  `json:"amount,omitempty"`
}
