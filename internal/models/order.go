package models

// Order 订单（服务端创建，客户端只读）
type Order struct {
	OrderID     uint        `json:"orderId"`
	OrderDate   string      `json:"order_date"`
	TotalAmount Money       `json:"total_amount"`
	Status      string      `json:"status"`
	OrderItems  []OrderItem `json:"orderItems"`
	Payments    []Payment   `json:"payments"`
	User        *User       `json:"user,omitempty"`
}

// OrderItem 订单条目
type OrderItem struct {
	BookID   uint   `json:"bookId"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    Money  `json:"price"`
}

// IsPaid 订单下是否存在已结算支付
func (o Order) IsPaid() bool {
	for _, p := range o.Payments {
		if p.IsPaid {
			return true
		}
	}
	return false
}
