package constants

// 运费规则常量（单位：VND，金额为整数）
const (
	ShippingFlatFee       = 120000  // 固定运费
	FreeShippingThreshold = 1200000 // 免运费门槛（小计达到即免）
)

// 后端错误哨兵字符串（客户端按原文匹配，须与后端保持一致）
const (
	SentinelTokenExpired = "Token has been expired"
	SentinelAuthRequired = "Authentication required"
	SentinelNotVerified  = "not verified"
)

// 订单状态常量（服务端维护，客户端只读）
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCanceled  = "CANCELED"
)

// 支付方式常量
const (
	PaymentMethodCOD          = "COD"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodCreditCard   = "CREDIT_CARD"
)

// 后端接口路径常量
const (
	EndpointCart       = "cart"
	EndpointCartItem   = "cart/item"
	EndpointPlaceOrder = "order/place-order"
	EndpointMyOrders   = "order/get-my-orders"
	EndpointPayment    = "payment"
	EndpointLogin      = "auth/login"
	EndpointRegister   = "auth/register"
)

// 默认文案常量
const (
	DefaultAuthor = "Unknown author"
)

// IsSupportedPaymentMethod 判断是否支持的支付方式
func IsSupportedPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCOD, PaymentMethodBankTransfer, PaymentMethodCreditCard:
		return true
	default:
		return false
	}
}
