package models

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/ynhind/open-library-client/internal/constants"
)

var (
	// ErrCartPayloadInvalid 购物车响应不是对象也不是数组
	ErrCartPayloadInvalid = errors.New("cart payload invalid")
)

// CartLine 购物车条目（一本书及其购买数量）
type CartLine struct {
	BookID            uint   `json:"bookId"`
	Title             string `json:"title"`
	Price             Money  `json:"price"`
	CoverImage        string `json:"coverImage,omitempty"`
	Author            string `json:"author"`
	QuantityAvailable int    `json:"quantityAvailable"`
	Quantity          int    `json:"quantity"`
}

// OutOfStock 是否缺货（缺货条目不可参与结算）
func (l CartLine) OutOfStock() bool {
	return l.QuantityAvailable <= 0
}

// LineTotal 条目小计
func (l CartLine) LineTotal() Money {
	return l.Price.Mul(l.Quantity)
}

// rawCartItem 后端购物车条目的宽松解码形态（字段可平铺或嵌套在 book 下）
type rawCartItem struct {
	BookID               uint     `json:"bookId"`
	BookIDSnake          uint     `json:"book_id"`
	Title                string   `json:"title"`
	Price                Money    `json:"price"`
	CoverImage           string   `json:"coverImage"`
	CoverImageSnake      string   `json:"cover_image"`
	Author               string   `json:"author"`
	QuantityAvailable    *int     `json:"quantityAvailable"`
	QuantityAvailableAlt *int     `json:"quantity_available"`
	Quantity             int      `json:"quantity"`
	Book                 *rawBook `json:"book"`
}

// rawBook 嵌套在条目 book 键下的书目字段
type rawBook struct {
	BookID               uint   `json:"bookId"`
	BookIDSnake          uint   `json:"book_id"`
	Title                string `json:"title"`
	Price                Money  `json:"price"`
	CoverImage           string `json:"coverImage"`
	CoverImageSnake      string `json:"cover_image"`
	Author               string `json:"author"`
	QuantityAvailable    *int   `json:"quantityAvailable"`
	QuantityAvailableAlt *int   `json:"quantity_available"`
}

// NormalizeCartPayload 购物车响应的统一归一化边界。
// 兼容 {items:[...]} 与裸数组两种外层，条目字段平铺或嵌套在 book 下，
// 可选字段缺失回落默认值。归一化满足幂等：输出再归一化结果不变。
func NormalizeCartPayload(raw json.RawMessage) ([]CartLine, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var items []rawCartItem
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, ErrCartPayloadInvalid
		}
	case '{':
		var envelope struct {
			Items []rawCartItem `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, ErrCartPayloadInvalid
		}
		items = envelope.Items
	default:
		return nil, ErrCartPayloadInvalid
	}

	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		line := normalizeCartItem(item)
		if line.BookID == 0 {
			// 无法确定书目标识的条目直接丢弃
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func normalizeCartItem(item rawCartItem) CartLine {
	line := CartLine{
		BookID:            firstUint(item.BookID, item.BookIDSnake),
		Title:             item.Title,
		Price:             item.Price,
		CoverImage:        firstString(item.CoverImage, item.CoverImageSnake),
		Author:            item.Author,
		QuantityAvailable: firstInt(item.QuantityAvailable, item.QuantityAvailableAlt),
		Quantity:          item.Quantity,
	}

	if book := item.Book; book != nil {
		if line.BookID == 0 {
			line.BookID = firstUint(book.BookID, book.BookIDSnake)
		}
		if line.Title == "" {
			line.Title = book.Title
		}
		if line.Price.IsZero() && !book.Price.IsZero() {
			line.Price = book.Price
		}
		if line.CoverImage == "" {
			line.CoverImage = firstString(book.CoverImage, book.CoverImageSnake)
		}
		if line.Author == "" {
			line.Author = book.Author
		}
		if item.QuantityAvailable == nil && item.QuantityAvailableAlt == nil {
			line.QuantityAvailable = firstInt(book.QuantityAvailable, book.QuantityAvailableAlt)
		}
	}

	if line.Author == "" {
		line.Author = constants.DefaultAuthor
	}
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	if line.QuantityAvailable < 0 {
		line.QuantityAvailable = 0
	}
	if line.Price.Sign() < 0 {
		line.Price = NewMoney(0)
	}
	return line
}

func firstUint(values ...uint) uint {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}
