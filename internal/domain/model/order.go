package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// 不正な文字列を型レベルで弾く
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodBank   PaymentMethod = "bank"
	PaymentMethodPaypal PaymentMethod = "paypal"
	PaymentMethodMomo   PaymentMethod = "momo"
	PaymentMethodVNPay  PaymentMethod = "vnpay"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodBank, PaymentMethodPaypal,
		PaymentMethodMomo, PaymentMethodVNPay:
		return true
	}
	return false
}

// codだけ手動精算。それ以外は作成時に即時確定扱い。
func (m PaymentMethod) AutoSettling() bool {
	return m.Valid() && m != PaymentMethodCOD
}

type OrderPaymentStatus string

const (
	OrderPaymentUnpaid   OrderPaymentStatus = "unpaid"
	OrderPaymentPaid     OrderPaymentStatus = "paid"
	OrderPaymentRefunded OrderPaymentStatus = "refunded"
)

func (s OrderPaymentStatus) Valid() bool {
	switch s {
	case OrderPaymentUnpaid, OrderPaymentPaid, OrderPaymentRefunded:
		return true
	}
	return false
}

// ステータス変更1件分
type StatusChange struct {
	Status OrderStatus `json:"status"`
	Date   time.Time   `json:"date"`
}

// Ordersの行にJSON配列で持つ追記専用ログ
type StatusHistory []StatusChange

func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		h = StatusHistory{}
	}
	return json.Marshal(h)
}

func (h *StatusHistory) Scan(src interface{}) error {
	if src == nil {
		*h = StatusHistory{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	default:
		return errors.New("unsupported status history source")
	}
}

type Order struct {
	ID              int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64              `gorm:"not null;index" json:"user_id"`
	ShippingAddress string             `gorm:"type:varchar(500);not null" json:"shipping_address"`
	Note            string             `gorm:"type:text" json:"note,omitempty"`
	PaymentMethod   PaymentMethod      `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status          OrderStatus        `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus   OrderPaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	TotalPrice      int64              `gorm:"not null" json:"total_price"`
	StatusHistory   StatusHistory      `gorm:"type:jsonb" json:"confirmation_history"`
	DeliveredAt     *time.Time         `json:"delivered_at,omitempty"`
	CreatedAt       time.Time          `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time          `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
