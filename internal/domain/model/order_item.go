package model

import "time"

type ReturnStatus string

const (
	ReturnStatusNone      ReturnStatus = "none"
	ReturnStatusRequested ReturnStatus = "requested"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusCompleted ReturnStatus = "completed"
)

func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnStatusNone, ReturnStatusRequested, ReturnStatusApproved,
		ReturnStatusRejected, ReturnStatusCompleted:
		return true
	}
	return false
}

// 購入時点のスナップショット。返品フィールド以外は不変。
type OrderItem struct {
	ID                int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID           int64        `gorm:"not null;index" json:"order_id"`
	ProductID         int64        `gorm:"not null;index" json:"product_id"`
	ProductName       string       `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity          int64        `gorm:"not null" json:"quantity"`
	Price             int64        `gorm:"not null" json:"price"`
	Subtotal          int64        `gorm:"not null" json:"subtotal"`
	ReturnStatus      ReturnStatus `gorm:"type:varchar(20);not null;default:'none'" json:"return_status"`
	ReturnReason      string       `gorm:"type:text" json:"return_reason,omitempty"`
	ReturnRequestedAt *time.Time   `json:"return_requested_at,omitempty"`
	ReturnResolvedAt  *time.Time   `json:"return_resolved_at,omitempty"`
	CreatedAt         time.Time    `gorm:"not null;autoCreateTime" json:"created_at"`
}
