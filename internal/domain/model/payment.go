package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// 注文1件につき最大1件。uniqueIndexだけに頼らず作成前チェックもする。
type Payment struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64         `gorm:"not null;uniqueIndex" json:"order_id"`
	UserID        int64         `gorm:"not null;index" json:"user_id"`
	Amount        int64         `gorm:"not null" json:"amount"`
	Method        PaymentMethod `gorm:"type:varchar(20);not null" json:"method"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TransactionID string        `gorm:"type:varchar(100);not null;uniqueIndex" json:"transaction_id"`
	PaymentDate   *time.Time    `json:"payment_date,omitempty"`
	Note          string        `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
