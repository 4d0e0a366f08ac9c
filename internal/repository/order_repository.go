package repository

import (
	"context"
	"time"

	"shopapi/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

// ステータス更新で一緒に書く列。履歴は行ごと置き換え（追記済みのスライスを渡す）。
type OrderStatusUpdate struct {
	Status      model.OrderStatus
	History     model.StatusHistory
	DeliveredAt *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	UpdateStatus(ctx context.Context, orderID int64, upd OrderStatusUpdate) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, ps model.OrderPaymentStatus) error

	// ハードデリート（明細・決済は呼び出し側が同Txで消す）
	Delete(ctx context.Context, orderID int64) error

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
