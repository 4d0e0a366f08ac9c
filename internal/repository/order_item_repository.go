package repository

import (
	"context"
	"time"

	"shopapi/internal/domain/model"
)

// 返品ワークフローで更新する列
type ReturnUpdate struct {
	Status      model.ReturnStatus
	Reason      string
	RequestedAt *time.Time
	ResolvedAt  *time.Time
}

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	FindByID(ctx context.Context, itemID int64) (model.OrderItem, error)
	UpdateReturn(ctx context.Context, itemID int64, upd ReturnUpdate) error
	DeleteByOrderID(ctx context.Context, orderID int64) error

	// 配達済み注文にその商品が含まれるか（レビュー資格チェック）
	ExistsDeliveredItem(ctx context.Context, userID int64, productID int64) (bool, error)
}
