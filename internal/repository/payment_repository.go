package repository

import (
	"context"

	"shopapi/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p model.Payment) (model.Payment, error)
	FindByID(ctx context.Context, paymentID int64) (model.Payment, error)

	//注文1件に最大1件（作成前チェック用）
	FindByOrderID(ctx context.Context, orderID int64) (model.Payment, bool, error)

	Update(ctx context.Context, p model.Payment) error
	DeleteByOrderID(ctx context.Context, orderID int64) error
}
