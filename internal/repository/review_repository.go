package repository

import (
	"context"

	"shopapi/internal/domain/model"
)

type ReviewRepository interface {
	// 同じユーザー×商品は上書き
	Upsert(ctx context.Context, review model.Review) (model.Review, error)
	ListByProductID(ctx context.Context, productID int64, page int, limit int) ([]model.Review, int64, error)
	AverageRating(ctx context.Context, productID int64) (float64, error)
}
