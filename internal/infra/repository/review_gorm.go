package repository

import (
	"context"

	"shopapi/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewGormRepository struct {
	db *gorm.DB
}

func NewReviewGormRepository(db *gorm.DB) *ReviewGormRepository {
	return &ReviewGormRepository{db: db}
}

// 同じユーザー×商品は上書き
func (r *ReviewGormRepository) Upsert(ctx context.Context, review model.Review) (model.Review, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
		}).
		Create(&review).Error
	if err != nil {
		return model.Review{}, err
	}
	return review, nil
}

func (r *ReviewGormRepository) ListByProductID(ctx context.Context, productID int64, page int, limit int) ([]model.Review, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&model.Review{}).Where("product_id = ?", productID)

	if err := q.Count(&total).Error; err != nil {
		return []model.Review{}, 0, err
	}

	var reviews []model.Review
	offset := (page - 1) * limit
	if err := q.Order("id desc").Limit(limit).Offset(offset).Find(&reviews).Error; err != nil {
		return []model.Review{}, 0, err
	}

	return reviews, total, nil
}

func (r *ReviewGormRepository) AverageRating(ctx context.Context, productID int64) (float64, error) {
	var avg *float64
	err := r.db.WithContext(ctx).Model(&model.Review{}).
		Where("product_id = ?", productID).
		Select("AVG(rating)").
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}
