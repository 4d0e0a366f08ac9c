package usecase

import (
	"context"
	"net/http"
	"time"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
)

// ReviewUsecase は商品レビュー。配達済みの購入者のみ投稿可。
type ReviewUsecase struct {
	reviewRepo    repo.ReviewRepository
	orderItemRepo repo.OrderItemRepository
	productRepo   repo.ProductRepository
}

func NewReviewUsecase(
	reviewRepo repo.ReviewRepository,
	orderItemRepo repo.OrderItemRepository,
	productRepo repo.ProductRepository,
) *ReviewUsecase {
	return &ReviewUsecase{
		reviewRepo:    reviewRepo,
		orderItemRepo: orderItemRepo,
		productRepo:   productRepo,
	}
}

type UpsertReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type ReviewOutput struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReviewListOutput struct {
	Reviews       []ReviewOutput `json:"reviews"`
	Total         int64          `json:"total"`
	AverageRating float64        `json:"average_rating"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
}

// Upsert は投稿または上書き。
func (u *ReviewUsecase) Upsert(ctx context.Context, userID int64, productID int64, in UpsertReviewInput) (ReviewOutput, error) {
	if userID <= 0 {
		return ReviewOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return ReviewOutput{}, NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}

	if _, err := u.productRepo.FindByID(ctx, productID); err != nil {
		if err == repo.ErrNotFound {
			return ReviewOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
		}
		return ReviewOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 配達済み注文に含まれる商品のみレビュー可
	ok, err := u.orderItemRepo.ExistsDeliveredItem(ctx, userID, productID)
	if err != nil {
		return ReviewOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !ok {
		return ReviewOutput{}, NewHTTPError(http.StatusForbidden, "only verified buyers can review")
	}

	saved, err := u.reviewRepo.Upsert(ctx, model.Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    in.Rating,
		Comment:   in.Comment,
	})
	if err != nil {
		return ReviewOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toReviewOutput(saved), nil
}

// ListByProduct はレビュー一覧と平均評価。
func (u *ReviewUsecase) ListByProduct(ctx context.Context, productID int64, page int, limit int) (ReviewListOutput, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	if _, err := u.productRepo.FindByID(ctx, productID); err != nil {
		if err == repo.ErrNotFound {
			return ReviewListOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
		}
		return ReviewListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	reviews, total, err := u.reviewRepo.ListByProductID(ctx, productID, page, limit)
	if err != nil {
		return ReviewListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	avg, err := u.reviewRepo.AverageRating(ctx, productID)
	if err != nil {
		return ReviewListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := ReviewListOutput{
		Reviews:       make([]ReviewOutput, 0, len(reviews)),
		Total:         total,
		AverageRating: avg,
		Page:          page,
		Limit:         limit,
	}
	for _, rv := range reviews {
		out.Reviews = append(out.Reviews, toReviewOutput(rv))
	}
	return out, nil
}

func toReviewOutput(rv model.Review) ReviewOutput {
	return ReviewOutput{
		ID:        rv.ID,
		UserID:    rv.UserID,
		ProductID: rv.ProductID,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt,
		UpdatedAt: rv.UpdatedAt,
	}
}
