package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
	"shopapi/internal/usecase"
)

func TestUpsertReview_VerifiedBuyerOnly(t *testing.T) {
	reviews := new(ReviewRepoMock)
	items := new(OrderItemRepoMock)
	products := new(ProductRepoMock)

	products.On("FindByID", mock.Anything, int64(7)).
		Return(model.Product{ID: 7, Name: "Keyboard", IsActive: true}, nil)
	items.On("ExistsDeliveredItem", mock.Anything, int64(1), int64(7)).Return(false, nil)

	uc := usecase.NewReviewUsecase(reviews, items, products)

	_, err := uc.Upsert(context.Background(), 1, 7, usecase.UpsertReviewInput{Rating: 5})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusForbidden, he.Status)
	assert.Equal(t, "only verified buyers can review", he.Message)

	reviews.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestUpsertReview_SavesForBuyer(t *testing.T) {
	reviews := new(ReviewRepoMock)
	items := new(OrderItemRepoMock)
	products := new(ProductRepoMock)

	products.On("FindByID", mock.Anything, int64(7)).
		Return(model.Product{ID: 7, Name: "Keyboard", IsActive: true}, nil)
	items.On("ExistsDeliveredItem", mock.Anything, int64(1), int64(7)).Return(true, nil)
	reviews.On("Upsert", mock.Anything, mock.AnythingOfType("model.Review")).Return(nil)

	uc := usecase.NewReviewUsecase(reviews, items, products)

	out, err := uc.Upsert(context.Background(), 1, 7, usecase.UpsertReviewInput{Rating: 4, Comment: "solid"})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), out.UserID)
	assert.Equal(t, int64(7), out.ProductID)
	assert.Equal(t, 4, out.Rating)
	assert.Equal(t, "solid", out.Comment)
}

func TestUpsertReview_RatingBounds(t *testing.T) {
	uc := usecase.NewReviewUsecase(new(ReviewRepoMock), new(OrderItemRepoMock), new(ProductRepoMock))

	for _, rating := range []int{0, 6, -1} {
		_, err := uc.Upsert(context.Background(), 1, 7, usecase.UpsertReviewInput{Rating: rating})

		he, ok := usecase.AsHTTPError(err)
		assert.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, he.Status)
	}
}

func TestUpsertReview_UnknownProduct(t *testing.T) {
	reviews := new(ReviewRepoMock)
	items := new(OrderItemRepoMock)
	products := new(ProductRepoMock)

	products.On("FindByID", mock.Anything, int64(7)).Return(model.Product{}, repo.ErrNotFound)

	uc := usecase.NewReviewUsecase(reviews, items, products)

	_, err := uc.Upsert(context.Background(), 1, 7, usecase.UpsertReviewInput{Rating: 5})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestListReviews_IncludesAverage(t *testing.T) {
	reviews := new(ReviewRepoMock)
	items := new(OrderItemRepoMock)
	products := new(ProductRepoMock)

	products.On("FindByID", mock.Anything, int64(7)).
		Return(model.Product{ID: 7, Name: "Keyboard", IsActive: true}, nil)
	reviews.On("ListByProductID", mock.Anything, int64(7), 1, 20).
		Return([]model.Review{
			{ID: 1, UserID: 1, ProductID: 7, Rating: 5},
			{ID: 2, UserID: 2, ProductID: 7, Rating: 4},
		}, int64(2), nil)
	reviews.On("AverageRating", mock.Anything, int64(7)).Return(4.5, nil)

	uc := usecase.NewReviewUsecase(reviews, items, products)

	out, err := uc.ListByProduct(context.Background(), 7, 1, 20)

	assert.NoError(t, err)
	assert.Len(t, out.Reviews, 2)
	assert.Equal(t, int64(2), out.Total)
	assert.Equal(t, 4.5, out.AverageRating)
}
