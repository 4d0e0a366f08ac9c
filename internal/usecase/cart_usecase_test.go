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

func TestAddToCart_SnapshotsPriceAndTotals(t *testing.T) {
	carts := new(CartRepoMock)
	cartItems := new(CartItemRepoMock)
	products := new(ProductRepoMock)

	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	products.On("FindByID", mock.Anything, int64(7)).
		Return(model.Product{ID: 7, Name: "Keyboard", Price: 1500, IsActive: true}, nil)
	cartItems.On("UpsertByCartAndProduct", mock.Anything, int64(3), int64(7), int64(2), int64(1500)).Return(nil)
	cartItems.On("ListByCartID", mock.Anything, int64(3)).
		Return([]model.CartItem{
			{ID: 1, CartID: 3, ProductID: 7, Quantity: 2, UnitPriceSnapshot: 1500},
		}, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, products)

	out, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 7, Quantity: 2})

	assert.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, int64(1500), out.Items[0].Price)
	assert.Equal(t, int64(3000), out.Total)
}

func TestAddToCart_InactiveProductRejected(t *testing.T) {
	carts := new(CartRepoMock)
	cartItems := new(CartItemRepoMock)
	products := new(ProductRepoMock)

	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	products.On("FindByID", mock.Anything, int64(7)).
		Return(model.Product{ID: 7, Name: "Keyboard", Price: 1500, IsActive: false}, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, products)

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 7, Quantity: 1})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)

	cartItems.AssertNotCalled(t, "UpsertByCartAndProduct",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateCartItem_ZeroQuantityDeletes(t *testing.T) {
	carts := new(CartRepoMock)
	cartItems := new(CartItemRepoMock)
	products := new(ProductRepoMock)

	cartItems.On("IsOwnedByUser", mock.Anything, int64(1), int64(1)).Return(true, nil)
	cartItems.On("FindByID", mock.Anything, int64(1)).
		Return(model.CartItem{ID: 1, CartID: 3, ProductID: 7, Quantity: 2, UnitPriceSnapshot: 1500}, nil)
	cartItems.On("DeleteByID", mock.Anything, int64(1)).Return(nil)
	cartItems.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{}, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, products)

	out, err := uc.UpdateItem(context.Background(), 1, 1, usecase.UpdateCartItemInput{Quantity: 0})

	assert.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Equal(t, int64(0), out.Total)

	cartItems.AssertCalled(t, "DeleteByID", mock.Anything, int64(1))
	cartItems.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateCartItem_OtherUsersItemHidden(t *testing.T) {
	carts := new(CartRepoMock)
	cartItems := new(CartItemRepoMock)
	products := new(ProductRepoMock)

	cartItems.On("IsOwnedByUser", mock.Anything, int64(1), int64(1)).Return(false, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, products)

	_, err := uc.UpdateItem(context.Background(), 1, 1, usecase.UpdateCartItemInput{Quantity: 3})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestGetCart_CreatesActiveCartWhenMissing(t *testing.T) {
	carts := new(CartRepoMock)
	cartItems := new(CartItemRepoMock)
	products := new(ProductRepoMock)

	carts.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 3, UserID: 1}, nil)
	cartItems.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{}, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, products)

	out, err := uc.GetCart(context.Background(), 1)

	assert.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Equal(t, int64(0), out.Total)
}

var _ repo.CartItemRepository = (*CartItemRepoMock)(nil)
