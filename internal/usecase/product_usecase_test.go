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

func TestListProducts_NormalizesPaging(t *testing.T) {
	products := &ProductRepoMock{}
	products.On("ListPublic", mock.Anything, mock.AnythingOfType("repository.ProductListQuery")).
		Return([]model.Product{{ID: 1, Name: "Mouse", Price: 2500, IsActive: true}}, int64(1), nil)

	u := usecase.NewProductUsecase(products)

	out, err := u.List(context.Background(), usecase.ListProductsInput{Page: 0, Limit: 999})
	assert.NoError(t, err)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 20, out.Limit)
	assert.Equal(t, int64(1), out.Total)
	assert.Len(t, out.Items, 1)

	q := products.Calls[0].Arguments.Get(1).(repo.ProductListQuery)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.Limit)
}

func TestGetProduct_InactiveIsHidden(t *testing.T) {
	products := &ProductRepoMock{}
	products.On("FindByID", mock.Anything, int64(9)).
		Return(model.Product{ID: 9, Name: "Old Keyboard", IsActive: false}, nil)

	u := usecase.NewProductUsecase(products)

	_, err := u.Get(context.Background(), 9)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestGetProduct_NotFound(t *testing.T) {
	products := &ProductRepoMock{}
	products.On("FindByID", mock.Anything, int64(404)).
		Return(model.Product{}, repo.ErrNotFound)

	u := usecase.NewProductUsecase(products)

	_, err := u.Get(context.Background(), 404)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestCreateProduct_TrimsNameAndAssignsID(t *testing.T) {
	products := &ProductRepoMock{}
	products.On("Create", mock.Anything, mock.AnythingOfType("model.Product")).Return(nil)

	u := usecase.NewProductUsecase(products)

	out, err := u.Create(context.Background(), usecase.SaveProductInput{
		Name:     "  Gaming Mouse  ",
		Price:    4500,
		Stock:    30,
		IsActive: true,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(7), out.ID)
	assert.Equal(t, "Gaming Mouse", out.Name)
	assert.Equal(t, int64(4500), out.Price)
}

func TestCreateProduct_Validation(t *testing.T) {
	u := usecase.NewProductUsecase(&ProductRepoMock{})

	cases := []usecase.SaveProductInput{
		{Name: "   ", Price: 100, Stock: 1},
		{Name: "Mouse", Price: -1, Stock: 1},
		{Name: "Mouse", Price: 100, Stock: -1},
	}
	for _, in := range cases {
		_, err := u.Create(context.Background(), in)
		he, ok := usecase.AsHTTPError(err)
		assert.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, he.Status)
	}
}

func TestUpdateProduct_KeepsSoldCounter(t *testing.T) {
	products := &ProductRepoMock{}
	products.On("FindByID", mock.Anything, int64(9)).
		Return(model.Product{ID: 9, Name: "Mouse", Price: 2500, Stock: 10, Sold: 42, IsActive: true}, nil)
	products.On("Update", mock.Anything, mock.AnythingOfType("model.Product")).Return(nil)

	u := usecase.NewProductUsecase(products)

	out, err := u.Update(context.Background(), 9, usecase.SaveProductInput{
		Name:     "Mouse v2",
		Price:    2800,
		Stock:    15,
		IsActive: true,
	})
	assert.NoError(t, err)
	assert.Equal(t, "Mouse v2", out.Name)
	assert.Equal(t, int64(42), out.Sold)

	updated := products.Calls[1].Arguments.Get(1).(model.Product)
	assert.Equal(t, int64(42), updated.Sold)
}

func TestDeleteProduct_NotFound(t *testing.T) {
	products := &ProductRepoMock{}
	products.On("SoftDelete", mock.Anything, int64(404)).Return(repo.ErrNotFound)

	u := usecase.NewProductUsecase(products)

	err := u.Delete(context.Background(), 404)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

var _ repo.ProductRepository = (*ProductRepoMock)(nil)
