package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
	"shopapi/internal/usecase"
)

func newPaymentUsecase(repos *TxReposMock, provider usecase.PaymentProvider) *usecase.PaymentUsecase {
	if provider == nil {
		provider = usecase.NewStubPaymentProvider(silentLogger())
	}
	return usecase.NewPaymentUsecase(&TxManagerMock{Repos: repos}, provider)
}

func TestCreatePayment_VNPayAutoSettles(t *testing.T) {
	orders := new(OrderRepoMock)
	payments := new(PaymentRepoMock)
	repos := &TxReposMock{orders: orders, payments: payments}

	o := pendingOrder(10)
	o.PaymentMethod = model.PaymentMethodVNPay
	orders.On("FindByID", mock.Anything, int64(10)).Return(o, nil)
	payments.On("FindByOrderID", mock.Anything, int64(10)).Return(model.Payment{}, false, nil)
	orders.On("UpdatePaymentStatus", mock.Anything, int64(10), model.OrderPaymentPaid).Return(nil)
	orders.On("UpdateStatus", mock.Anything, int64(10), mock.AnythingOfType("repository.OrderStatusUpdate")).Return(nil)
	payments.On("Create", mock.Anything, mock.AnythingOfType("model.Payment")).Return(nil)

	uc := newPaymentUsecase(repos, nil)

	out, err := uc.CreatePayment(context.Background(), 1, usecase.CreatePaymentInput{
		OrderID: 10,
		Amount:  3000,
	})

	assert.NoError(t, err)
	assert.Equal(t, "completed", out.Status)
	assert.Equal(t, "vnpay", out.Method)
	assert.NotNil(t, out.PaymentDate)
	assert.NotEmpty(t, out.TransactionID)

	//同じTxでOrder側も paid / confirmed に揃う
	orders.AssertCalled(t, "UpdatePaymentStatus", mock.Anything, int64(10), model.OrderPaymentPaid)
	orders.AssertCalled(t, "UpdateStatus", mock.Anything, int64(10), mock.AnythingOfType("repository.OrderStatusUpdate"))
}

func TestCreatePayment_CODStaysPending(t *testing.T) {
	orders := new(OrderRepoMock)
	payments := new(PaymentRepoMock)
	repos := &TxReposMock{orders: orders, payments: payments}

	orders.On("FindByID", mock.Anything, int64(10)).Return(pendingOrder(10), nil)
	payments.On("FindByOrderID", mock.Anything, int64(10)).Return(model.Payment{}, false, nil)
	payments.On("Create", mock.Anything, mock.AnythingOfType("model.Payment")).Return(nil)

	uc := newPaymentUsecase(repos, nil)

	out, err := uc.CreatePayment(context.Background(), 1, usecase.CreatePaymentInput{
		OrderID: 10,
		Amount:  3000,
	})

	assert.NoError(t, err)
	assert.Equal(t, "pending", out.Status)
	assert.Nil(t, out.PaymentDate)

	orders.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePayment_ReturnsExistingRow(t *testing.T) {
	orders := new(OrderRepoMock)
	payments := new(PaymentRepoMock)
	repos := &TxReposMock{orders: orders, payments: payments}

	orders.On("FindByID", mock.Anything, int64(10)).Return(pendingOrder(10), nil)
	payments.On("FindByOrderID", mock.Anything, int64(10)).
		Return(model.Payment{ID: 5, OrderID: 10, Amount: 3000, Method: model.PaymentMethodCOD, Status: model.PaymentStatusPending, TransactionID: "PAY-1"}, true, nil)

	uc := newPaymentUsecase(repos, nil)

	out, err := uc.CreatePayment(context.Background(), 1, usecase.CreatePaymentInput{
		OrderID: 10,
		Amount:  3000,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(5), out.ID)
	assert.Equal(t, "PAY-1", out.TransactionID)

	payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreatePayment_RejectsPaidOrder(t *testing.T) {
	orders := new(OrderRepoMock)
	repos := &TxReposMock{orders: orders}

	o := pendingOrder(10)
	o.PaymentStatus = model.OrderPaymentPaid
	orders.On("FindByID", mock.Anything, int64(10)).Return(o, nil)

	uc := newPaymentUsecase(repos, nil)

	_, err := uc.CreatePayment(context.Background(), 1, usecase.CreatePaymentInput{
		OrderID: 10,
		Amount:  3000,
	})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Status)
	assert.Equal(t, "order already paid, create a new order instead", he.Message)
}

func TestUpdatePayment_RefundFailureAborts(t *testing.T) {
	orders := new(OrderRepoMock)
	payments := new(PaymentRepoMock)
	repos := &TxReposMock{orders: orders, payments: payments}

	o := pendingOrder(10)
	o.PaymentMethod = model.PaymentMethodPaypal
	o.PaymentStatus = model.OrderPaymentPaid
	orders.On("FindByID", mock.Anything, int64(10)).Return(o, nil)

	now := time.Now()
	payments.On("FindByOrderID", mock.Anything, int64(10)).
		Return(model.Payment{ID: 5, OrderID: 10, Amount: 3000, Method: model.PaymentMethodPaypal, Status: model.PaymentStatusCompleted, TransactionID: "PAY-1", PaymentDate: &now}, true, nil)

	provider := usecase.NewStubPaymentProvider(silentLogger())
	provider.FailReason = "gateway timeout"

	uc := newPaymentUsecase(repos, provider)

	_, err := uc.UpdatePayment(context.Background(), 10, usecase.UpdatePaymentInput{
		PaymentStatus: "refunded",
	})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Status)
	assert.Equal(t, "refund failed: gateway timeout", he.Message)

	payments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePayment_CreatesRowWhenMissing(t *testing.T) {
	orders := new(OrderRepoMock)
	payments := new(PaymentRepoMock)
	items := new(OrderItemRepoMock)
	repos := &TxReposMock{orders: orders, payments: payments, orderItems: items}

	orders.On("FindByID", mock.Anything, int64(10)).Return(pendingOrder(10), nil)
	payments.On("FindByOrderID", mock.Anything, int64(10)).Return(model.Payment{}, false, nil)
	payments.On("Create", mock.Anything, mock.AnythingOfType("model.Payment")).Return(nil)
	orders.On("UpdatePaymentStatus", mock.Anything, int64(10), model.OrderPaymentPaid).Return(nil)
	items.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{}, nil)

	uc := newPaymentUsecase(repos, nil)

	out, err := uc.UpdatePayment(context.Background(), 10, usecase.UpdatePaymentInput{
		PaymentStatus: "paid",
	})

	assert.NoError(t, err)
	assert.Equal(t, "paid", out.Order.PaymentStatus)
	if assert.NotNil(t, out.Payment) {
		assert.Equal(t, "completed", out.Payment.Status)
		assert.Equal(t, int64(3000), out.Payment.Amount)
	}
}

func TestUpdatePayment_RejectsUnknownStatus(t *testing.T) {
	uc := newPaymentUsecase(&TxReposMock{}, nil)

	_, err := uc.UpdatePayment(context.Background(), 10, usecase.UpdatePaymentInput{
		PaymentStatus: "chargeback",
	})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}

var _ repo.TransactionManager = (*TxManagerMock)(nil)
