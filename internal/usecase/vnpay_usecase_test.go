package usecase_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
	"shopapi/internal/usecase"
	"shopapi/internal/vnpay"
)

var testVNPayConfig = vnpay.Config{
	TmnCode:    "DEMOV210",
	HashSecret: "RAOEXHYVSDDIIENYWSLDIIZTANXUXZFJ",
	BaseURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
	ReturnURL:  "http://localhost:8080/vnpay-return",
}

func newVNPayUsecase(repos *TxReposMock) *usecase.VNPayUsecase {
	return usecase.NewVNPayUsecase(
		&TxManagerMock{Repos: repos},
		vnpay.New(testVNPayConfig),
		"http://localhost:3000/payment/success",
		"http://localhost:3000/payment/failure",
		silentLogger(),
	)
}

// ゲートウェイと同じ手順でクエリに署名を付け直す
func signQuery(q url.Values) url.Values {
	rest := url.Values{}
	for k, vs := range q {
		if k == vnpay.HashParam {
			continue
		}
		rest[k] = vs
	}

	mac := hmac.New(sha512.New, []byte(testVNPayConfig.HashSecret))
	mac.Write([]byte(rest.Encode()))
	rest.Set(vnpay.HashParam, hex.EncodeToString(mac.Sum(nil)))
	return rest
}

// ゲートウェイが返すのと同じ形の署名付きコールバッククエリ
func signedReturnQuery(t *testing.T, orderID int64, responseCode string) url.Values {
	t.Helper()

	c := vnpay.New(testVNPayConfig)
	raw := c.BuildPaymentURL(orderID, 3000, "203.0.113.9", time.Now())
	u, err := url.Parse(raw)
	assert.NoError(t, err)

	q := u.Query()
	q.Set("vnp_ResponseCode", responseCode)
	q.Set("vnp_TransactionNo", "14588240")

	return signQuery(q)
}

func TestCreatePaymentURL_OrderMustExist(t *testing.T) {
	orders := new(OrderRepoMock)
	repos := &TxReposMock{orders: orders}

	orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{}, repo.ErrNotFound)

	uc := newVNPayUsecase(repos)

	_, err := uc.CreatePaymentURL(context.Background(), usecase.CreatePaymentURLInput{
		OrderID: 42,
		Amount:  3000,
	}, "203.0.113.9")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestCreatePaymentURL_ReturnsSignedURL(t *testing.T) {
	orders := new(OrderRepoMock)
	repos := &TxReposMock{orders: orders}

	orders.On("FindByID", mock.Anything, int64(42)).Return(pendingOrder(42), nil)

	uc := newVNPayUsecase(repos)

	out, err := uc.CreatePaymentURL(context.Background(), usecase.CreatePaymentURLInput{
		OrderID: 42,
		Amount:  3000,
	}, "203.0.113.9")

	assert.NoError(t, err)
	assert.Equal(t, int64(42), out.OrderID)

	u, err := url.Parse(out.PaymentURL)
	assert.NoError(t, err)
	assert.Equal(t, "42", u.Query().Get("vnp_TxnRef"))
	assert.NotEmpty(t, u.Query().Get(vnpay.HashParam))
}

func TestHandleReturn_InvalidSignatureRejectedWithoutRedirect(t *testing.T) {
	uc := newVNPayUsecase(&TxReposMock{})

	q := signedReturnQuery(t, 42, "00")
	//署名後に金額を書き換える
	q.Set("vnp_Amount", "1")

	redirect, err := uc.HandleReturn(context.Background(), q)

	assert.Empty(t, redirect)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, "invalid signature", he.Message)
}

func TestHandleReturn_SuccessSettlesOrder(t *testing.T) {
	orders := new(OrderRepoMock)
	payments := new(PaymentRepoMock)
	repos := &TxReposMock{orders: orders, payments: payments}

	o := pendingOrder(42)
	o.PaymentMethod = model.PaymentMethodVNPay
	orders.On("FindByID", mock.Anything, int64(42)).Return(o, nil)
	payments.On("FindByOrderID", mock.Anything, int64(42)).Return(model.Payment{}, false, nil)
	payments.On("Create", mock.Anything, mock.AnythingOfType("model.Payment")).Return(nil)
	orders.On("UpdatePaymentStatus", mock.Anything, int64(42), model.OrderPaymentPaid).Return(nil)
	orders.On("UpdateStatus", mock.Anything, int64(42), mock.AnythingOfType("repository.OrderStatusUpdate")).Return(nil)

	uc := newVNPayUsecase(repos)

	redirect, err := uc.HandleReturn(context.Background(), signedReturnQuery(t, 42, "00"))

	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/payment/success?orderId=42", redirect)

	orders.AssertCalled(t, "UpdatePaymentStatus", mock.Anything, int64(42), model.OrderPaymentPaid)
	orders.AssertCalled(t, "UpdateStatus", mock.Anything, int64(42), mock.AnythingOfType("repository.OrderStatusUpdate"))

	//作られたPaymentはゲートウェイの取引番号を持つ
	var created model.Payment
	for _, call := range payments.Calls {
		if call.Method == "Create" {
			created = call.Arguments.Get(1).(model.Payment)
		}
	}
	assert.Equal(t, "14588240", created.TransactionID)
	assert.Equal(t, model.PaymentStatusCompleted, created.Status)
	assert.NotNil(t, created.PaymentDate)
}

func TestHandleReturn_FailureCodeRedirectsWithReason(t *testing.T) {
	orders := new(OrderRepoMock)
	payments := new(PaymentRepoMock)
	repos := &TxReposMock{orders: orders, payments: payments}

	o := pendingOrder(42)
	o.PaymentMethod = model.PaymentMethodVNPay
	orders.On("FindByID", mock.Anything, int64(42)).Return(o, nil)
	payments.On("FindByOrderID", mock.Anything, int64(42)).Return(model.Payment{}, false, nil)
	payments.On("Create", mock.Anything, mock.AnythingOfType("model.Payment")).Return(nil)
	orders.On("UpdatePaymentStatus", mock.Anything, int64(42), model.OrderPaymentUnpaid).Return(nil)

	uc := newVNPayUsecase(repos)

	redirect, err := uc.HandleReturn(context.Background(), signedReturnQuery(t, 42, "24"))

	assert.NoError(t, err)

	u, perr := url.Parse(redirect)
	assert.NoError(t, perr)
	assert.Equal(t, "/payment/failure", u.Path)
	assert.Equal(t, "42", u.Query().Get("orderId"))
	assert.Equal(t, "Transaction cancelled by customer", u.Query().Get("reason"))

	//失敗コードでは確定しない
	orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)

	var created model.Payment
	for _, call := range payments.Calls {
		if call.Method == "Create" {
			created = call.Arguments.Get(1).(model.Payment)
		}
	}
	assert.Equal(t, model.PaymentStatusFailed, created.Status)
	assert.Nil(t, created.PaymentDate)
}

func TestHandleReturn_BadTxnRef(t *testing.T) {
	uc := newVNPayUsecase(&TxReposMock{})

	q := url.Values{}
	q.Set("vnp_TxnRef", "not-a-number")
	q.Set("vnp_ResponseCode", "00")

	_, err := uc.HandleReturn(context.Background(), signQuery(q))

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}
