package usecase

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
	"shopapi/internal/vnpay"

	"github.com/sirupsen/logrus"
)

// VNPayUsecase はゲートウェイのredirect/callbackと内部状態の突き合わせ。
type VNPayUsecase struct {
	tx           repo.TransactionManager
	client       *vnpay.Client
	feSuccessURL string
	feFailureURL string
	log          *logrus.Logger
}

func NewVNPayUsecase(
	tx repo.TransactionManager,
	client *vnpay.Client,
	feSuccessURL string,
	feFailureURL string,
	log *logrus.Logger,
) *VNPayUsecase {
	return &VNPayUsecase{
		tx:           tx,
		client:       client,
		feSuccessURL: feSuccessURL,
		feFailureURL: feFailureURL,
		log:          log,
	}
}

type CreatePaymentURLInput struct {
	OrderID int64
	Amount  int64
}

type CreatePaymentURLOutput struct {
	PaymentURL string `json:"paymentUrl"`
	OrderID    int64  `json:"orderId"`
}

// CreatePaymentURL は署名付きのリダイレクトURLを返す。
func (u *VNPayUsecase) CreatePaymentURL(ctx context.Context, in CreatePaymentURLInput, clientIP string) (CreatePaymentURLOutput, error) {
	if in.OrderID <= 0 {
		return CreatePaymentURLOutput{}, NewHTTPError(http.StatusBadRequest, "invalid orderId")
	}
	if in.Amount <= 0 {
		return CreatePaymentURLOutput{}, NewHTTPError(http.StatusBadRequest, "invalid amount")
	}

	//注文が実在しないならURLも作らない
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := r.Orders().FindByID(ctx, in.OrderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return CreatePaymentURLOutput{}, err
	}

	paymentURL := u.client.BuildPaymentURL(in.OrderID, in.Amount, clientIP, time.Now())
	return CreatePaymentURLOutput{PaymentURL: paymentURL, OrderID: in.OrderID}, nil
}

// HandleReturn はコールバックを検証して、フロントへのリダイレクト先を返す。
// 署名不一致はリダイレクトせず必ず400で落とす。
func (u *VNPayUsecase) HandleReturn(ctx context.Context, query url.Values) (string, error) {
	if err := u.client.VerifyReturn(query); err != nil {
		return "", NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	ref := query.Get("vnp_TxnRef")
	orderID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || orderID <= 0 {
		return "", NewHTTPError(http.StatusBadRequest, "invalid vnp_TxnRef")
	}

	code := query.Get("vnp_ResponseCode")
	gatewayTxn := query.Get("vnp_TransactionNo")
	success := code == vnpay.CodeSuccess

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		now := time.Now()

		p, found, err := r.Payments().FindByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		status := model.PaymentStatusFailed
		orderPS := model.OrderPaymentUnpaid
		if success {
			status = model.PaymentStatusCompleted
			orderPS = model.OrderPaymentPaid
		}

		if found {
			p.Status = status
			if gatewayTxn != "" {
				p.TransactionID = gatewayTxn
			}
			if success {
				p.PaymentDate = &now
			}
			if err := r.Payments().Update(ctx, p); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		} else {
			txnID := gatewayTxn
			if txnID == "" {
				txnID = "VNP-" + strconv.FormatInt(now.Unix(), 10) + "-" + ref
			}
			np := model.Payment{
				OrderID:       orderID,
				UserID:        o.UserID,
				Amount:        o.TotalPrice,
				Method:        model.PaymentMethodVNPay,
				Status:        status,
				TransactionID: txnID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if success {
				np.PaymentDate = &now
			}
			if _, err := r.Payments().Create(ctx, np); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Orders().UpdatePaymentStatus(ctx, orderID, orderPS); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//成功した初回支払いで pending→confirmed
		if success && o.Status == model.OrderStatusPending {
			history := append(o.StatusHistory,
				model.StatusChange{Status: model.OrderStatusConfirmed, Date: now})
			upd := repo.OrderStatusUpdate{
				Status:  model.OrderStatusConfirmed,
				History: history,
			}
			if err := r.Orders().UpdateStatus(ctx, orderID, upd); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	u.log.WithFields(logrus.Fields{
		"order_id":      orderID,
		"response_code": code,
	}).Info("vnpay return processed")

	if success {
		return u.feSuccessURL + "?orderId=" + ref, nil
	}
	reason := vnpay.ResponseMessage(code)
	return u.feFailureURL + "?orderId=" + ref + "&reason=" + url.QueryEscape(reason), nil
}
