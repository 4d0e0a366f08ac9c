package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
)

// PaymentUsecase がPayment行とOrder.payment_statusの突き合わせを持つ。
// Paymentは注文1件につき最大1件。uniqueIndexに加えて作成前チェックで守る。
type PaymentUsecase struct {
	tx       repo.TransactionManager
	provider PaymentProvider
}

func NewPaymentUsecase(tx repo.TransactionManager, provider PaymentProvider) *PaymentUsecase {
	return &PaymentUsecase{tx: tx, provider: provider}
}

type CreatePaymentInput struct {
	OrderID       int64
	Amount        int64
	Method        string
	Note          string
	TransactionID string
}

type PaymentOutput struct {
	ID            int64      `json:"id"`
	OrderID       int64      `json:"order_id"`
	UserID        int64      `json:"user_id"`
	Amount        int64      `json:"amount"`
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	TransactionID string     `json:"transaction_id"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
	Note          string     `json:"note,omitempty"`
}

// CreatePayment は決済を作る。
// momo/paypal/vnpay/bank は即時確定扱いで、同じTxの中で
// Order.payment_status=paid と pending→confirmed を反映する。codはpendingのまま。
func (u *PaymentUsecase) CreatePayment(ctx context.Context, userID int64, in CreatePaymentInput) (PaymentOutput, error) {
	if userID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.OrderID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}
	if in.Amount <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid amount")
	}

	var out PaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, in.OrderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//支払い済み・完了済みの注文には作らせない
		if o.PaymentStatus == model.OrderPaymentPaid || o.Status == model.OrderStatusDelivered {
			return NewHTTPError(http.StatusConflict, "order already paid, create a new order instead")
		}

		//既にあるならそれを返す（重複行は作らない）
		existing, found, err := r.Payments().FindByOrderID(ctx, in.OrderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			out = toPaymentOutput(existing)
			return nil
		}

		method := model.PaymentMethod(strings.TrimSpace(in.Method))
		if method == "" {
			method = o.PaymentMethod
		}
		if !method.Valid() {
			return NewHTTPError(http.StatusBadRequest, "invalid method")
		}

		now := time.Now()

		txnID := strings.TrimSpace(in.TransactionID)
		if txnID == "" {
			//外部から来ない場合は時刻と注文から導出
			txnID = fmt.Sprintf("PAY-%d-%d", now.Unix(), in.OrderID)
		}

		p := model.Payment{
			OrderID:       in.OrderID,
			UserID:        o.UserID,
			Amount:        in.Amount,
			Method:        method,
			Status:        model.PaymentStatusPending,
			TransactionID: txnID,
			Note:          in.Note,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if method.AutoSettling() {
			p.Status = model.PaymentStatusCompleted
			p.PaymentDate = &now

			if err := r.Orders().UpdatePaymentStatus(ctx, in.OrderID, model.OrderPaymentPaid); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if o.Status == model.OrderStatusPending {
				history := append(o.StatusHistory,
					model.StatusChange{Status: model.OrderStatusConfirmed, Date: now})
				upd := repo.OrderStatusUpdate{
					Status:  model.OrderStatusConfirmed,
					History: history,
				}
				if err := r.Orders().UpdateStatus(ctx, in.OrderID, upd); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
		}

		created, err := r.Payments().Create(ctx, p)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toPaymentOutput(created)
		return nil
	})

	if err != nil {
		return PaymentOutput{}, err
	}
	return out, nil
}

type UpdatePaymentInput struct {
	PaymentStatus string
	Amount        *int64
	Method        string
	Note          string
}

type OrderWithPaymentOutput struct {
	Order   OrderOutput    `json:"order"`
	Payment *PaymentOutput `json:"payment,omitempty"`
}

// 外向きの paid/refunded/unpaid をPayment内部の語彙へ写す
func mapExternalPaymentStatus(s string) (model.PaymentStatus, model.OrderPaymentStatus, bool) {
	switch model.OrderPaymentStatus(s) {
	case model.OrderPaymentPaid:
		return model.PaymentStatusCompleted, model.OrderPaymentPaid, true
	case model.OrderPaymentRefunded:
		return model.PaymentStatusRefunded, model.OrderPaymentRefunded, true
	case model.OrderPaymentUnpaid:
		return model.PaymentStatusPending, model.OrderPaymentUnpaid, true
	}
	return "", "", false
}

// UpdatePayment は外向きステータスで照合し直す。
// refundedでオンライン決済なら先にプロバイダへ返金依頼し、失敗なら中断。
// Payment行が無ければ作り、あれば更新。結果は必ずOrder側にも写す。
func (u *PaymentUsecase) UpdatePayment(ctx context.Context, orderID int64, in UpdatePaymentInput) (OrderWithPaymentOutput, error) {
	if orderID <= 0 {
		return OrderWithPaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}

	internal, external, ok := mapExternalPaymentStatus(strings.TrimSpace(in.PaymentStatus))
	if !ok {
		return OrderWithPaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_status")
	}

	var out OrderWithPaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		p, found, err := r.Payments().FindByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//オンライン決済の返金は先に外部へ依頼する
		if external == model.OrderPaymentRefunded && o.PaymentMethod.AutoSettling() {
			amount := o.TotalPrice
			if in.Amount != nil {
				amount = *in.Amount
			}
			txnID := ""
			if found {
				txnID = p.TransactionID
			}
			if err := u.provider.Refund(ctx, txnID, amount); err != nil {
				return NewHTTPError(http.StatusConflict, "refund failed: "+err.Error())
			}
		}

		now := time.Now()

		if !found {
			p = model.Payment{
				OrderID:       orderID,
				UserID:        o.UserID,
				Amount:        o.TotalPrice,
				Method:        o.PaymentMethod,
				Status:        internal,
				TransactionID: fmt.Sprintf("PAY-%d-%d", now.Unix(), orderID),
				Note:          in.Note,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if internal == model.PaymentStatusCompleted {
				p.PaymentDate = &now
			}
			if in.Amount != nil {
				p.Amount = *in.Amount
			}
			if m := model.PaymentMethod(strings.TrimSpace(in.Method)); m.Valid() {
				p.Method = m
			}

			p, err = r.Payments().Create(ctx, p)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		} else {
			p.Status = internal
			if internal == model.PaymentStatusCompleted && p.PaymentDate == nil {
				p.PaymentDate = &now
			}
			if in.Amount != nil {
				p.Amount = *in.Amount
			}
			if m := model.PaymentMethod(strings.TrimSpace(in.Method)); m.Valid() {
				p.Method = m
			}
			if in.Note != "" {
				p.Note = in.Note
			}

			if err := r.Payments().Update(ctx, p); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		//同じ写像でOrder側へミラー
		if err := r.Orders().UpdatePaymentStatus(ctx, orderID, external); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		o.PaymentStatus = external

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		po := toPaymentOutput(p)
		out = OrderWithPaymentOutput{
			Order:   toOrderOutput(o, items),
			Payment: &po,
		}
		return nil
	})

	if err != nil {
		return OrderWithPaymentOutput{}, err
	}
	return out, nil
}

// CompletePayment は決済確定。
// createPaymentの即時確定と同じ終着点（completed+paid）へ収束させる。
func (u *PaymentUsecase) CompletePayment(ctx context.Context, paymentID int64, transactionID string) (PaymentOutput, error) {
	if paymentID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out PaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByID(ctx, paymentID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "payment not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		now := time.Now()
		p.Status = model.PaymentStatusCompleted
		p.PaymentDate = &now
		if strings.TrimSpace(transactionID) != "" {
			p.TransactionID = strings.TrimSpace(transactionID)
		}

		if err := r.Payments().Update(ctx, p); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Orders().UpdatePaymentStatus(ctx, p.OrderID, model.OrderPaymentPaid); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toPaymentOutput(p)
		return nil
	})

	if err != nil {
		return PaymentOutput{}, err
	}
	return out, nil
}

// RefundPayment は返金確定をPaymentとOrderの両方に反映する。
func (u *PaymentUsecase) RefundPayment(ctx context.Context, paymentID int64, note string) (PaymentOutput, error) {
	if paymentID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out PaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByID(ctx, paymentID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "payment not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		p.Status = model.PaymentStatusRefunded
		if note != "" {
			p.Note = note
		}

		if err := r.Payments().Update(ctx, p); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Orders().UpdatePaymentStatus(ctx, p.OrderID, model.OrderPaymentRefunded); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toPaymentOutput(p)
		return nil
	})

	if err != nil {
		return PaymentOutput{}, err
	}
	return out, nil
}

func toPaymentOutput(p model.Payment) PaymentOutput {
	return PaymentOutput{
		ID:            p.ID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		Method:        string(p.Method),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		PaymentDate:   p.PaymentDate,
		Note:          p.Note,
	}
}
