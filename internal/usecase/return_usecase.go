package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
)

// ReturnUsecase は注文明細単位の返品ワークフロー。
// requested -> approved -> completed / requested -> rejected
type ReturnUsecase struct {
	tx repo.TransactionManager
}

func NewReturnUsecase(tx repo.TransactionManager) *ReturnUsecase {
	return &ReturnUsecase{tx: tx}
}

type RequestReturnInput struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type ReturnOutput struct {
	ItemID      int64              `json:"item_id"`
	OrderID     int64              `json:"order_id"`
	ProductID   int64              `json:"product_id"`
	ProductName string             `json:"product_name"`
	Quantity    int64              `json:"quantity"`
	Subtotal    int64              `json:"subtotal"`
	Status      model.ReturnStatus `json:"status"`
	Reason      string             `json:"reason,omitempty"`
	RequestedAt *time.Time         `json:"requested_at,omitempty"`
	ResolvedAt  *time.Time         `json:"resolved_at,omitempty"`
}

// RequestReturn は購入者による返品申請。配達済み注文の明細のみ。
func (u *ReturnUsecase) RequestReturn(ctx context.Context, userID int64, itemID int64, in RequestReturnInput) (ReturnOutput, error) {
	if userID <= 0 {
		return ReturnOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return ReturnOutput{}, NewHTTPError(http.StatusBadRequest, "reason is required")
	}

	var out ReturnOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.OrderItems().FindByID(ctx, itemID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order item not found")
		}
		if err != nil {
			return err
		}

		order, err := r.Orders().FindByID(ctx, item.OrderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order item not found")
		}
		if err != nil {
			return err
		}
		if order.UserID != userID {
			// 他人の明細は存在を明かさない
			return NewHTTPError(http.StatusNotFound, "order item not found")
		}
		if order.Status != model.OrderStatusDelivered {
			return NewHTTPError(http.StatusConflict, "only delivered orders can be returned")
		}
		if item.ReturnStatus != model.ReturnStatusNone {
			return NewHTTPError(http.StatusConflict, "return already requested")
		}

		now := time.Now()
		upd := repo.ReturnUpdate{
			Status:      model.ReturnStatusRequested,
			Reason:      strings.TrimSpace(in.Reason),
			RequestedAt: &now,
		}
		if err := r.OrderItems().UpdateReturn(ctx, itemID, upd); err != nil {
			return err
		}

		item.ReturnStatus = upd.Status
		item.ReturnReason = upd.Reason
		item.ReturnRequestedAt = upd.RequestedAt
		out = toReturnOutput(item)
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return ReturnOutput{}, he
		}
		return ReturnOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

// ResolveReturn は管理者による承認/却下。
func (u *ReturnUsecase) ResolveReturn(ctx context.Context, itemID int64, approve bool) (ReturnOutput, error) {
	var out ReturnOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.OrderItems().FindByID(ctx, itemID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order item not found")
		}
		if err != nil {
			return err
		}
		if item.ReturnStatus != model.ReturnStatusRequested {
			return NewHTTPError(http.StatusConflict, "return is not in requested state")
		}

		status := model.ReturnStatusRejected
		if approve {
			status = model.ReturnStatusApproved
		}
		now := time.Now()
		upd := repo.ReturnUpdate{
			Status:      status,
			Reason:      item.ReturnReason,
			RequestedAt: item.ReturnRequestedAt,
			ResolvedAt:  &now,
		}
		if err := r.OrderItems().UpdateReturn(ctx, itemID, upd); err != nil {
			return err
		}

		item.ReturnStatus = status
		item.ReturnResolvedAt = &now
		out = toReturnOutput(item)
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return ReturnOutput{}, he
		}
		return ReturnOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

// CompleteReturn は返送品の受領確認。在庫を戻し売上数を減らす。
// 返金は決済側（PUT /payment/:orderId で refunded）の責務。
func (u *ReturnUsecase) CompleteReturn(ctx context.Context, itemID int64) (ReturnOutput, error) {
	var out ReturnOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.OrderItems().FindByID(ctx, itemID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order item not found")
		}
		if err != nil {
			return err
		}
		if item.ReturnStatus != model.ReturnStatusApproved {
			return NewHTTPError(http.StatusConflict, "return is not approved")
		}

		if err := r.Inventory().IncreaseStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		if err := r.Inventory().DecreaseSoldFloored(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}

		now := time.Now()
		upd := repo.ReturnUpdate{
			Status:      model.ReturnStatusCompleted,
			Reason:      item.ReturnReason,
			RequestedAt: item.ReturnRequestedAt,
			ResolvedAt:  &now,
		}
		if err := r.OrderItems().UpdateReturn(ctx, itemID, upd); err != nil {
			return err
		}

		item.ReturnStatus = model.ReturnStatusCompleted
		item.ReturnResolvedAt = &now
		out = toReturnOutput(item)
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return ReturnOutput{}, he
		}
		return ReturnOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

func toReturnOutput(item model.OrderItem) ReturnOutput {
	return ReturnOutput{
		ItemID:      item.ID,
		OrderID:     item.OrderID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		Subtotal:    item.Subtotal,
		Status:      item.ReturnStatus,
		Reason:      item.ReturnReason,
		RequestedAt: item.ReturnRequestedAt,
		ResolvedAt:  item.ReturnResolvedAt,
	}
}
