package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shopapi/internal/domain/model"
	"shopapi/internal/notifier"
	repo "shopapi/internal/repository"

	"github.com/sirupsen/logrus"
)

// OrderUsecase が注文ライフサイクルの唯一の入り口。
// 在庫の減算は注文作成時の1回だけ（予約方式）。配達確定ではsoldだけ動かし、
// キャンセルで予約を戻す。
type OrderUsecase struct {
	tx       repo.TransactionManager
	userRepo repo.UserRepository
	notify   notifier.Notifier
	log      *logrus.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	userRepo repo.UserRepository,
	notify notifier.Notifier,
	log *logrus.Logger,
) *OrderUsecase {
	return &OrderUsecase{tx: tx, userRepo: userRepo, notify: notify, log: log}
}

type CreateOrderItemInput struct {
	ProductID   int64
	ProductName string
	Quantity    int64
	Price       int64
}

type CreateOrderInput struct {
	ShippingAddress string
	PaymentMethod   string
	Note            string
	Items           []CreateOrderItemInput
}

type OrderItemOutput struct {
	ID           int64  `json:"id"`
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	Quantity     int64  `json:"quantity"`
	Price        int64  `json:"price"`
	Subtotal     int64  `json:"subtotal"`
	ReturnStatus string `json:"return_status"`
}

type OrderOutput struct {
	ID              int64               `json:"id"`
	UserID          int64               `json:"user_id"`
	ShippingAddress string              `json:"shipping_address"`
	Note            string              `json:"note,omitempty"`
	PaymentMethod   string              `json:"payment_method"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	TotalPrice      int64               `json:"total_price"`
	History         model.StatusHistory `json:"confirmation_history"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	Items           []OrderItemOutput   `json:"items"`
}

// Create は注文と明細を作り、商品ごとに在庫を再チェックして減算する。
// どれか1つでも足りなければ全部ロールバック。
func (u *OrderUsecase) Create(ctx context.Context, userID int64, in CreateOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "shipping_address is required")
	}
	method := model.PaymentMethod(strings.TrimSpace(in.PaymentMethod))
	if !method.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}
	if len(in.Items) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "order items are required")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 || it.Quantity < 1 || it.Price < 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order item")
		}
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := time.Now()

		orderItems := make([]model.OrderItem, 0, len(in.Items))
		productIDs := make([]int64, 0, len(in.Items))
		var total int64 = 0

		for _, it := range in.Items {
			//商品をTx内で再読みする
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "invalid product")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			//在庫減算（足りないなら false）
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusConflict,
					fmt.Sprintf("insufficient stock for %s", p.Name))
			}

			name := it.ProductName
			if name == "" {
				name = p.Name
			}

			//スナップショット。subtotalは再計算せずここで確定。
			orderItems = append(orderItems, model.OrderItem{
				ProductID:    it.ProductID,
				ProductName:  name,
				Quantity:     it.Quantity,
				Price:        it.Price,
				Subtotal:     it.Price * it.Quantity,
				ReturnStatus: model.ReturnStatusNone,
				CreatedAt:    now,
			})
			productIDs = append(productIDs, it.ProductID)
			total += it.Price * it.Quantity
		}

		order := model.Order{
			UserID:          userID,
			ShippingAddress: in.ShippingAddress,
			Note:            in.Note,
			PaymentMethod:   method,
			Status:          model.OrderStatusPending,
			PaymentStatus:   model.OrderPaymentUnpaid,
			TotalPrice:      total,
			StatusHistory: model.StatusHistory{
				{Status: model.OrderStatusPending, Date: now},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//注文した商品をカートから消す（カートが無ければ何もしない）
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == nil {
			if err := r.CartItems().DeleteByCartAndProducts(ctx, cart.ID, productIDs); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		} else if err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order.ID = orderID
		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

type UpdateStatusInput struct {
	Status string
}

// UpdateStatus が状態機械の本体。
// 遷移は pending → confirmed → processing → shipped → delivered、
// cancelled は非終端のどこからでも。履歴は遷移のたびに追記する。
func (u *OrderUsecase) UpdateStatus(ctx context.Context, orderID int64, in UpdateStatusInput) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	newStatus := model.OrderStatus(strings.TrimSpace(in.Status))
	if !newStatus.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out OrderOutput
	var delivered bool

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out = toOrderOutput(o, items)
			return nil
		}

		// 終端ガード
		if o.Status == model.OrderStatusCancelled {
			return NewHTTPError(http.StatusConflict, "order already cancelled")
		}
		if o.Status == model.OrderStatusDelivered && newStatus != model.OrderStatusCancelled {
			return NewHTTPError(http.StatusConflict, "order already delivered")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		now := time.Now()
		prev := o.Status

		// 副作用は前→後のペアで決まる
		switch {
		case newStatus == model.OrderStatusDelivered:
			//配達確定。soldだけ加算（在庫は作成時に減算済み）。
			for _, it := range items {
				if err := r.Inventory().IncreaseSold(ctx, it.ProductID, it.Quantity); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}

		case newStatus == model.OrderStatusCancelled && prev == model.OrderStatusDelivered:
			//配達後キャンセル。在庫を戻してsoldを取り消す（0未満にはしない）。
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				if err := r.Inventory().DecreaseSoldFloored(ctx, it.ProductID, it.Quantity); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}

		case newStatus == model.OrderStatusCancelled:
			//配達前キャンセル。予約した在庫を戻すだけ。
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
		}

		o.StatusHistory = append(o.StatusHistory, model.StatusChange{Status: newStatus, Date: now})
		o.Status = newStatus

		upd := repo.OrderStatusUpdate{
			Status:  newStatus,
			History: o.StatusHistory,
		}
		if newStatus == model.OrderStatusDelivered {
			o.DeliveredAt = &now
			upd.DeliveredAt = &now
			delivered = true
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, upd); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	// 通知はcommit後。失敗してもステータス変更は巻き戻さない。
	if delivered {
		u.notifyDelivered(out)
	}

	return out, nil
}

func (u *OrderUsecase) notifyDelivered(o OrderOutput) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		user, err := u.userRepo.FindByID(ctx, o.UserID)
		if err != nil {
			u.log.WithFields(logrus.Fields{
				"order_id": o.ID,
				"error":    err,
			}).Warn("skip delivery notification: user lookup failed")
			return
		}

		//失敗はNotifier側でログ済み
		_ = u.notify.OrderDelivered(notifier.OrderDeliveredNotice{
			OrderID:    o.ID,
			Email:      user.Email,
			TotalPrice: o.TotalPrice,
		})
	}()
}

type UpdatePaymentStatusInput struct {
	PaymentStatus string
}

// UpdatePaymentStatus は unpaid/paid/refunded 以外を弾いて保存する。
func (u *OrderUsecase) UpdatePaymentStatus(ctx context.Context, orderID int64, in UpdatePaymentStatusInput) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ps := model.OrderPaymentStatus(strings.TrimSpace(in.PaymentStatus))
	if !ps.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_status")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Orders().UpdatePaymentStatus(ctx, orderID, ps); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		o.PaymentStatus = ps

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// Delete はハードデリート。明細と決済行も同じTxで消す。
func (u *OrderUsecase) Delete(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.OrderItems().DeleteByOrderID(ctx, orderID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Payments().DeleteByOrderID(ctx, orderID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Orders().Delete(ctx, orderID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//ページングはまずは固定で取る
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Quantity:     it.Quantity,
			Price:        it.Price,
			Subtotal:     it.Subtotal,
			ReturnStatus: string(it.ReturnStatus),
		})
	}

	return OrderOutput{
		ID:              o.ID,
		UserID:          o.UserID,
		ShippingAddress: o.ShippingAddress,
		Note:            o.Note,
		PaymentMethod:   string(o.PaymentMethod),
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		TotalPrice:      o.TotalPrice,
		History:         o.StatusHistory,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
		Items:           outItems,
	}
}
