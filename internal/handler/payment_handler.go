package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"shopapi/internal/config"
	"shopapi/internal/middleware"
	"shopapi/internal/usecase"
)

// /payment のHTTP
type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

// DI
func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type CreatePaymentRequest struct {
	OrderID       int64  `json:"orderId" validate:"required,min=1"`
	Amount        int64  `json:"amount" validate:"min=0"`
	Method        string `json:"method"`
	Note          string `json:"note"`
	TransactionID string `json:"transactionId"`
}

type UpdatePaymentRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required"`
	Amount        *int64 `json:"amount"`
	Method        string `json:"method"`
	Note          string `json:"note"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	auth := middleware.AuthJWT(cfg)
	adminOnly := middleware.AdminRoleGuard()

	e.POST("/payment", h.create, auth)
	e.PUT("/payment/:orderId", h.update, auth, adminOnly)
}

func (h *PaymentHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.CreatePayment(c.Request().Context(), userID, usecase.CreatePaymentInput{
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		Method:        req.Method,
		Note:          req.Note,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *PaymentHandler) update(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}

	var req UpdatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "paymentStatus is required"})
	}

	out, err := h.uc.UpdatePayment(c.Request().Context(), orderID, usecase.UpdatePaymentInput{
		PaymentStatus: req.PaymentStatus,
		Amount:        req.Amount,
		Method:        req.Method,
		Note:          req.Note,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
