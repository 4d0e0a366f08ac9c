package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"shopapi/internal/config"
	"shopapi/internal/middleware"
	repo "shopapi/internal/repository"
	"shopapi/internal/usecase"
)

// 管理者による注文操作のHTTP
type AdminOrderHandler struct {
	uc       *usecase.OrderUsecase
	returnUC *usecase.ReturnUsecase
}

// DI
func NewAdminOrderHandler(uc *usecase.OrderUsecase, returnUC *usecase.ReturnUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc, returnUC: returnUC}
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type UpdateOrderPaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required"`
}

type ResolveReturnRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject complete"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	auth := middleware.AuthJWT(cfg)
	adminOnly := middleware.AdminRoleGuard()

	e.PUT("/order/:id/status", h.updateStatus, auth, adminOnly)
	e.PUT("/order/:id/payment-status", h.updatePaymentStatus, auth, adminOnly)
	e.DELETE("/order/:id", h.deleteOrder, auth, adminOnly)
	e.PUT("/order/:id/items/:itemId/return", h.resolveReturn, auth, adminOnly)

	e.GET("/admin/orders", h.listOrders, auth, adminOnly)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "status is required"})
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), orderID, usecase.UpdateStatusInput{
		Status: req.Status,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updatePaymentStatus(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req UpdateOrderPaymentStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "paymentStatus is required"})
	}

	out, err := h.uc.UpdatePaymentStatus(c.Request().Context(), orderID, usecase.UpdatePaymentStatusInput{
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) deleteOrder(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.Delete(c.Request().Context(), orderID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminOrderHandler) resolveReturn(c echo.Context) error {
	itemID, err := strconv.ParseInt(c.Param("itemId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid item id"})
	}

	var req ResolveReturnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "action must be approve, reject or complete"})
	}

	var out usecase.ReturnOutput
	switch req.Action {
	case "approve":
		out, err = h.returnUC.ResolveReturn(c.Request().Context(), itemID, true)
	case "reject":
		out, err = h.returnUC.ResolveReturn(c.Request().Context(), itemID, false)
	case "complete":
		out, err = h.returnUC.CompleteReturn(c.Request().Context(), itemID)
	}
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) listOrders(c echo.Context) error {
	f := repo.AdminOrderListFilter{Page: 1, Limit: 50}

	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		f.Page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		f.Limit = l
	}

	f.Status = c.QueryParam("status")

	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
		}
		f.UserID = &id
	}

	if v := c.QueryParam("from"); v != "" {
		t, ok := usecase.ParseDateTimeRFC3339(v)
		if !ok {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
		}
		f.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, ok := usecase.ParseDateTimeRFC3339(v)
		if !ok {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
		}
		f.To = t
	}

	out, err := h.uc.ListAdmin(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
