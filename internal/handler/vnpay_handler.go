package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shopapi/internal/config"
	"shopapi/internal/middleware"
	"shopapi/internal/usecase"
)

// VNPayゲートウェイのHTTP。/vnpay-return はゲートウェイが叩くので認証なし。
type VNPayHandler struct {
	uc *usecase.VNPayUsecase
}

// DI
func NewVNPayHandler(uc *usecase.VNPayUsecase) *VNPayHandler {
	return &VNPayHandler{uc: uc}
}

type CreateVNPayURLRequest struct {
	OrderID int64 `json:"orderId" validate:"required,min=1"`
	Amount  int64 `json:"amount" validate:"required,min=1"`
}

func (h *VNPayHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	e.POST("/vnpay/create", h.createPaymentURL, middleware.AuthJWT(cfg))
	e.GET("/vnpay-return", h.handleReturn)
}

func (h *VNPayHandler) createPaymentURL(c echo.Context) error {
	if _, ok := getUserIDFromContext(c); !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CreateVNPayURLRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.CreatePaymentURL(c.Request().Context(), usecase.CreatePaymentURLInput{
		OrderID: req.OrderID,
		Amount:  req.Amount,
	}, c.RealIP())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *VNPayHandler) handleReturn(c echo.Context) error {
	redirectURL, err := h.uc.HandleReturn(c.Request().Context(), c.QueryParams())
	if err != nil {
		//署名不一致などはリダイレクトしない
		return writeError(c, err)
	}

	return c.Redirect(http.StatusFound, redirectURL)
}
