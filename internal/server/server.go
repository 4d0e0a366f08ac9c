package server

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"shopapi/internal/config"
	"shopapi/internal/handler"
	"shopapi/internal/middleware"
)

// echoのValidatorにgo-playground/validatorを差す
type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

type Handlers struct {
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	Payment      *handler.PaymentHandler
	VNPay        *handler.VNPayHandler
	Review       *handler.ReviewHandler
}

func New(cfg config.Config, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Validator = &requestValidator{v: validator.New()}

	e.Use(echomw.Recover())
	e.Use(middleware.Metrics())

	registerRoutes(e, cfg, h)

	return e
}

func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}
