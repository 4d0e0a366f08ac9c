package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"shopapi/internal/config"
	"shopapi/internal/domain/model"
	"shopapi/internal/handler"
	"shopapi/internal/infra/db"
	infraRepo "shopapi/internal/infra/repository"
	"shopapi/internal/notifier"
	"shopapi/internal/server"
	"shopapi/internal/usecase"
	"shopapi/internal/vnpay"
)

func main() {
	// .envはローカル用。本番は環境変数で渡す。
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	log := logrus.New()
	if cfg.GoEnv == "prod" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect database")
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.Review{},
	); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	reviewRepo := infraRepo.NewReviewGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//VNPayクライアント
	vnpayClient := vnpay.New(vnpay.Config{
		TmnCode:    cfg.VNPayTmnCode,
		HashSecret: cfg.VNPayHashSecret,
		BaseURL:    cfg.VNPayBaseURL,
		ReturnURL:  cfg.VNPayReturnURL,
	})

	//配達完了通知（SMTP未設定ならログへ）
	var notify notifier.Notifier
	if cfg.SMTPHost != "" {
		notify = notifier.NewMailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, log)
	} else {
		notify = notifier.NewLogNotifier(log)
	}

	provider := usecase.NewStubPaymentProvider(log)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo)
	productUC := usecase.NewProductUsecase(productRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(txManager, userRepo, notify, log)
	paymentUC := usecase.NewPaymentUsecase(txManager, provider)
	vnpayUC := usecase.NewVNPayUsecase(txManager, vnpayClient, cfg.FESuccessURL, cfg.FEFailureURL, log)
	returnUC := usecase.NewReturnUsecase(txManager)
	reviewUC := usecase.NewReviewUsecase(reviewRepo, orderItemRepo, productRepo)

	//Handler生成
	h := server.Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC, returnUC),
		AdminOrder:   handler.NewAdminOrderHandler(orderUC, returnUC),
		Payment:      handler.NewPaymentHandler(paymentUC),
		VNPay:        handler.NewVNPayHandler(vnpayUC),
		Review:       handler.NewReviewHandler(reviewUC),
	}

	e := server.New(cfg, h)

	addr := ":" + cfg.Port
	log.WithField("addr", addr).Info("starting server")
	if err := server.Start(e, addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
