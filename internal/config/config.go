package config

import (
	"fmt"
	"os"
	"strconv"
)

// Configはアプリ全体の設定。
// ゲートウェイのシークレットもここで読み、呼び出し時のenv参照はしない。
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）

	JWTSecret string // JWT署名シークレット

	// VNPayリダイレクト決済
	VNPayTmnCode    string // 加盟店コード
	VNPayHashSecret string // HMAC-SHA512シークレット
	VNPayBaseURL    string // ゲートウェイURL
	VNPayReturnURL  string // コールバック先（このAPIの /vnpay-return）

	// 決済結果でリダイレクトするフロントのページ
	FESuccessURL string
	FEFailureURL string

	// 配達完了メール（未設定ならログ通知にフォールバック）
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	GoEnv string // dev/prod
}

// Loadは環境変数から読む
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		VNPayTmnCode:    os.Getenv("VNPAY_TMN_CODE"),
		VNPayHashSecret: os.Getenv("VNPAY_HASH_SECRET"),
		VNPayBaseURL:    getenv("VNPAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
		VNPayReturnURL:  os.Getenv("VNPAY_RETURN_URL"),

		FESuccessURL: os.Getenv("FE_PAYMENT_SUCCESS_URL"),
		FEFailureURL: os.Getenv("FE_PAYMENT_FAILURE_URL"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: atoiOr("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: getenv("MAIL_FROM", "no-reply@localhost"),

		GoEnv: getenv("GO_ENV", "dev"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.VNPayTmnCode == "" {
		return Config{}, fmt.Errorf("VNPAY_TMN_CODE is required")
	}
	if cfg.VNPayHashSecret == "" {
		return Config{}, fmt.Errorf("VNPAY_HASH_SECRET is required")
	}
	if cfg.VNPayReturnURL == "" {
		return Config{}, fmt.Errorf("VNPAY_RETURN_URL is required")
	}
	if cfg.FESuccessURL == "" {
		return Config{}, fmt.Errorf("FE_PAYMENT_SUCCESS_URL is required")
	}
	if cfg.FEFailureURL == "" {
		return Config{}, fmt.Errorf("FE_PAYMENT_FAILURE_URL is required")
	}

	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func getenv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
