// Package vnpay はVNPay方式のリダイレクト決済プロトコルを実装する。
// 署名はパラメータをキー昇順に並べ、スペースを+でエンコードした
// query文字列に対する HMAC-SHA512（hex）で計算する。
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	version  = "2.1.0"
	command  = "pay"
	currency = "VND"
	locale   = "vn"

	HashParam     = "vnp_SecureHash"
	HashTypeParam = "vnp_SecureHashType"

	// ゲートウェイの応答コード。00だけが成功。
	CodeSuccess = "00"
)

// 署名が一致しない。絶対にリトライも黙認もしない。
var ErrInvalidSignature = errors.New("invalid signature")

type Config struct {
	TmnCode    string
	HashSecret string
	BaseURL    string
	ReturnURL  string
}

type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// BuildPaymentURL はリダイレクト先URLを組み立てる。
// amountは注文金額そのまま（プロトコル上は100倍の最小単位で送る）。
func (c *Client) BuildPaymentURL(orderID int64, amount int64, clientIP string, now time.Time) string {
	ref := strconv.FormatInt(orderID, 10)

	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", command)
	params.Set("vnp_TmnCode", c.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(amount*100, 10))
	params.Set("vnp_CurrCode", currency)
	params.Set("vnp_TxnRef", ref)
	params.Set("vnp_OrderInfo", "Thanh toan don hang "+ref)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", locale)
	params.Set("vnp_ReturnUrl", c.cfg.ReturnURL)
	params.Set("vnp_IpAddr", normalizeIP(clientIP))
	params.Set("vnp_CreateDate", now.Format("20060102150405"))

	// Encodeがキー昇順ソートとスペース→+を両方やる
	signData := params.Encode()
	return c.cfg.BaseURL + "?" + signData + "&" + HashParam + "=" + c.sign(signData)
}

// VerifyReturn はコールバックのクエリを検証する。
// vnp_SecureHash（とハッシュ種別）を除いた残りを再署名して突き合わせる。
func (c *Client) VerifyReturn(query url.Values) error {
	received := query.Get(HashParam)
	if received == "" {
		return ErrInvalidSignature
	}

	rest := url.Values{}
	for k, vs := range query {
		if k == HashParam || k == HashTypeParam {
			continue
		}
		rest[k] = vs
	}

	expected := c.sign(rest.Encode())
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(received))) {
		return ErrInvalidSignature
	}
	return nil
}

func (c *Client) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// ループバックは127.0.0.1に正規化
func normalizeIP(ip string) string {
	if ip == "" {
		return "127.0.0.1"
	}
	parsed := net.ParseIP(ip)
	if parsed != nil && parsed.IsLoopback() {
		return "127.0.0.1"
	}
	return ip
}

// 応答コード→表示用メッセージ。未知コードは汎用メッセージ。
var responseMessages = map[string]string{
	"00": "Transaction successful",
	"07": "Money deducted, transaction suspected of fraud",
	"09": "Card/account not registered for internet banking",
	"10": "Card/account authentication failed more than 3 times",
	"11": "Payment deadline expired",
	"12": "Card/account is locked",
	"13": "Wrong OTP entered",
	"24": "Transaction cancelled by customer",
	"51": "Insufficient account balance",
	"65": "Account exceeded daily transaction limit",
	"75": "Payment bank under maintenance",
	"79": "Wrong payment password entered too many times",
}

func ResponseMessage(code string) string {
	if msg, ok := responseMessages[code]; ok {
		return msg
	}
	return "Transaction failed"
}
