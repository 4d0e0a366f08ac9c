// Package notifier は配達完了メールの片方向送信。
// Tx commit後にfire-and-forgetで呼び、失敗はログに残すだけで親処理は失敗させない。
package notifier

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// 配達完了1件分の通知内容
type OrderDeliveredNotice struct {
	OrderID    int64
	Email      string
	TotalPrice int64
}

type Notifier interface {
	OrderDelivered(n OrderDeliveredNotice) error
}

// MailNotifier はSMTPで送る実装
type MailNotifier struct {
	dialer *gomail.Dialer
	from   string
	log    *logrus.Logger
}

func NewMailNotifier(host string, port int, user string, pass string, from string, log *logrus.Logger) *MailNotifier {
	return &MailNotifier{
		dialer: gomail.NewDialer(host, port, user, pass),
		from:   from,
		log:    log,
	}
}

func (m *MailNotifier) OrderDelivered(n OrderDeliveredNotice) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", n.Email)
	msg.SetHeader("Subject", fmt.Sprintf("Order #%d has been delivered", n.OrderID))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Your order #%d (total %d) has been delivered. Thank you for shopping with us.",
		n.OrderID, n.TotalPrice,
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.log.WithFields(logrus.Fields{
			"order_id": n.OrderID,
			"error":    err,
		}).Warn("delivery mail failed")
		return err
	}
	return nil
}

// LogNotifier はSMTP未設定のときのフォールバック
type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) OrderDelivered(n OrderDeliveredNotice) error {
	l.log.WithFields(logrus.Fields{
		"order_id": n.OrderID,
		"email":    n.Email,
	}).Info("order delivered notification")
	return nil
}
