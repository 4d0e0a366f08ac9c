package usecase

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// 外部決済プロバイダへの返金依頼。
// 失敗したら呼び出し側は更新を中断して理由をそのまま返す。
type PaymentProvider interface {
	Refund(ctx context.Context, transactionID string, amount int64) error
}

// StubPaymentProvider は疎通先が無い環境用。
// FailReasonを入れると常に失敗させられる（テストと障害演習用）。
type StubPaymentProvider struct {
	FailReason string
	log        *logrus.Logger
}

func NewStubPaymentProvider(log *logrus.Logger) *StubPaymentProvider {
	return &StubPaymentProvider{log: log}
}

func (p *StubPaymentProvider) Refund(ctx context.Context, transactionID string, amount int64) error {
	if p.FailReason != "" {
		return errors.New(p.FailReason)
	}
	if p.log != nil {
		p.log.WithFields(logrus.Fields{
			"transaction_id": transactionID,
			"amount":         amount,
		}).Info("stub refund accepted")
	}
	return nil
}
