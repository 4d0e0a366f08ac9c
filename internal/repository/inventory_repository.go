package repository

import "context"

// 在庫と販売数のカウンタ操作。
// 減算は条件付きUPDATEで行い、部分的な変化が他から見えないようTx内で使う。
type InventoryRepository interface {
	// 在庫が足りるときだけ減算（足りないなら false）
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル・返品完了）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 配達確定で販売数を加算
	IncreaseSold(ctx context.Context, productID int64, qty int64) error

	// 販売数の取り消し（0未満にはしない）
	DecreaseSoldFloored(ctx context.Context, productID int64, qty int64) error
}
