package hold

import (
	"context"
	"time"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

// Repository はホールド台帳のインターフェース
type Repository interface {
	// Create はホールドを登録する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, hold *Hold) error

	// GetByID はIDからホールドを取得する
	GetByID(ctx context.Context, id string) (*Hold, error)

	// GetForUpdate はIDからホールドを行ロック付きで取得する（トランザクション必須）
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Hold, error)

	// ListByOwnerForUpdate は公演回における所有者のホールドを行ロック付きで取得する（トランザクション必須）
	ListByOwnerForUpdate(ctx context.Context, tx transaction.Tx, showtimeID int64, ownerID string) ([]*Hold, error)

	// ListExpired は now 時点で期限切れのホールドを期限の古い順に最大 limit 件取得する
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Hold, error)

	// CountActive は now 時点で有効なホールド数を返す
	CountActive(ctx context.Context, now time.Time) (int, error)

	// Delete はホールドを削除する（トランザクション必須）
	Delete(ctx context.Context, tx transaction.Tx, id string) error
}
