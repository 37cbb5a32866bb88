package seat

import (
	"context"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
type Repository interface {
	// CreateBulk は複数の座席を一括作成する（トランザクション必須）
	CreateBulk(ctx context.Context, tx transaction.Tx, seats []*Seat) error

	// ListByShowtime は公演回の全座席を取得する（HELD の場合はホールド期限付き）
	ListByShowtime(ctx context.Context, showtimeID int64) ([]*Seat, error)

	// GetForUpdate は指定座席を行ロック付きで取得する（トランザクション必須、ID順）
	GetForUpdate(ctx context.Context, tx transaction.Tx, showtimeID int64, seatIDs []int64) ([]*Seat, error)

	// HoldSeats は AVAILABLE の座席を HELD に更新する（条件付き更新、トランザクション必須）
	HoldSeats(ctx context.Context, tx transaction.Tx, seatIDs []int64, holdID string) error

	// TakeSeats は指定ホールドの HELD 座席を TAKEN に更新する（トランザクション必須）
	TakeSeats(ctx context.Context, tx transaction.Tx, seatIDs []int64, holdID string) error

	// ReleaseSeats は指定ホールドの HELD 座席を AVAILABLE に戻す（トランザクション必須）
	ReleaseSeats(ctx context.Context, tx transaction.Tx, seatIDs []int64, holdID string) error
}
