package booking

import (
	"context"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は予約と予約座席を登録する（トランザクション必須）
	// 同じ公演回の座席が既に予約済みの場合は ErrSeatAlreadyBooked を返す
	Create(ctx context.Context, tx transaction.Tx, booking *Booking) error

	// ListByUser はユーザーの予約を新しい順に取得する
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Booking, error)
}
