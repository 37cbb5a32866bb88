package showtime

import (
	"context"
	"time"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

// Repository は公演回リポジトリのインターフェース
type Repository interface {
	// CreateIfAbsent は (external_id, start_at) が未登録の場合のみ作成する（トランザクション必須）
	// 既存の場合は既存のIDを showtime に設定し created=false を返す
	CreateIfAbsent(ctx context.Context, tx transaction.Tx, showtime *Showtime) (created bool, err error)

	// GetByID はIDから公演回を取得する
	GetByID(ctx context.Context, id int64) (*Showtime, error)

	// GetByKey は外部公演IDと開演日時から公演回を取得する
	GetByKey(ctx context.Context, externalID string, startAt time.Time) (*Showtime, error)
}
