package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/hold"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

const holdColumns = `id, showtime_id, owner_id, seat_ids, created_at, expires_at`

type holdRow struct {
	ID         string        `db:"id"`
	ShowtimeID int64         `db:"showtime_id"`
	OwnerID    string        `db:"owner_id"`
	SeatIDs    pq.Int64Array `db:"seat_ids"`
	CreatedAt  time.Time     `db:"created_at"`
	ExpiresAt  time.Time     `db:"expires_at"`
}

func (r *holdRow) toEntity() *hold.Hold {
	return &hold.Hold{
		ID: r.ID, ShowtimeID: r.ShowtimeID, OwnerID: r.OwnerID,
		SeatIDs: []int64(r.SeatIDs), CreatedAt: r.CreatedAt, ExpiresAt: r.ExpiresAt,
	}
}

func toHolds(rows []holdRow) []*hold.Hold {
	holds := make([]*hold.Hold, len(rows))
	for i := range rows {
		holds[i] = rows[i].toEntity()
	}
	return holds
}

// HoldRepository はホールド台帳のPostgreSQL実装
type HoldRepository struct{ db *sqlx.DB }

func NewHoldRepository(db *sqlx.DB) *HoldRepository { return &HoldRepository{db: db} }

func (r *HoldRepository) Create(ctx context.Context, tx transaction.Tx, h *hold.Hold) error {
	sqlTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO holds (` + holdColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := sqlTx.ExecContext(ctx, query,
		h.ID, h.ShowtimeID, h.OwnerID, pq.Array(h.SeatIDs), h.CreatedAt, h.ExpiresAt,
	); err != nil {
		return fmt.Errorf("ホールド作成に失敗: %w", err)
	}
	return nil
}

func (r *HoldRepository) GetByID(ctx context.Context, id string) (*hold.Hold, error) {
	if !isUUID(id) {
		return nil, hold.ErrHoldNotFound
	}
	var row holdRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+holdColumns+` FROM holds WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hold.ErrHoldNotFound
		}
		return nil, fmt.Errorf("ホールド取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *HoldRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*hold.Hold, error) {
	sqlTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	if !isUUID(id) {
		return nil, hold.ErrHoldNotFound
	}
	var row holdRow
	if err := sqlTx.GetContext(ctx, &row, `SELECT `+holdColumns+` FROM holds WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hold.ErrHoldNotFound
		}
		return nil, fmt.Errorf("ホールド取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *HoldRepository) ListByOwnerForUpdate(ctx context.Context, tx transaction.Tx, showtimeID int64, ownerID string) ([]*hold.Hold, error) {
	sqlTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	var rows []holdRow
	query := `SELECT ` + holdColumns + ` FROM holds WHERE showtime_id = $1 AND owner_id = $2 ORDER BY created_at FOR UPDATE`
	if err := sqlTx.SelectContext(ctx, &rows, query, showtimeID, ownerID); err != nil {
		return nil, fmt.Errorf("ホールド一覧取得に失敗: %w", err)
	}
	return toHolds(rows), nil
}

func (r *HoldRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*hold.Hold, error) {
	var rows []holdRow
	query := `SELECT ` + holdColumns + ` FROM holds WHERE expires_at <= $1 ORDER BY expires_at LIMIT $2`
	if err := r.db.SelectContext(ctx, &rows, query, now, limit); err != nil {
		return nil, fmt.Errorf("期限切れホールド取得に失敗: %w", err)
	}
	return toHolds(rows), nil
}

func (r *HoldRepository) CountActive(ctx context.Context, now time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM holds WHERE expires_at > $1`, now); err != nil {
		return 0, fmt.Errorf("有効ホールド数の取得に失敗: %w", err)
	}
	return count, nil
}

func (r *HoldRepository) Delete(ctx context.Context, tx transaction.Tx, id string) error {
	sqlTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	if !isUUID(id) {
		return hold.ErrHoldNotFound
	}
	result, err := sqlTx.ExecContext(ctx, `DELETE FROM holds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ホールド削除に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の確認に失敗: %w", err)
	}
	if rows == 0 {
		return hold.ErrHoldNotFound
	}
	return nil
}

// isUUID は uuid 型の列と比較できる値かを返す（不正な値は見つからない扱い）
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var _ hold.Repository = (*HoldRepository)(nil)
