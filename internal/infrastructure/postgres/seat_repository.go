package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/seat"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

// 座席とホールド期限を結合して取得する
const seatSelect = `
	SELECT s.id, s.showtime_id, s.zone, s.row_label, s.number, s.price, s.status,
	       s.hold_id, h.expires_at AS hold_expires_at, s.updated_at
	FROM seats s
	LEFT JOIN holds h ON h.id = s.hold_id
`

type seatRow struct {
	ID            int64      `db:"id"`
	ShowtimeID    int64      `db:"showtime_id"`
	Zone          string     `db:"zone"`
	Row           string     `db:"row_label"`
	Number        int        `db:"number"`
	Price         int        `db:"price"`
	Status        string     `db:"status"`
	HoldID        *string    `db:"hold_id"`
	HoldExpiresAt *time.Time `db:"hold_expires_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r *seatRow) toEntity() *seat.Seat {
	return &seat.Seat{
		ID: r.ID, ShowtimeID: r.ShowtimeID, Zone: r.Zone, Row: r.Row,
		Number: r.Number, Price: r.Price, Status: seat.Status(r.Status),
		HoldID: r.HoldID, HoldExpiresAt: r.HoldExpiresAt, UpdatedAt: r.UpdatedAt,
	}
}

func toSeats(rows []seatRow) []*seat.Seat {
	seats := make([]*seat.Seat, len(rows))
	for i := range rows {
		seats[i] = rows[i].toEntity()
	}
	return seats
}

type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) CreateBulk(ctx context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	sqlTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}

	// バッチサイズごとに分割してマルチバリューINSERTを実行
	const batchSize = 1000
	for i := 0; i < len(seats); i += batchSize {
		end := i + batchSize
		if end > len(seats) {
			end = len(seats)
		}
		if err := r.createBulkBatch(ctx, sqlTx, seats[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// createBulkBatch はバッチ単位でマルチバリューINSERTを実行し、採番されたIDを設定する
func (r *SeatRepository) createBulkBatch(ctx context.Context, tx *sqlx.Tx, seats []*seat.Seat) error {
	const cols = 7
	query := `INSERT INTO seats (showtime_id, zone, row_label, number, price, status, updated_at) VALUES `
	args := make([]interface{}, 0, len(seats)*cols)
	placeholders := make([]string, 0, len(seats))

	for i, s := range seats {
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, s.ShowtimeID, s.Zone, s.Row, s.Number, s.Price, string(s.Status), s.UpdatedAt)
	}
	query += strings.Join(placeholders, ", ") + " RETURNING id"

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i >= len(seats) {
			break
		}
		if err := rows.Scan(&seats[i].ID); err != nil {
			return fmt.Errorf("座席ID取得に失敗: %w", err)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	if i != len(seats) {
		return fmt.Errorf("座席一括作成の件数が一致しません: %d/%d", i, len(seats))
	}
	return nil
}

func (r *SeatRepository) ListByShowtime(ctx context.Context, showtimeID int64) ([]*seat.Seat, error) {
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, seatSelect+` WHERE s.showtime_id = $1 ORDER BY s.id`, showtimeID); err != nil {
		return nil, fmt.Errorf("座席一覧取得に失敗: %w", err)
	}
	return toSeats(rows), nil
}

func (r *SeatRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, showtimeID int64, seatIDs []int64) ([]*seat.Seat, error) {
	sqlTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	var rows []seatRow
	// ID順にロックして、重なる座席集合同士のデッドロックを防ぐ
	query := seatSelect + ` WHERE s.showtime_id = $1 AND s.id = ANY($2) ORDER BY s.id FOR UPDATE OF s`
	if err := sqlTx.SelectContext(ctx, &rows, query, showtimeID, pq.Array(seatIDs)); err != nil {
		return nil, fmt.Errorf("座席ロック取得に失敗: %w", err)
	}
	return toSeats(rows), nil
}

func (r *SeatRepository) HoldSeats(ctx context.Context, tx transaction.Tx, seatIDs []int64, holdID string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	sqlTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `UPDATE seats SET status = 'HELD', hold_id = $1, updated_at = NOW() WHERE id = ANY($2) AND status = 'AVAILABLE'`
	result, err := sqlTx.ExecContext(ctx, query, holdID, pq.Array(seatIDs))
	if err != nil {
		return fmt.Errorf("座席ホールドに失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if int(rows) != len(seatIDs) {
		return seat.ErrSeatNotAvailable
	}
	return nil
}

func (r *SeatRepository) TakeSeats(ctx context.Context, tx transaction.Tx, seatIDs []int64, holdID string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	sqlTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `UPDATE seats SET status = 'TAKEN', hold_id = NULL, updated_at = NOW() WHERE id = ANY($1) AND status = 'HELD' AND hold_id = $2`
	result, err := sqlTx.ExecContext(ctx, query, pq.Array(seatIDs), holdID)
	if err != nil {
		return fmt.Errorf("座席確定に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if int(rows) != len(seatIDs) {
		return seat.ErrSeatNotHeld
	}
	return nil
}

func (r *SeatRepository) ReleaseSeats(ctx context.Context, tx transaction.Tx, seatIDs []int64, holdID string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	sqlTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `UPDATE seats SET status = 'AVAILABLE', hold_id = NULL, updated_at = NOW() WHERE id = ANY($1) AND status = 'HELD' AND hold_id = $2`
	if _, err := sqlTx.ExecContext(ctx, query, pq.Array(seatIDs), holdID); err != nil {
		return fmt.Errorf("座席解放に失敗: %w", err)
	}
	return nil
}

var _ seat.Repository = (*SeatRepository)(nil)
