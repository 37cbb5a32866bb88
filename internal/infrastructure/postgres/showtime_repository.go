package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/showtime"
	"github.com/pmg1020/AquaTicketWeb/internal/domain/transaction"
)

const showtimeColumns = `id, external_id, start_at, title, poster_url, venue, created_at`

// showtimeRow はDBの行を表す構造体
type showtimeRow struct {
	ID         int64     `db:"id"`
	ExternalID string    `db:"external_id"`
	StartAt    time.Time `db:"start_at"`
	Title      string    `db:"title"`
	PosterURL  string    `db:"poster_url"`
	Venue      string    `db:"venue"`
	CreatedAt  time.Time `db:"created_at"`
}

// toEntity はshowtimeRowをShowtimeエンティティに変換する
func (r *showtimeRow) toEntity() *showtime.Showtime {
	return &showtime.Showtime{
		ID:         r.ID,
		ExternalID: r.ExternalID,
		StartAt:    r.StartAt,
		Metadata: showtime.Metadata{
			Title:     r.Title,
			PosterURL: r.PosterURL,
			Venue:     r.Venue,
		},
		CreatedAt: r.CreatedAt,
	}
}

// ShowtimeRepository は公演回リポジトリのPostgreSQL実装
type ShowtimeRepository struct {
	db *sqlx.DB
}

// NewShowtimeRepository はShowtimeRepositoryを作成する
func NewShowtimeRepository(db *sqlx.DB) *ShowtimeRepository {
	return &ShowtimeRepository{db: db}
}

// CreateIfAbsent は一意制約 (external_id, start_at) で重複作成を防ぐ
// 競合した場合は後発のトランザクションが先行の行を読み直す
func (r *ShowtimeRepository) CreateIfAbsent(ctx context.Context, tx transaction.Tx, st *showtime.Showtime) (bool, error) {
	sqlTx, err := UnwrapTx(tx)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO showtimes (external_id, start_at, title, poster_url, venue, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_id, start_at) DO NOTHING
		RETURNING id
	`
	err = sqlTx.QueryRowxContext(ctx, query,
		st.ExternalID, st.StartAt, st.Metadata.Title, st.Metadata.PosterURL, st.Metadata.Venue, st.CreatedAt,
	).Scan(&st.ID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("公演回作成に失敗しました: %w", err)
	}

	var row showtimeRow
	if err := sqlTx.GetContext(ctx, &row,
		`SELECT `+showtimeColumns+` FROM showtimes WHERE external_id = $1 AND start_at = $2`,
		st.ExternalID, st.StartAt,
	); err != nil {
		return false, fmt.Errorf("既存の公演回取得に失敗しました: %w", err)
	}
	*st = *row.toEntity()
	return false, nil
}

// GetByID はIDから公演回を取得する
func (r *ShowtimeRepository) GetByID(ctx context.Context, id int64) (*showtime.Showtime, error) {
	var row showtimeRow
	err := r.db.GetContext(ctx, &row, `SELECT `+showtimeColumns+` FROM showtimes WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, showtime.ErrShowtimeNotFound
		}
		return nil, fmt.Errorf("公演回取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// GetByKey は外部公演IDと開演日時から公演回を取得する
func (r *ShowtimeRepository) GetByKey(ctx context.Context, externalID string, startAt time.Time) (*showtime.Showtime, error) {
	var row showtimeRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+showtimeColumns+` FROM showtimes WHERE external_id = $1 AND start_at = $2`,
		externalID, startAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, showtime.ErrShowtimeNotFound
		}
		return nil, fmt.Errorf("公演回取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// インターフェースを満たしているか確認
var _ showtime.Repository = (*ShowtimeRepository)(nil)
