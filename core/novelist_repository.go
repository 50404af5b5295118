package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NovelistRecord is a catalog novelist.
type NovelistRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NovelistRepository defines persistence operations for novelists.
type NovelistRepository interface {
	Create(ctx context.Context, name string) (*NovelistRecord, error)
	Get(ctx context.Context, id int64) (*NovelistRecord, error)
	FindByName(ctx context.Context, name string) (*NovelistRecord, error)
	Update(ctx context.Context, id int64, name string) (*NovelistRecord, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, name string, page, limit int) ([]NovelistRecord, error)
}

// PgNovelistRepository implements NovelistRepository using pgxpool.
// Deleting a novelist cascades to their books via the FK on books.novelist_id.
type PgNovelistRepository struct {
	db *pgxpool.Pool
}

func NewPgNovelistRepository(db *pgxpool.Pool) *PgNovelistRepository {
	return &PgNovelistRepository{db: db}
}

func (r *PgNovelistRepository) Create(ctx context.Context, name string) (*NovelistRecord, error) {
	const q = `INSERT INTO novelists (name) VALUES ($1) RETURNING id, name`
	var n NovelistRecord
	if err := r.db.QueryRow(ctx, q, name).Scan(&n.ID, &n.Name); err != nil {
		return nil, translatePgError(err)
	}
	return &n, nil
}

func (r *PgNovelistRepository) Get(ctx context.Context, id int64) (*NovelistRecord, error) {
	const q = `SELECT id, name FROM novelists WHERE id=$1`
	return scanNovelist(r.db.QueryRow(ctx, q, id))
}

func (r *PgNovelistRepository) FindByName(ctx context.Context, name string) (*NovelistRecord, error) {
	const q = `SELECT id, name FROM novelists WHERE name=$1`
	return scanNovelist(r.db.QueryRow(ctx, q, name))
}

func (r *PgNovelistRepository) Update(ctx context.Context, id int64, name string) (*NovelistRecord, error) {
	const q = `UPDATE novelists SET name=$1 WHERE id=$2 RETURNING id, name`
	n, err := scanNovelist(r.db.QueryRow(ctx, q, name, id))
	if err != nil {
		return nil, translatePgError(err)
	}
	return n, nil
}

func (r *PgNovelistRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM novelists WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns novelists filtered by name substring, paginated with
// offset=(page-1)*limit.
func (r *PgNovelistRepository) List(ctx context.Context, name string, page, limit int) ([]NovelistRecord, error) {
	const q = `SELECT id, name FROM novelists
		WHERE ($1 = '' OR name LIKE '%' || $1 || '%')
		ORDER BY id LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, q, name, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []NovelistRecord{}
	for rows.Next() {
		var n NovelistRecord
		if err := rows.Scan(&n.ID, &n.Name); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func scanNovelist(row pgx.Row) (*NovelistRecord, error) {
	var n NovelistRecord
	if err := row.Scan(&n.ID, &n.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}
