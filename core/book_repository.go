package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookRecord is a catalog book tied to a novelist.
type BookRecord struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Year       int    `json:"year"`
	NovelistID int64  `json:"novelist_id"`
}

// BookUpdateInput carries the optional fields of a partial book update;
// nil means keep the stored value.
type BookUpdateInput struct {
	Title      *string
	Year       *int
	NovelistID *int64
}

// BookRepository defines persistence operations for books.
type BookRepository interface {
	Create(ctx context.Context, title string, year int, novelistID int64) (*BookRecord, error)
	Get(ctx context.Context, id int64) (*BookRecord, error)
	FindByTitle(ctx context.Context, title string) (*BookRecord, error)
	Update(ctx context.Context, id int64, in BookUpdateInput) (*BookRecord, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, title string, year, page, limit int) ([]BookRecord, error)
}

// PgBookRepository implements BookRepository using pgxpool.
type PgBookRepository struct {
	db *pgxpool.Pool
}

func NewPgBookRepository(db *pgxpool.Pool) *PgBookRepository {
	return &PgBookRepository{db: db}
}

func (r *PgBookRepository) Create(ctx context.Context, title string, year int, novelistID int64) (*BookRecord, error) {
	const q = `INSERT INTO books (title, year, novelist_id) VALUES ($1,$2,$3) RETURNING id, title, year, novelist_id`
	b, err := scanBook(r.db.QueryRow(ctx, q, title, year, novelistID))
	if err != nil {
		return nil, translatePgError(err)
	}
	return b, nil
}

func (r *PgBookRepository) Get(ctx context.Context, id int64) (*BookRecord, error) {
	const q = `SELECT id, title, year, novelist_id FROM books WHERE id=$1`
	return scanBook(r.db.QueryRow(ctx, q, id))
}

func (r *PgBookRepository) FindByTitle(ctx context.Context, title string) (*BookRecord, error) {
	const q = `SELECT id, title, year, novelist_id FROM books WHERE title=$1`
	return scanBook(r.db.QueryRow(ctx, q, title))
}

func (r *PgBookRepository) Update(ctx context.Context, id int64, in BookUpdateInput) (*BookRecord, error) {
	sets := []string{}
	args := []interface{}{}
	if in.Title != nil {
		args = append(args, *in.Title)
		sets = append(sets, fmt.Sprintf("title=$%d", len(args)))
	}
	if in.Year != nil {
		args = append(args, *in.Year)
		sets = append(sets, fmt.Sprintf("year=$%d", len(args)))
	}
	if in.NovelistID != nil {
		args = append(args, *in.NovelistID)
		sets = append(sets, fmt.Sprintf("novelist_id=$%d", len(args)))
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE books SET %s WHERE id=$%d RETURNING id, title, year, novelist_id`,
		strings.Join(sets, ", "), len(args))
	b, err := scanBook(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, translatePgError(err)
	}
	return b, nil
}

func (r *PgBookRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM books WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns books filtered by title substring and exact year, paginated
// with offset=(page-1)*limit. Zero year means no year filter.
func (r *PgBookRepository) List(ctx context.Context, title string, year, page, limit int) ([]BookRecord, error) {
	const q = `SELECT id, title, year, novelist_id FROM books
		WHERE ($1 = '' OR title LIKE '%' || $1 || '%')
		AND ($2 = 0 OR year = $2)
		ORDER BY id LIMIT $3 OFFSET $4`
	rows, err := r.db.Query(ctx, q, title, year, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BookRecord{}
	for rows.Next() {
		var b BookRecord
		if err := rows.Scan(&b.ID, &b.Title, &b.Year, &b.NovelistID); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func scanBook(row pgx.Row) (*BookRecord, error) {
	var b BookRecord
	if err := row.Scan(&b.ID, &b.Title, &b.Year, &b.NovelistID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}
