package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// AccountRecord is the stored credential row for one account.
type AccountRecord struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
}

// AccountPublic is the projection returned by the API (no password hash).
type AccountPublic struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*AccountRecord, error)
	FindByID(ctx context.Context, id int64) (*AccountRecord, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*AccountRecord, error)
	Create(ctx context.Context, username, email, passwordHash string) (int64, error)
	Update(ctx context.Context, id int64, username, email, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]AccountPublic, error)
}

// PgAccountRepository implements AccountRepository using pgxpool.
type PgAccountRepository struct {
	db *pgxpool.Pool
}

func NewPgAccountRepository(db *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{db: db}
}

func (r *PgAccountRepository) FindByEmail(ctx context.Context, email string) (*AccountRecord, error) {
	const q = `SELECT id, username, email, password_hash FROM accounts WHERE email=$1`
	return r.scanOne(r.db.QueryRow(ctx, q, email))
}

func (r *PgAccountRepository) FindByID(ctx context.Context, id int64) (*AccountRecord, error) {
	const q = `SELECT id, username, email, password_hash FROM accounts WHERE id=$1`
	return r.scanOne(r.db.QueryRow(ctx, q, id))
}

func (r *PgAccountRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*AccountRecord, error) {
	const q = `SELECT id, username, email, password_hash FROM accounts WHERE username=$1 OR email=$2 LIMIT 1`
	return r.scanOne(r.db.QueryRow(ctx, q, username, email))
}

func (r *PgAccountRepository) Create(ctx context.Context, username, email, passwordHash string) (int64, error) {
	const q = `INSERT INTO accounts (username, email, password_hash) VALUES ($1,$2,$3) RETURNING id`
	var id int64
	if err := r.db.QueryRow(ctx, q, username, email, passwordHash).Scan(&id); err != nil {
		return 0, translatePgError(err)
	}
	return id, nil
}

func (r *PgAccountRepository) Update(ctx context.Context, id int64, username, email, passwordHash string) error {
	const q = `UPDATE accounts SET username=$1, email=$2, password_hash=$3 WHERE id=$4`
	ct, err := r.db.Exec(ctx, q, username, email, passwordHash, id)
	if err != nil {
		return translatePgError(err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgAccountRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgAccountRepository) List(ctx context.Context) ([]AccountPublic, error) {
	rows, err := r.db.Query(ctx, `SELECT id, username, email FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []AccountPublic{}
	for rows.Next() {
		var a AccountPublic
		if err := rows.Scan(&a.ID, &a.Username, &a.Email); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *PgAccountRepository) scanOne(row pgx.Row) (*AccountRecord, error) {
	var a AccountRecord
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// translatePgError maps unique-constraint violations to ErrDuplicate so
// handlers do not depend on driver error codes.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
