package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/wichananm65/users-api/internal/domain/entity"
	"github.com/wichananm65/users-api/internal/domain/repository"
)

// UserRepository is a PostgreSQL implementation of repository.UserGateway.
// Each session pins one pooled connection until it is closed.
type UserRepository struct {
	db *sql.DB
}

var _ repository.UserGateway = (*UserRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

// queryer is satisfied by both *sql.Conn and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	createUsersTableQuery = `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			firstname VARCHAR(250) NOT NULL,
			lastname VARCHAR(250) NOT NULL,
			age INTEGER NOT NULL,
			date_of_birth DATE NOT NULL
		)
	`
	listUsersQuery = `
		SELECT id, firstname, lastname, age, date_of_birth
		FROM users
		ORDER BY id
	`
	getUserByIDQuery = `
		SELECT id, firstname, lastname, age, date_of_birth
		FROM users
		WHERE id = $1
	`
	insertUserQuery = `
		INSERT INTO users (firstname, lastname, age, date_of_birth)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	deleteUserQuery = `DELETE FROM users WHERE id = $1`
)

// Open connects with the named database/sql driver ("pgx" or "postgres"),
// verifies the connection and creates the users table if it is missing.
func Open(ctx context.Context, driver, dsn string) (*UserRepository, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	repo := NewUserRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// EnsureSchema creates the users table when it does not exist yet.
func (r *UserRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTableQuery); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Close() error {
	return r.db.Close()
}

func (r *UserRepository) Session(ctx context.Context) (repository.UserSession, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, &repository.StorageError{Op: repository.OpSession, Err: err}
	}
	return &session{conn: conn}, nil
}

// session reads through the pinned connection and opens a transaction on
// it only once the first write happens.
type session struct {
	conn *sql.Conn
	tx   *sql.Tx
}

func (s *session) q() queryer {
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

func (s *session) begin(ctx context.Context, op string) error {
	if s.tx != nil {
		return nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return &repository.StorageError{Op: op, Err: err}
	}
	s.tx = tx
	return nil
}

func (s *session) Insert(ctx context.Context, user *entity.User) error {
	if err := s.begin(ctx, repository.OpInsert); err != nil {
		return err
	}

	var id int64
	err := s.q().QueryRowContext(
		ctx,
		insertUserQuery,
		user.Firstname,
		user.Lastname,
		user.Age,
		entity.NewDate(user.DateOfBirth),
	).Scan(&id)
	if err != nil {
		return &repository.StorageError{Op: repository.OpInsert, Err: err}
	}

	user.ID = id
	return nil
}

func (s *session) List(ctx context.Context) ([]*entity.User, error) {
	rows, err := s.q().QueryContext(ctx, listUsersQuery)
	if err != nil {
		return nil, &repository.StorageError{Op: repository.OpList, Err: err}
	}
	defer rows.Close()

	users := make([]*entity.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, &repository.StorageError{Op: repository.OpList, Err: err}
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, &repository.StorageError{Op: repository.OpList, Err: err}
	}

	return users, nil
}

func (s *session) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	user, err := scanUser(s.q().QueryRowContext(ctx, getUserByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, &repository.StorageError{Op: repository.OpGet, Err: err}
	}
	return user, nil
}

func (s *session) Delete(ctx context.Context, id int64) error {
	if err := s.begin(ctx, repository.OpDelete); err != nil {
		return err
	}

	result, err := s.q().ExecContext(ctx, deleteUserQuery, id)
	if err != nil {
		return &repository.StorageError{Op: repository.OpDelete, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &repository.StorageError{Op: repository.OpDelete, Err: err}
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (s *session) Commit() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return &repository.StorageError{Op: repository.OpCommit, Err: err}
	}
	return nil
}

func (s *session) Rollback() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return &repository.StorageError{Op: repository.OpRollback, Err: err}
	}
	return nil
}

func (s *session) Close() error {
	if s.conn == nil {
		return nil
	}
	rollbackErr := s.Rollback()
	closeErr := s.conn.Close()
	s.conn = nil
	return errors.Join(rollbackErr, closeErr)
}

func scanUser(scanner rowScanner) (*entity.User, error) {
	user := &entity.User{}
	if err := scanner.Scan(
		&user.ID,
		&user.Firstname,
		&user.Lastname,
		&user.Age,
		&user.DateOfBirth,
	); err != nil {
		return nil, err
	}

	user.DateOfBirth = entity.NewDate(user.DateOfBirth)
	return user, nil
}
