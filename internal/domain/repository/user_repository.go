package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/wichananm65/users-api/internal/domain/entity"
)

// ErrNotFound is returned when the referenced user does not exist.
var ErrNotFound = errors.New("user not found")

// Storage operations reported in StorageError.Op.
const (
	OpSession  = "session"
	OpInsert   = "insert"
	OpList     = "list"
	OpGet      = "get"
	OpDelete   = "delete"
	OpCommit   = "commit"
	OpRollback = "rollback"
)

// StorageError wraps any failure raised by the storage engine during an operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// UserGateway owns the connection to the users table and hands out
// request-scoped sessions.
type UserGateway interface {
	Session(ctx context.Context) (UserSession, error)
}

// UserSession is a transactional handle scoped to a single request.
//
// Writes become visible to other sessions only after Commit. Close releases
// the underlying connection and rolls back anything left uncommitted; it is
// safe to call Close more than once.
type UserSession interface {
	// Insert persists user and sets user.ID to the id assigned by storage.
	Insert(ctx context.Context, user *entity.User) error
	// List returns every user ordered by id.
	List(ctx context.Context) ([]*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	Delete(ctx context.Context, id int64) error
	Commit() error
	Rollback() error
	Close() error
}
