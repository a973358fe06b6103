package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wichananm65/users-api/internal/domain/entity"
	"github.com/wichananm65/users-api/internal/domain/repository"
)

// UserRepository is a gorm/SQLite implementation of repository.UserGateway,
// meant for local development without a Postgres server.
type UserRepository struct {
	db *gorm.DB
}

var _ repository.UserGateway = (*UserRepository)(nil)

// userRecord is the gorm model for the users table. AUTOINCREMENT keeps
// SQLite from handing out the id of a deleted row again.
type userRecord struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Firstname   string    `gorm:"column:firstname;size:250;not null"`
	Lastname    string    `gorm:"column:lastname;size:250;not null"`
	Age         int       `gorm:"column:age;not null"`
	DateOfBirth time.Time `gorm:"column:date_of_birth;type:date;not null"`
}

func (userRecord) TableName() string {
	return "users"
}

// Open opens a SQLite database and creates the users table if needed.
func Open(dsn string) (*UserRepository, error) {
	if dsn == "" {
		dsn = "users.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(&userRecord{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return NewUserRepository(db), nil
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *UserRepository) Session(ctx context.Context) (repository.UserSession, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, &repository.StorageError{Op: repository.OpSession, Err: tx.Error}
	}
	return &session{tx: tx}, nil
}

// session wraps one gorm transaction. Unlike the Postgres session the
// transaction is opened eagerly, so reads and writes share one connection.
type session struct {
	tx   *gorm.DB
	done bool
}

func (s *session) Insert(ctx context.Context, user *entity.User) error {
	rec := toRecord(user)
	if err := s.tx.WithContext(ctx).Create(&rec).Error; err != nil {
		return &repository.StorageError{Op: repository.OpInsert, Err: err}
	}
	user.ID = rec.ID
	return nil
}

func (s *session) List(ctx context.Context) ([]*entity.User, error) {
	var recs []userRecord
	if err := s.tx.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, &repository.StorageError{Op: repository.OpList, Err: err}
	}

	users := make([]*entity.User, 0, len(recs))
	for i := range recs {
		users = append(users, recs[i].toEntity())
	}
	return users, nil
}

func (s *session) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var rec userRecord
	if err := s.tx.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, &repository.StorageError{Op: repository.OpGet, Err: err}
	}
	return rec.toEntity(), nil
}

func (s *session) Delete(ctx context.Context, id int64) error {
	res := s.tx.WithContext(ctx).Delete(&userRecord{}, id)
	if res.Error != nil {
		return &repository.StorageError{Op: repository.OpDelete, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *session) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Commit().Error; err != nil {
		return &repository.StorageError{Op: repository.OpCommit, Err: err}
	}
	return nil
}

func (s *session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback().Error; err != nil {
		return &repository.StorageError{Op: repository.OpRollback, Err: err}
	}
	return nil
}

func (s *session) Close() error {
	return s.Rollback()
}

func toRecord(u *entity.User) userRecord {
	return userRecord{
		Firstname:   u.Firstname,
		Lastname:    u.Lastname,
		Age:         u.Age,
		DateOfBirth: entity.NewDate(u.DateOfBirth),
	}
}

func (r userRecord) toEntity() *entity.User {
	return &entity.User{
		ID:          r.ID,
		Firstname:   r.Firstname,
		Lastname:    r.Lastname,
		Age:         r.Age,
		DateOfBirth: entity.NewDate(r.DateOfBirth),
	}
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
