package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/wichananm65/users-api/internal/domain/entity"
	"github.com/wichananm65/users-api/internal/domain/repository"
	"github.com/wichananm65/users-api/internal/logging"
)

// UserService implements UserUsecase on top of a storage gateway. Every
// operation runs inside exactly one session that is closed on return.
type UserService struct {
	gateway repository.UserGateway
	logger  logging.Logger
}

func NewUserService(gateway repository.UserGateway, logger logging.Logger) *UserService {
	return &UserService{gateway: gateway, logger: logger}
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*entity.User, error) {
	user := &entity.User{
		Firstname:   input.Firstname,
		Lastname:    input.Lastname,
		Age:         input.Age,
		DateOfBirth: entity.NewDate(input.DateOfBirth),
	}

	err := s.withSession(ctx, repository.OpInsert, func(sess repository.UserSession) error {
		if err := sess.Insert(ctx, user); err != nil {
			return err
		}
		return sess.Commit()
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]*entity.User, error) {
	var users []*entity.User
	err := s.withSession(ctx, repository.OpList, func(sess repository.UserSession) error {
		var err error
		users, err = sess.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*entity.User{}
	}
	return users, nil
}

// Delete removes the user with the given id. It returns
// repository.ErrNotFound without starting a write when no such user exists.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.withSession(ctx, repository.OpDelete, func(sess repository.UserSession) error {
		if _, err := sess.GetByID(ctx, id); err != nil {
			return err
		}
		if err := sess.Delete(ctx, id); err != nil {
			return err
		}
		return sess.Commit()
	})
}

// withSession opens a session, runs fn and always closes the session.
// Failures roll back before close. A panic in fn is turned into a
// StorageError tagged with op.
func (s *UserService) withSession(ctx context.Context, op string, fn func(repository.UserSession) error) (err error) {
	sess, err := s.gateway.Session(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = &repository.StorageError{Op: op, Err: fmt.Errorf("panic: %v", r)}
		}

		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			if rbErr := sess.Rollback(); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
		}

		if closeErr := sess.Close(); closeErr != nil {
			s.logger.Warn(ctx, "close storage session", "op", op, "error", closeErr)
		}
	}()

	return fn(sess)
}
