package usecase

import (
	"context"
	"time"

	"github.com/wichananm65/users-api/internal/domain/entity"
)

// UserUsecase exposes application-level operations for User.
type UserUsecase interface {
	Create(ctx context.Context, input CreateUserInput) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	Delete(ctx context.Context, id int64) error
}

// CreateUserInput carries already validated data for a new user.
type CreateUserInput struct {
	Firstname   string
	Lastname    string
	Age         int
	DateOfBirth time.Time
}
