package presenter

import (
	"time"

	"github.com/wichananm65/users-api/internal/domain/entity"
)

// UserPresenter shapes domain entities for delivery layer responses.
type UserPresenter struct{}

func NewUserPresenter() *UserPresenter {
	return &UserPresenter{}
}

type UserResponse struct {
	ID          int64  `json:"id"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Age         int    `json:"age"`
	DateOfBirth string `json:"date_of_birth"`
}

func (p *UserPresenter) ToResponse(user *entity.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:          user.ID,
		Firstname:   user.Firstname,
		Lastname:    user.Lastname,
		Age:         user.Age,
		DateOfBirth: user.DateOfBirth.Format(time.DateOnly),
	}
}

// ToList never returns nil, so an empty table encodes as [].
func (p *UserPresenter) ToList(users []*entity.User) []*UserResponse {
	result := make([]*UserResponse, 0, len(users))
	for _, user := range users {
		result = append(result, p.ToResponse(user))
	}
	return result
}
