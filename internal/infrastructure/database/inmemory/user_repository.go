package inmemory

import (
	"context"
	"sync"

	"github.com/wichananm65/users-api/internal/domain/entity"
	"github.com/wichananm65/users-api/internal/domain/repository"
)

// UserRepository is an in-memory implementation of repository.UserGateway.
// Ids come from a sequence that is never rewound, so ids consumed by a
// rolled back insert are not handed out again.
type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  []entity.User
	faults map[string]error
	open   int
}

var _ repository.UserGateway = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{
		nextID: 1,
		faults: make(map[string]error),
	}
}

// FailOn makes every subsequent call of the given operation (one of the
// repository.Op* constants) fail with err. A nil err clears the fault.
func (r *UserRepository) FailOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		delete(r.faults, op)
		return
	}
	r.faults[op] = err
}

// OpenSessions reports how many sessions have been opened but not closed.
func (r *UserRepository) OpenSessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.open
}

func (r *UserRepository) Session(ctx context.Context) (repository.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fault(repository.OpSession); err != nil {
		return nil, err
	}
	r.open++
	return &session{repo: r, deleted: make(map[int64]struct{})}, nil
}

// fault must be called with r.mu held.
func (r *UserRepository) fault(op string) error {
	if err, ok := r.faults[op]; ok {
		return &repository.StorageError{Op: op, Err: err}
	}
	return nil
}

type session struct {
	repo     *UserRepository
	inserted []entity.User
	deleted  map[int64]struct{}
	closed   bool
}

// view returns committed rows overlaid with this session's pending writes.
// Must be called with repo.mu held.
func (s *session) view() []entity.User {
	out := make([]entity.User, 0, len(s.repo.users)+len(s.inserted))
	for _, u := range s.repo.users {
		if _, gone := s.deleted[u.ID]; !gone {
			out = append(out, u)
		}
	}
	for _, u := range s.inserted {
		if _, gone := s.deleted[u.ID]; !gone {
			out = append(out, u)
		}
	}
	return out
}

func (s *session) Insert(ctx context.Context, user *entity.User) error {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()

	if err := s.repo.fault(repository.OpInsert); err != nil {
		return err
	}

	userCopy := *user
	userCopy.ID = s.repo.nextID
	s.repo.nextID++
	s.inserted = append(s.inserted, userCopy)

	user.ID = userCopy.ID
	return nil
}

func (s *session) List(ctx context.Context) ([]*entity.User, error) {
	s.repo.mu.RLock()
	defer s.repo.mu.RUnlock()

	if err := s.repo.fault(repository.OpList); err != nil {
		return nil, err
	}

	rows := s.view()
	result := make([]*entity.User, 0, len(rows))
	for i := range rows {
		copy := rows[i]
		result = append(result, &copy)
	}
	return result, nil
}

func (s *session) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	s.repo.mu.RLock()
	defer s.repo.mu.RUnlock()

	if err := s.repo.fault(repository.OpGet); err != nil {
		return nil, err
	}

	for _, u := range s.view() {
		if u.ID == id {
			copy := u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *session) Delete(ctx context.Context, id int64) error {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()

	if err := s.repo.fault(repository.OpDelete); err != nil {
		return err
	}

	for _, u := range s.view() {
		if u.ID == id {
			s.deleted[id] = struct{}{}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *session) Commit() error {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()

	if err := s.repo.fault(repository.OpCommit); err != nil {
		s.reset()
		return err
	}

	s.repo.users = s.view()
	s.reset()
	return nil
}

func (s *session) Rollback() error {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()

	s.reset()
	return nil
}

func (s *session) Close() error {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.reset()
	s.repo.open--
	return nil
}

func (s *session) reset() {
	s.inserted = nil
	s.deleted = make(map[int64]struct{})
}
