package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garnizeh/prepwise/internal/models"
	"github.com/garnizeh/prepwise/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	Users      *UserRepo
	Interviews *InterviewRepo
}

func NewMocks() *Mocks {
	users := &UserRepo{byID: map[int64]*models.User{}}
	return &Mocks{
		Users:      users,
		Interviews: &InterviewRepo{users: users, byID: map[string]*models.Interview{}, deliveries: map[string]string{}},
	}
}

// UserRepo is an in-memory repository.UserRepo.
type UserRepo struct {
	mu     sync.Mutex
	byID   map[int64]*models.User
	nextID int64

	CreateErr error
	GetErr    error
}

var _ repository.UserRepo = (*UserRepo)(nil)

func (m *UserRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return 0, repository.ErrDuplicateEmail
		}
	}
	m.nextID++
	stored := *u
	stored.ID = m.nextID
	if stored.CurrentPlan == "" {
		stored.CurrentPlan = "free"
	}
	m.byID[stored.ID] = &stored
	return stored.ID, nil
}

func (m *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if u := m.findByEmail(email); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *UserRepo) findByEmail(email string) *models.User {
	for _, u := range m.byID {
		if u.Email == email {
			return u
		}
	}
	return nil
}

// InterviewRepo is an in-memory repository.InterviewRepo sharing users with
// the UserRepo it was created with.
type InterviewRepo struct {
	mu         sync.Mutex
	users      *UserRepo
	byID       map[string]*models.Interview
	deliveries map[string]string
	seq        int64

	CreateErr   error
	CompleteErr error
}

var _ repository.InterviewRepo = (*InterviewRepo)(nil)

func (m *InterviewRepo) CreateInterviewForUser(ctx context.Context, email string, iv *models.Interview, opts repository.CreateOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}

	m.users.mu.Lock()
	defer m.users.mu.Unlock()
	u := m.users.findByEmail(email)
	if u == nil {
		return repository.ErrNotFound
	}
	if opts.DeliveryID != "" {
		if _, ok := m.deliveries[opts.DeliveryID]; ok {
			return repository.ErrDuplicateDelivery
		}
	}
	if opts.RequireQuota && u.InterviewsLeft <= 0 {
		return repository.ErrQuotaExhausted
	}

	m.seq++
	if iv.ID == "" {
		iv.ID = fmt.Sprintf("iv-%d", m.seq)
	}
	iv.UserID = u.ID
	iv.Created = m.seq
	iv.Updated = m.seq
	stored := *iv
	m.byID[iv.ID] = &stored
	u.InterviewsLeft--
	if opts.DeliveryID != "" {
		m.deliveries[opts.DeliveryID] = iv.ID
	}
	return nil
}

func (m *InterviewRepo) HasDelivery(ctx context.Context, deliveryID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.deliveries[deliveryID]
	return ok, nil
}

func (m *InterviewRepo) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if iv, ok := m.byID[id]; ok {
		cp := *iv
		return &cp, nil
	}
	return nil, nil
}

func (m *InterviewRepo) ListInterviewsByUser(ctx context.Context, userID int64) ([]models.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Interview{}
	for _, iv := range m.byID {
		if iv.UserID == userID {
			out = append(out, *iv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created > out[j].Created })
	return out, nil
}

func (m *InterviewRepo) CompleteInterview(ctx context.Context, id string, analysis string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	iv, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if iv.IsCompleted {
		return repository.ErrAlreadyCompleted
	}
	iv.IsCompleted = true
	a := analysis
	iv.InterviewAnalysis = &a
	return nil
}

// Count returns the number of stored interviews.
func (m *InterviewRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}
