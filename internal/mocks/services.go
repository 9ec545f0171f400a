package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/portfolio-blog-api/internal/auth"
	"github.com/portfolio-blog-api/internal/service"
)

var (
	_ service.IdentityAdmin = (*MockIdentityAdmin)(nil)
	_ service.ImageStore    = (*MockImageStore)(nil)
)

// MockIdentityAdmin is an in-memory identity provider admin API
type MockIdentityAdmin struct {
	mu            sync.Mutex
	Users         map[string]auth.IdentityUser
	NotConfigured bool
	ListError     error
	nextID        int
}

func NewMockIdentityAdmin(users ...auth.IdentityUser) *MockIdentityAdmin {
	m := &MockIdentityAdmin{Users: make(map[string]auth.IdentityUser)}
	for _, u := range users {
		m.Users[u.ID] = u
	}
	return m
}

func (m *MockIdentityAdmin) Configured() bool {
	return !m.NotConfigured
}

func (m *MockIdentityAdmin) ListUsers(ctx context.Context) ([]auth.IdentityUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NotConfigured {
		return nil, auth.ErrAdminNotConfigured
	}
	if m.ListError != nil {
		return nil, m.ListError
	}
	out := make([]auth.IdentityUser, 0, len(m.Users))
	for _, u := range m.Users {
		out = append(out, u)
	}
	return out, nil
}

func (m *MockIdentityAdmin) CreateUser(ctx context.Context, in auth.NewIdentityUser) (*auth.IdentityUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NotConfigured {
		return nil, auth.ErrAdminNotConfigured
	}
	for _, u := range m.Users {
		if u.Email == in.Email {
			return nil, auth.ErrUserExists
		}
	}
	m.nextID++
	u := auth.IdentityUser{
		ID:           fmt.Sprintf("user-%d", m.nextID),
		Email:        in.Email,
		UserMetadata: auth.UserMetadata{Name: in.Name},
		CreatedAt:    time.Now().UTC(),
	}
	m.Users[u.ID] = u
	return &u, nil
}

func (m *MockIdentityAdmin) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NotConfigured {
		return auth.ErrAdminNotConfigured
	}
	if _, ok := m.Users[id]; !ok {
		return auth.ErrUserNotFound
	}
	delete(m.Users, id)
	return nil
}

// MockImageStore records uploaded objects in memory
type MockImageStore struct {
	mu       sync.Mutex
	Objects  map[string][]byte
	PutError error
}

func NewMockImageStore() *MockImageStore {
	return &MockImageStore{Objects: make(map[string][]byte)}
}

func (m *MockImageStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutError != nil {
		return "", m.PutError
	}
	m.Objects[key] = append([]byte(nil), data...)
	return "https://cdn.test/" + key, nil
}
