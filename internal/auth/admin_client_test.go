package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminClient_NotConfigured(t *testing.T) {
	c := NewAdminClient("https://auth.example.com", "", zerolog.Nop())
	assert.False(t, c.Configured())

	_, err := c.ListUsers(context.Background())
	assert.ErrorIs(t, err, ErrAdminNotConfigured)

	_, err = c.CreateUser(context.Background(), NewIdentityUser{Email: "a@b.c", Password: "secret123"})
	assert.ErrorIs(t, err, ErrAdminNotConfigured)

	assert.ErrorIs(t, c.DeleteUser(context.Background(), "u1"), ErrAdminNotConfigured)
}

func TestAdminClient_ListUsersPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)

		var users []IdentityUser
		if r.URL.Query().Get("page") == "1" {
			for i := 0; i < 200; i++ {
				users = append(users, IdentityUser{ID: fmt.Sprintf("u%d", i)})
			}
		} else {
			users = []IdentityUser{{ID: "last", Email: "last@example.com"}}
		}
		json.NewEncoder(w).Encode(listUsersResponse{Users: users})
	}))
	defer srv.Close()

	c := NewAdminClient(srv.URL, "service-key", zerolog.Nop())
	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 201)
	assert.Equal(t, "last@example.com", users[200].Email)
}

func TestAdminClient_CreateAndDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["email"] == "taken@example.com" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				return
			}
			assert.Equal(t, true, body["email_confirm"])
			json.NewEncoder(w).Encode(IdentityUser{ID: "new-id", Email: body["email"].(string), UserMetadata: UserMetadata{Name: "New"}})
		case r.Method == http.MethodDelete && r.URL.Path == "/auth/v1/admin/users/missing":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewAdminClient(srv.URL+"/", "service-key", zerolog.Nop())
	ctx := context.Background()

	user, err := c.CreateUser(ctx, NewIdentityUser{Email: "new@example.com", Password: "secret123", Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, "new-id", user.ID)
	assert.Equal(t, "New", user.UserMetadata.DisplayName())

	_, err = c.CreateUser(ctx, NewIdentityUser{Email: "taken@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUserExists)

	assert.NoError(t, c.DeleteUser(ctx, "new-id"))
	assert.ErrorIs(t, c.DeleteUser(ctx, "missing"), ErrUserNotFound)
}

func TestAdminClient_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewAdminClient(srv.URL, "service-key", zerolog.Nop())
	_, err := c.ListUsers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
