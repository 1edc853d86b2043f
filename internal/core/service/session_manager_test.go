package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/streampulse/user-service/internal/core/domain"
	"github.com/streampulse/user-service/internal/core/ports"
	"github.com/streampulse/user-service/internal/token"
)

// stubUserRepo is an in-memory ports.UserRepository with the same
// compare-and-swap semantics as the Mongo implementation.
type stubUserRepo struct {
	users  map[string]*domain.User
	nextID int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	created := cloneUser(user)
	created.ID = fmt.Sprintf("user-%d", r.nextID)
	r.users[created.ID] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByUsernameOrEmail(_ context.Context, v string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == v || u.Email == v {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Update(_ context.Context, id string, upd ports.UserUpdate) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	if upd.CoverURL != nil {
		u.CoverURL = *upd.CoverURL
	}
	if upd.Password != nil {
		u.PasswordHash = *upd.Password
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) SetRefreshToken(_ context.Context, userID, token string) error {
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.RefreshToken = token
	return nil
}

func (r *stubUserRepo) ReplaceRefreshToken(_ context.Context, userID, old, next string) error {
	u, ok := r.users[userID]
	if !ok || u.RefreshToken == "" || u.RefreshToken != old {
		return domain.ErrInvalidToken
	}
	u.RefreshToken = next
	return nil
}

func (r *stubUserRepo) ClearRefreshToken(_ context.Context, userID string) error {
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.RefreshToken = ""
	return nil
}

func (r *stubUserRepo) mustAdd(t *testing.T, user *domain.User) *domain.User {
	t.Helper()
	created, err := r.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return created
}

func newTestSessionManager(repo *stubUserRepo) *SessionManager {
	access := token.NewCodec("access-secret", 15*time.Minute)
	refresh := token.NewCodec("refresh-secret", 7*24*time.Hour)
	return NewSessionManager(repo, access, refresh, zerolog.Nop())
}

func TestSessionManager_Issue_PersistsRefreshValue(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.mustAdd(t, &domain.User{Username: "ann", Email: "a@x.com"})
	m := newTestSessionManager(repo)

	pair, err := m.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}

	stored, _ := repo.FindByID(context.Background(), user.ID)
	if stored.RefreshToken != pair.RefreshToken {
		t.Fatalf("stored refresh value does not match returned token")
	}
}

func TestSessionManager_Issue_OverwritesPriorValue(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.mustAdd(t, &domain.User{Username: "ann", Email: "a@x.com"})
	m := newTestSessionManager(repo)

	first, err := m.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	if _, err := m.Issue(context.Background(), user.ID); err != nil {
		t.Fatalf("second issue: %v", err)
	}

	// The first refresh token was invalidated by the overwrite.
	if _, err := m.Rotate(context.Background(), first.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for superseded token, got %v", err)
	}
}

func TestSessionManager_Rotate_SingleUse(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.mustAdd(t, &domain.User{Username: "ann", Email: "a@x.com"})
	m := newTestSessionManager(repo)

	pair, err := m.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rotated, err := m.Rotate(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("first rotation: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatalf("rotation returned the same refresh token")
	}

	// The original token's signature still verifies, but the stored value
	// moved on: a second use must fail.
	if _, err := m.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken on token reuse, got %v", err)
	}

	// The rotated-to token keeps working.
	if _, err := m.Rotate(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("rotation with current token failed: %v", err)
	}
}

func TestSessionManager_Rotate_BadToken(t *testing.T) {
	repo := newStubUserRepo()
	m := newTestSessionManager(repo)

	for _, tok := range []string{"", "garbage"} {
		if _, err := m.Rotate(context.Background(), tok); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", tok, err)
		}
	}
}

func TestSessionManager_Rotate_ExpiredToken(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.mustAdd(t, &domain.User{Username: "ann", Email: "a@x.com"})

	access := token.NewCodec("access-secret", 15*time.Minute)
	expiredRefresh := token.NewCodec("refresh-secret", -time.Minute)
	m := NewSessionManager(repo, access, expiredRefresh, zerolog.Nop())

	pair, err := m.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestSessionManager_Revoke_IsAbsolute(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.mustAdd(t, &domain.User{Username: "ann", Email: "a@x.com"})
	m := newTestSessionManager(repo)

	pair, err := m.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := m.Revoke(context.Background(), user.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	// The previously valid refresh token is dead even though its signature
	// still verifies.
	if _, err := m.Rotate(context.Background(), pair.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after revocation, got %v", err)
	}

	stored, _ := repo.FindByID(context.Background(), user.ID)
	if stored.RefreshToken != "" {
		t.Fatalf("expected cleared refresh value, got %q", stored.RefreshToken)
	}
}

func TestSessionManager_Rotate_NoPartialStateOnFailure(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.mustAdd(t, &domain.User{Username: "ann", Email: "a@x.com"})
	m := newTestSessionManager(repo)

	pair, err := m.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// A forged token for the right user id but wrong key must fail and
	// leave the stored value untouched.
	forged, err := token.NewCodec("wrong-secret", time.Hour).Sign(user.ID)
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	if _, err := m.Rotate(context.Background(), forged); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for forged token, got %v", err)
	}

	stored, _ := repo.FindByID(context.Background(), user.ID)
	if stored.RefreshToken != pair.RefreshToken {
		t.Fatalf("stored refresh value changed on failed rotation")
	}
}
