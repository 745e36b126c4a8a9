package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hoangtran-dev/shopora-backend/internal/users"
	"github.com/hoangtran-dev/shopora-backend/pkg/config"
	"github.com/hoangtran-dev/shopora-backend/pkg/db/models"
	"github.com/hoangtran-dev/shopora-backend/pkg/enums"
	pkgerrors "github.com/hoangtran-dev/shopora-backend/pkg/errors"
)

type stubUserRepo struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
}

func newStubUserRepo(seed ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{
		byEmail: map[string]*models.User{},
		byID:    map[uuid.UUID]*models.User{},
	}
	for _, u := range seed {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		repo.byEmail[u.Email] = u
		repo.byID[u.ID] = u
	}
	return repo
}

func (r *stubUserRepo) WithTx(tx *gorm.DB) users.Repository { return r }

func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New()
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
	return user, nil
}

func (r *stubUserRepo) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if u, ok := r.byID[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

type stubSessionStore struct {
	tokens map[string]string
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{tokens: map[string]string{}}
}

func (s *stubSessionStore) StoreRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	s.tokens[userID] = token
	return nil
}

func (s *stubSessionStore) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	return s.tokens[userID], nil
}

func (s *stubSessionStore) RevokeRefreshToken(ctx context.Context, userID string) error {
	delete(s.tokens, userID)
	return nil
}

func testConfigs() (config.JWTConfig, config.PasswordConfig) {
	return config.JWTConfig{
			Secret:            "secret",
			Issuer:            "shopora",
			ExpirationMinutes: 30,
		}, config.PasswordConfig{
			ArgonMemoryKB:    8192,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		}
}

func newTestService(t *testing.T, repo users.Repository, sessions refreshTokenStore) Service {
	t.Helper()
	jwtCfg, pwCfg := testConfigs()
	svc, err := NewService(repo, sessions, jwtCfg, pwCfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected typed error with code %s, got %v", want, err)
	}
	if appErr.Code() != want {
		t.Fatalf("expected code %s, got %s", want, appErr.Code())
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	repo := newStubUserRepo()
	sessions := newStubSessionStore()
	svc := newTestService(t, repo, sessions)

	user, err := svc.Register(ctx, RegisterInput{
		Email:    " Shopper@Example.com ",
		Password: "correct-horse",
		FullName: "Hoang Tran",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "shopper@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", user.Role)
	}
	if user.PasswordHash == "correct-horse" || user.PasswordHash == "" {
		t.Fatal("password must be hashed")
	}

	session, err := svc.Login(ctx, "shopper@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if user.LastLoginAt == nil {
		t.Fatal("expected last login recorded")
	}

	_, err = svc.Login(ctx, "shopper@example.com", "wrong-password")
	assertCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(ctx, "nobody@example.com", "whatever")
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newStubUserRepo(), newStubSessionStore())

	_, err := svc.Register(ctx, RegisterInput{Password: "longenough", FullName: "A"})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "short", FullName: "A"})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "longenough"})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestRefreshRotatesToken(t *testing.T) {
	ctx := context.Background()
	repo := newStubUserRepo()
	sessions := newStubSessionStore()
	svc := newTestService(t, repo, sessions)

	user, err := svc.Register(ctx, RegisterInput{
		Email:    "shopper@example.com",
		Password: "correct-horse",
		FullName: "Hoang Tran",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	session, err := svc.Login(ctx, user.Email, "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, err := svc.Refresh(ctx, user.ID, session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == session.RefreshToken {
		t.Fatal("expected rotated refresh token")
	}

	// The old token no longer matches.
	_, err = svc.Refresh(ctx, user.ID, session.RefreshToken)
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	repo := newStubUserRepo()
	sessions := newStubSessionStore()
	svc := newTestService(t, repo, sessions)

	user, err := svc.Register(ctx, RegisterInput{
		Email:    "shopper@example.com",
		Password: "correct-horse",
		FullName: "Hoang Tran",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	session, err := svc.Login(ctx, user.Email, "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, err = svc.Refresh(ctx, user.ID, session.RefreshToken)
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLoginInactiveUser(t *testing.T) {
	ctx := context.Background()
	repo := newStubUserRepo()
	sessions := newStubSessionStore()
	svc := newTestService(t, repo, sessions)

	user, err := svc.Register(ctx, RegisterInput{
		Email:    "shopper@example.com",
		Password: "correct-horse",
		FullName: "Hoang Tran",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	user.IsActive = false

	_, err = svc.Login(ctx, user.Email, "correct-horse")
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}
