package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/apperror"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/database"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestServices(t *testing.T) (*Service, *AccountService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:users_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := database.OpenSQLite(dsn, nil, "")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	userService, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to create user service: %v", err)
	}
	accountService, err := NewAccountService(AccountServiceConfig{
		Database:     db,
		Users:        userService,
		PasswordCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("failed to create account service: %v", err)
	}
	return userService, accountService, db
}

func TestCreateUserRejectsDuplicateEmailAndUsername(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestServices(t)

	created, err := service.Create(ctx, model.UserCreate{Name: "Ada", Username: "ada", Email: " Ada@Example.com "})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}

	_, err = service.Create(ctx, model.UserCreate{Name: "Other", Username: "other", Email: "ada@example.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
	_, err = service.Create(ctx, model.UserCreate{Name: "Other", Username: "ada", Email: "other@example.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected conflict on duplicate username, got %v", err)
	}

	all, err := service.All(ctx)
	if err != nil {
		t.Fatalf("all failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one user, got %d", len(all))
	}
}

func TestLoadByEmailAndUsername(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestServices(t)
	created, err := service.Create(ctx, model.UserCreate{Name: "Grace", Username: "grace", Email: "grace@example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	byEmail, err := service.LoadByEmail(ctx, "GRACE@example.com")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("expected user by email, got %+v, %v", byEmail, err)
	}
	byUsername, err := service.LoadByUsername(ctx, "grace")
	if err != nil || byUsername.ID != created.ID {
		t.Fatalf("expected user by username, got %+v, %v", byUsername, err)
	}

	if _, err := service.LoadByEmail(ctx, "missing@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := service.LoadByUsername(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateUserOntoTakenUsernameConflicts(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestServices(t)
	if _, err := service.Create(ctx, model.UserCreate{Name: "A", Username: "a", Email: "a@example.com"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := service.Create(ctx, model.UserCreate{Name: "B", Username: "b", Email: "b@example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	taken := "a"
	if _, err := service.Update(ctx, second.ID, model.UserUpdate{Username: &taken}); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	same := "b"
	bio := "hello"
	updated, err := service.Update(ctx, second.ID, model.UserUpdate{Username: &same, Bio: &bio})
	if err != nil {
		t.Fatalf("expected update keeping own username to succeed: %v", err)
	}
	if updated.Bio == nil || *updated.Bio != "hello" {
		t.Fatalf("expected bio to be updated, got %+v", updated.Bio)
	}
}

func TestAccountCreateRejectsDuplicateProviderUsername(t *testing.T) {
	ctx := context.Background()
	_, accounts, _ := newTestServices(t)

	input := model.AccountCreate{Username: "ada", Provider: "github", ProviderAccountID: "gh-1"}
	if _, err := accounts.Create(ctx, input); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := accounts.Create(ctx, input); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	loaded, err := accounts.LoadByProviderAccountID(ctx, "gh-1")
	if err != nil {
		t.Fatalf("load by provider account id failed: %v", err)
	}
	if loaded.Username != "ada" {
		t.Fatalf("unexpected account %+v", loaded)
	}
	if _, err := accounts.LoadByProviderAccountID(ctx, "gh-2"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSignInWithOAuthCreatesOnceAndRefreshesImage(t *testing.T) {
	ctx := context.Background()
	userService, accounts, db := newTestServices(t)

	request := model.AccountSignInWithOAuth{
		Provider:          "github",
		ProviderAccountID: "gh-42",
		User:              model.UserCreate{Name: "Linus", Username: "linus", Email: "linus@example.com", Image: "v1.png"},
	}
	first, err := accounts.SignInWithOAuth(ctx, request)
	if err != nil {
		t.Fatalf("first sign-in failed: %v", err)
	}
	if first.UserID == nil {
		t.Fatalf("expected account to be linked to a user")
	}

	request.User.Image = "v2.png"
	second, err := accounts.SignInWithOAuth(ctx, request)
	if err != nil {
		t.Fatalf("second sign-in failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same account, got %d and %d", first.ID, second.ID)
	}

	user, err := userService.LoadByEmail(ctx, "linus@example.com")
	if err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if user.Image != "v2.png" {
		t.Fatalf("expected refreshed image, got %q", user.Image)
	}

	var accountCount, userCount int64
	db.Model(&model.Account{}).Count(&accountCount)
	db.Model(&model.User{}).Count(&userCount)
	if accountCount != 1 || userCount != 1 {
		t.Fatalf("expected one account and one user, got %d and %d", accountCount, userCount)
	}
}

func TestCredentialsSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	_, accounts, _ := newTestServices(t)

	signedUp, err := accounts.SignUpWithCredentials(ctx, model.AccountSignUpWithCredentials{
		Name: "Barbara", Username: "barbara", Email: "barbara@example.com", Password: "s3cret",
	})
	if err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}
	if signedUp.Provider != model.ProviderCredentials {
		t.Fatalf("expected credentials provider, got %q", signedUp.Provider)
	}

	signedIn, err := accounts.SignInWithCredentials(ctx, model.AccountSignInWithCredentials{Email: "Barbara@example.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if signedIn.ID != signedUp.ID {
		t.Fatalf("expected the sign-up account, got %d", signedIn.ID)
	}

	_, err = accounts.SignInWithCredentials(ctx, model.AccountSignInWithCredentials{Email: "barbara@example.com", Password: "wrong"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error for bad password, got %v", err)
	}
	_, err = accounts.SignInWithCredentials(ctx, model.AccountSignInWithCredentials{Email: "nobody@example.com", Password: "s3cret"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found for unknown email, got %v", err)
	}

	_, err = accounts.SignUpWithCredentials(ctx, model.AccountSignUpWithCredentials{
		Name: "Again", Username: "barbara2", Email: "barbara@example.com", Password: "x",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected conflict on reused email, got %v", err)
	}
}

func TestAccountUpdateHashesPassword(t *testing.T) {
	ctx := context.Background()
	_, accounts, db := newTestServices(t)

	created, err := accounts.Create(ctx, model.AccountCreate{Username: "u", Provider: "github", ProviderAccountID: "gh-9"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	password := "plain"
	if _, err := accounts.Update(ctx, created.ID, model.AccountUpdate{Password: &password}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	var stored model.Account
	if err := db.Take(&stored, "id = ?", created.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.Password == nil || *stored.Password == "plain" {
		t.Fatalf("expected password to be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*stored.Password), []byte("plain")); err != nil {
		t.Fatalf("stored hash does not match: %v", err)
	}
}
