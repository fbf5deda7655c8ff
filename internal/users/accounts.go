package users

import (
	"context"
	"errors"
	"strings"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/apperror"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/records"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const resourceAccount = "account"

const (
	opAccountServiceNew     = "accounts.service.new"
	opAccountCreate         = "accounts.create"
	opAccountUpdate         = "accounts.update"
	opLoadByProviderAccount = "accounts.load_by_provider_account_id"
	opSignInWithOAuth       = "accounts.sign_in_with_oauth"
	opSignUpWithCredentials = "accounts.sign_up_with_credentials"
	opSignInWithCredentials = "accounts.sign_in_with_credentials"
)

var errMissingUsers = errors.New("user service is required")

// AccountServiceConfig describes the dependencies of the account service.
type AccountServiceConfig struct {
	Database *gorm.DB
	Users    *Service
	Logger   *zap.Logger
	// PasswordCost is the bcrypt cost; zero selects bcrypt.DefaultCost.
	PasswordCost int
}

// AccountService manages provider accounts and sign-in.
type AccountService struct {
	db           *gorm.DB
	records      *records.Service[model.Account, model.AccountCreate, model.AccountLoad, model.AccountUpdate]
	users        *Service
	passwordCost int
	logger       *zap.Logger
}

// NewAccountService constructs the account service.
func NewAccountService(cfg AccountServiceConfig) (*AccountService, error) {
	if cfg.Database == nil {
		return nil, apperror.New(opAccountServiceNew, "missing_database", apperror.ErrValidation, errMissingDatabase)
	}
	if cfg.Users == nil {
		return nil, apperror.New(opAccountServiceNew, "missing_users", apperror.ErrValidation, errMissingUsers)
	}
	base, err := records.NewService(records.ServiceConfig[model.Account, model.AccountCreate, model.AccountLoad, model.AccountUpdate]{
		Database: cfg.Database,
		Logger:   cfg.Logger,
		Shape: records.Shape[model.Account, model.AccountCreate, model.AccountLoad, model.AccountUpdate]{
			Resource:    resourceAccount,
			FromCreate:  model.NewAccount,
			ToLoad:      model.Account.Load,
			ApplyUpdate: (*model.Account).Apply,
		},
	})
	if err != nil {
		return nil, err
	}
	cost := cfg.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AccountService{
		db:           cfg.Database,
		records:      base,
		users:        cfg.Users,
		passwordCost: cost,
		logger:       records.LoggerOrDefault(cfg.Logger),
	}, nil
}

// Create stores an account, rejecting a duplicate (username, provider account id) pair.
// A supplied password is stored as a bcrypt hash.
func (s *AccountService) Create(ctx context.Context, input model.AccountCreate) (model.AccountLoad, error) {
	if input.Password != nil {
		hashed, err := s.hashPassword(opAccountCreate, *input.Password)
		if err != nil {
			return model.AccountLoad{}, err
		}
		input.Password = &hashed
	}
	var created model.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.createTx(tx, model.NewAccount(input))
		return err
	})
	if err != nil {
		return model.AccountLoad{}, err
	}
	return created.Load(), nil
}

func (s *AccountService) createTx(tx *gorm.DB, account model.Account) (model.Account, error) {
	var existing int64
	err := tx.Model(&model.Account{}).
		Where("username = ? AND provider_account_id = ?", account.Username, account.ProviderAccountID).
		Count(&existing).Error
	if err != nil {
		records.LogError(s.logger, opAccountCreate, "select_failed", err, zap.String("provider", account.Provider))
		return model.Account{}, records.StoreError(opAccountCreate, "select_failed", err)
	}
	if existing > 0 {
		return model.Account{}, apperror.Conflict(opAccountCreate, resourceAccount, "account with this username and provider id already exists")
	}
	if err := tx.Create(&account).Error; err != nil {
		if records.IsDuplicate(err) {
			return model.Account{}, apperror.Conflict(opAccountCreate, resourceAccount, "account with this username and provider id already exists")
		}
		records.LogError(s.logger, opAccountCreate, "insert_failed", err, zap.String("provider", account.Provider))
		return model.Account{}, records.StoreError(opAccountCreate, "insert_failed", err)
	}
	return account, nil
}

// Load returns the account with the given id.
func (s *AccountService) Load(ctx context.Context, id int64) (model.AccountLoad, error) {
	return s.records.Load(ctx, id)
}

// Update patches an account; a new password is hashed before storage.
func (s *AccountService) Update(ctx context.Context, id int64, patch model.AccountUpdate) (model.AccountLoad, error) {
	if patch.Password != nil {
		hashed, err := s.hashPassword(opAccountUpdate, *patch.Password)
		if err != nil {
			return model.AccountLoad{}, err
		}
		patch.Password = &hashed
	}
	return s.records.Update(ctx, id, patch)
}

// Delete removes an account.
func (s *AccountService) Delete(ctx context.Context, id int64) error {
	return s.records.Delete(ctx, id)
}

// All lists every account.
func (s *AccountService) All(ctx context.Context) ([]model.AccountLoad, error) {
	return s.records.All(ctx)
}

// LoadByProviderAccountID returns the account registered under the provider account id.
func (s *AccountService) LoadByProviderAccountID(ctx context.Context, providerAccountID string) (model.AccountLoad, error) {
	account, found, err := findAccount(s.db.WithContext(ctx), "provider_account_id = ?", providerAccountID)
	if err != nil {
		records.LogError(s.logger, opLoadByProviderAccount, "select_failed", err)
		return model.AccountLoad{}, records.StoreError(opLoadByProviderAccount, "select_failed", err)
	}
	if !found {
		return model.AccountLoad{}, apperror.NotFound(opLoadByProviderAccount, resourceAccount, providerAccountID)
	}
	return account.Load(), nil
}

// SignInWithOAuth finds or creates the provider account and the user behind it, matching users
// by email and refreshing their image from the provider profile.
func (s *AccountService) SignInWithOAuth(ctx context.Context, request model.AccountSignInWithOAuth) (model.AccountLoad, error) {
	profile := normalizeUserCreate(request.User)
	fields := []zap.Field{zap.String("provider", request.Provider)}

	var signedIn model.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := findUserBy(tx, "email", profile.Email)
		if err != nil {
			records.LogError(s.logger, opSignInWithOAuth, "user_select_failed", err, fields...)
			return records.StoreError(opSignInWithOAuth, "user_select_failed", err)
		}
		switch {
		case user == nil:
			created, err := s.users.createTx(tx, profile)
			if err != nil {
				return err
			}
			user = &created
		case user.Image != profile.Image:
			if err := tx.Model(user).UpdateColumn("image", profile.Image).Error; err != nil {
				records.LogError(s.logger, opSignInWithOAuth, "user_image_failed", err, fields...)
				return records.StoreError(opSignInWithOAuth, "user_image_failed", err)
			}
		}

		account, found, err := findAccount(tx, "provider = ? AND provider_account_id = ?", request.Provider, request.ProviderAccountID)
		if err != nil {
			records.LogError(s.logger, opSignInWithOAuth, "account_select_failed", err, fields...)
			return records.StoreError(opSignInWithOAuth, "account_select_failed", err)
		}
		if found {
			signedIn = account
			return nil
		}

		image := profile.Image
		userID := user.ID
		signedIn, err = s.createTx(tx, model.Account{
			UserID:            &userID,
			Username:          profile.Username,
			Image:             &image,
			Provider:          request.Provider,
			ProviderAccountID: request.ProviderAccountID,
		})
		return err
	})
	if err != nil {
		return model.AccountLoad{}, err
	}
	return signedIn.Load(), nil
}

// SignUpWithCredentials creates a user and its credentials account.
func (s *AccountService) SignUpWithCredentials(ctx context.Context, request model.AccountSignUpWithCredentials) (model.AccountLoad, error) {
	if strings.TrimSpace(request.Password) == "" {
		return model.AccountLoad{}, apperror.Validation(opSignUpWithCredentials, "empty_password", "password is required")
	}
	hashed, err := s.hashPassword(opSignUpWithCredentials, request.Password)
	if err != nil {
		return model.AccountLoad{}, err
	}
	profile := normalizeUserCreate(model.UserCreate{
		Name:     request.Name,
		Username: request.Username,
		Email:    request.Email,
	})

	var account model.Account
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.users.createTx(tx, profile)
		if err != nil {
			return err
		}
		userID := user.ID
		account, err = s.createTx(tx, model.Account{
			UserID:            &userID,
			Username:          user.Username,
			Provider:          model.ProviderCredentials,
			ProviderAccountID: user.Email,
			Password:          &hashed,
		})
		return err
	})
	if err != nil {
		return model.AccountLoad{}, err
	}
	return account.Load(), nil
}

// SignInWithCredentials checks an email and password against the credentials account.
func (s *AccountService) SignInWithCredentials(ctx context.Context, request model.AccountSignInWithCredentials) (model.AccountLoad, error) {
	email := normalizeEmail(request.Email)
	db := s.db.WithContext(ctx)

	user, err := findUserBy(db, "email", email)
	if err != nil {
		records.LogError(s.logger, opSignInWithCredentials, "user_select_failed", err)
		return model.AccountLoad{}, records.StoreError(opSignInWithCredentials, "user_select_failed", err)
	}
	if user == nil {
		return model.AccountLoad{}, apperror.NotFound(opSignInWithCredentials, resourceUser, email)
	}

	account, found, err := findAccount(db, "user_id = ? AND provider = ?", user.ID, model.ProviderCredentials)
	if err != nil {
		records.LogError(s.logger, opSignInWithCredentials, "account_select_failed", err, zap.Int64("user_id", user.ID))
		return model.AccountLoad{}, records.StoreError(opSignInWithCredentials, "account_select_failed", err)
	}
	if !found || account.Password == nil {
		return model.AccountLoad{}, apperror.NotFound(opSignInWithCredentials, resourceAccount, email)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*account.Password), []byte(request.Password)); err != nil {
		return model.AccountLoad{}, apperror.Validation(opSignInWithCredentials, "invalid_credentials", "email or password is incorrect")
	}
	return account.Load(), nil
}

func (s *AccountService) hashPassword(operation, password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperror.Validation(operation, "password_too_long", "password must be at most 72 bytes")
		}
		return "", apperror.New(operation, "hash_failed", apperror.ErrStoreFailure, err)
	}
	return string(hashed), nil
}

func findAccount(db *gorm.DB, query string, args ...interface{}) (model.Account, bool, error) {
	var account model.Account
	err := db.Where(query, args...).Order("id ASC").Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Account{}, false, nil
	}
	if err != nil {
		return model.Account{}, false, err
	}
	return account, true, nil
}
