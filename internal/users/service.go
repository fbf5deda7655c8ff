// Package users manages user profiles and the login accounts linked to them.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/apperror"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/records"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resourceUser = "user"

const (
	opServiceNew     = "users.service.new"
	opCreate         = "users.create"
	opUpdate         = "users.update"
	opLoadByEmail    = "users.load_by_email"
	opLoadByUsername = "users.load_by_username"
)

var errMissingDatabase = errors.New("database handle is required")

// ServiceConfig describes the dependencies of the user service.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service manages user profiles. Email and username are unique.
type Service struct {
	db      *gorm.DB
	records *records.Service[model.User, model.UserCreate, model.UserLoad, model.UserUpdate]
	logger  *zap.Logger
}

// NewService constructs the user service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperror.New(opServiceNew, "missing_database", apperror.ErrValidation, errMissingDatabase)
	}
	base, err := records.NewService(records.ServiceConfig[model.User, model.UserCreate, model.UserLoad, model.UserUpdate]{
		Database: cfg.Database,
		Logger:   cfg.Logger,
		Shape: records.Shape[model.User, model.UserCreate, model.UserLoad, model.UserUpdate]{
			Resource:    resourceUser,
			FromCreate:  model.NewUser,
			ToLoad:      model.User.Load,
			ApplyUpdate: (*model.User).Apply,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		db:      cfg.Database,
		records: base,
		logger:  records.LoggerOrDefault(cfg.Logger),
	}, nil
}

// Create stores a new user, rejecting a taken email or username.
func (s *Service) Create(ctx context.Context, input model.UserCreate) (model.UserLoad, error) {
	input = normalizeUserCreate(input)
	var created model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.createTx(tx, input)
		created = user
		return err
	})
	if err != nil {
		return model.UserLoad{}, err
	}
	return created.Load(), nil
}

func (s *Service) createTx(tx *gorm.DB, input model.UserCreate) (model.User, error) {
	if err := s.ensureAvailable(tx, opCreate, input.Email, input.Username, 0); err != nil {
		return model.User{}, err
	}
	user := model.NewUser(input)
	if err := tx.Create(&user).Error; err != nil {
		if records.IsDuplicate(err) {
			return model.User{}, apperror.Conflict(opCreate, resourceUser, "user with this email or username already exists")
		}
		records.LogError(s.logger, opCreate, "insert_failed", err, zap.String("username", input.Username))
		return model.User{}, records.StoreError(opCreate, "insert_failed", err)
	}
	return user, nil
}

// Load returns the user with the given id.
func (s *Service) Load(ctx context.Context, id int64) (model.UserLoad, error) {
	return s.records.Load(ctx, id)
}

// Update patches a user profile. Moving onto a taken email or username is a conflict.
func (s *Service) Update(ctx context.Context, id int64, patch model.UserUpdate) (model.UserLoad, error) {
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		patch.Email = &email
	}
	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		patch.Username = &username
	}
	var email, username string
	if patch.Email != nil {
		email = *patch.Email
	}
	if patch.Username != nil {
		username = *patch.Username
	}
	if err := s.ensureAvailable(s.db.WithContext(ctx), opUpdate, email, username, id); err != nil {
		return model.UserLoad{}, err
	}
	return s.records.Update(ctx, id, patch)
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.records.Delete(ctx, id)
}

// All lists every user.
func (s *Service) All(ctx context.Context) ([]model.UserLoad, error) {
	return s.records.All(ctx)
}

// LoadByEmail returns the user with the given email.
func (s *Service) LoadByEmail(ctx context.Context, email string) (model.UserLoad, error) {
	email = normalizeEmail(email)
	user, err := findUserBy(s.db.WithContext(ctx), "email", email)
	if err != nil {
		records.LogError(s.logger, opLoadByEmail, "select_failed", err)
		return model.UserLoad{}, records.StoreError(opLoadByEmail, "select_failed", err)
	}
	if user == nil {
		return model.UserLoad{}, apperror.NotFound(opLoadByEmail, resourceUser, email)
	}
	return user.Load(), nil
}

// LoadByUsername returns the user with the given username.
func (s *Service) LoadByUsername(ctx context.Context, username string) (model.UserLoad, error) {
	username = strings.TrimSpace(username)
	user, err := findUserBy(s.db.WithContext(ctx), "username", username)
	if err != nil {
		records.LogError(s.logger, opLoadByUsername, "select_failed", err)
		return model.UserLoad{}, records.StoreError(opLoadByUsername, "select_failed", err)
	}
	if user == nil {
		return model.UserLoad{}, apperror.NotFound(opLoadByUsername, resourceUser, username)
	}
	return user.Load(), nil
}

// ensureAvailable rejects an email or username held by a user other than exceptID.
func (s *Service) ensureAvailable(db *gorm.DB, operation, email, username string, exceptID int64) error {
	checks := []struct {
		column string
		value  string
	}{
		{column: "email", value: email},
		{column: "username", value: username},
	}
	for _, check := range checks {
		if check.value == "" {
			continue
		}
		existing, err := findUserBy(db, check.column, check.value)
		if err != nil {
			records.LogError(s.logger, operation, check.column+"_select_failed", err)
			return records.StoreError(operation, check.column+"_select_failed", err)
		}
		if existing != nil && existing.ID != exceptID {
			return apperror.Conflict(operation, resourceUser, "user with this "+check.column+" already exists")
		}
	}
	return nil
}

func findUserBy(db *gorm.DB, column, value string) (*model.User, error) {
	var user model.User
	err := db.Where(column+" = ?", value).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func normalizeUserCreate(input model.UserCreate) model.UserCreate {
	input.Name = strings.TrimSpace(input.Name)
	input.Username = strings.TrimSpace(input.Username)
	input.Email = normalizeEmail(input.Email)
	return input
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
