// Package records provides the create, load, update and delete behaviour shared by every entity.
package records

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/apperror"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingResource = errors.New("resource name is required")
	errMissingShape    = errors.New("shape conversions are required")
)

const opServiceNew = "records.service.new"

// Shape ties a persisted entity E to its creation payload C, public view L and partial update U.
type Shape[E, C, L, U any] struct {
	Resource    string
	FromCreate  func(C) E
	ToLoad      func(E) L
	ApplyUpdate func(*E, U)
}

// ServiceConfig configures a generic record service.
type ServiceConfig[E, C, L, U any] struct {
	Database *gorm.DB
	Shape    Shape[E, C, L, U]
	Logger   *zap.Logger
}

// Service persists one entity type through its four shapes.
type Service[E, C, L, U any] struct {
	db     *gorm.DB
	shape  Shape[E, C, L, U]
	logger *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService[E, C, L, U any](cfg ServiceConfig[E, C, L, U]) (*Service[E, C, L, U], error) {
	if cfg.Database == nil {
		return nil, apperror.New(opServiceNew, "missing_database", apperror.ErrValidation, errMissingDatabase)
	}
	if cfg.Shape.Resource == "" {
		return nil, apperror.New(opServiceNew, "missing_resource", apperror.ErrValidation, errMissingResource)
	}
	if cfg.Shape.FromCreate == nil || cfg.Shape.ToLoad == nil || cfg.Shape.ApplyUpdate == nil {
		return nil, apperror.New(opServiceNew, "missing_shape", apperror.ErrValidation, errMissingShape)
	}
	return &Service[E, C, L, U]{
		db:     cfg.Database,
		shape:  cfg.Shape,
		logger: LoggerOrDefault(cfg.Logger),
	}, nil
}

// Resource names the entity in error codes.
func (s *Service[E, C, L, U]) Resource() string {
	return s.shape.Resource
}

// View renders an entity through the load shape.
func (s *Service[E, C, L, U]) View(entity E) L {
	return s.shape.ToLoad(entity)
}

func (s *Service[E, C, L, U]) op(verb string) string {
	return s.shape.Resource + "." + verb
}

// Create inserts a new row built from the payload.
func (s *Service[E, C, L, U]) Create(ctx context.Context, input C) (L, error) {
	var zero L
	operation := s.op("create")
	entity := s.shape.FromCreate(input)
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&entity).Error; err != nil {
		if IsDuplicate(err) {
			return zero, apperror.Conflict(operation, s.shape.Resource, s.shape.Resource+" already exists")
		}
		LogError(s.logger, operation, "insert_failed", err)
		return zero, StoreError(operation, "insert_failed", err)
	}
	return s.shape.ToLoad(entity), nil
}

// Load returns the row with the given id.
func (s *Service[E, C, L, U]) Load(ctx context.Context, id int64) (L, error) {
	var zero L
	operation := s.op("load")
	entity, err := s.Find(s.db.WithContext(ctx), id)
	if err != nil {
		LogError(s.logger, operation, "select_failed", err, zap.Int64("id", id))
		return zero, StoreError(operation, "select_failed", err)
	}
	if entity == nil {
		return zero, apperror.NotFound(operation, s.shape.Resource, id)
	}
	return s.shape.ToLoad(*entity), nil
}

// Update applies the patch to an existing row inside one transaction.
func (s *Service[E, C, L, U]) Update(ctx context.Context, id int64, patch U) (L, error) {
	var zero L
	operation := s.op("update")
	var updated E
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entity, err := s.FindForUpdate(tx, id)
		if err != nil {
			LogError(s.logger, operation, "select_failed", err, zap.Int64("id", id))
			return StoreError(operation, "select_failed", err)
		}
		if entity == nil {
			return apperror.NotFound(operation, s.shape.Resource, id)
		}
		s.shape.ApplyUpdate(entity, patch)
		if err := tx.Omit(clause.Associations).Save(entity).Error; err != nil {
			if IsDuplicate(err) {
				return apperror.Conflict(operation, s.shape.Resource, s.shape.Resource+" already exists")
			}
			LogError(s.logger, operation, "save_failed", err, zap.Int64("id", id))
			return StoreError(operation, "save_failed", err)
		}
		updated = *entity
		return nil
	})
	if err != nil {
		return zero, err
	}
	return s.shape.ToLoad(updated), nil
}

// Delete removes an existing row.
func (s *Service[E, C, L, U]) Delete(ctx context.Context, id int64) error {
	operation := s.op("delete")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.DeleteTx(tx, operation, id)
	})
}

// DeleteTx removes an existing row within the caller's transaction.
func (s *Service[E, C, L, U]) DeleteTx(tx *gorm.DB, operation string, id int64) error {
	entity, err := s.FindForUpdate(tx, id)
	if err != nil {
		LogError(s.logger, operation, "select_failed", err, zap.Int64("id", id))
		return StoreError(operation, "select_failed", err)
	}
	if entity == nil {
		return apperror.NotFound(operation, s.shape.Resource, id)
	}
	if err := tx.Delete(entity).Error; err != nil {
		LogError(s.logger, operation, "delete_failed", err, zap.Int64("id", id))
		return StoreError(operation, "delete_failed", err)
	}
	return nil
}

// All lists every row ordered by id.
func (s *Service[E, C, L, U]) All(ctx context.Context) ([]L, error) {
	operation := s.op("all")
	var entities []E
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&entities).Error; err != nil {
		LogError(s.logger, operation, "query_failed", err)
		return nil, StoreError(operation, "query_failed", err)
	}
	views := make([]L, 0, len(entities))
	for _, entity := range entities {
		views = append(views, s.shape.ToLoad(entity))
	}
	return views, nil
}

// Find reads a row by id. Absence is reported as a nil entity, not an error.
func (s *Service[E, C, L, U]) Find(db *gorm.DB, id int64) (*E, error) {
	return take[E](db, id)
}

// FindForUpdate reads a row by id holding a row lock where the dialect supports it.
func (s *Service[E, C, L, U]) FindForUpdate(tx *gorm.DB, id int64) (*E, error) {
	return take[E](tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func take[E any](db *gorm.DB, id int64) (*E, error) {
	var entity E
	err := db.Where("id = ?", id).Take(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
