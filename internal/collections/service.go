// Package collections toggles question bookmarks and lists a user's saved questions.
package collections

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/apperror"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/records"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	resourceCollection = "user_collection"
	resourceQuestion   = "question"
)

const (
	opServiceNew = "collections.service.new"
	opToggle     = "collections.toggle"
	opLoad       = "collections.load"
	opSaved      = "collections.saved_questions"
)

var errMissingDatabase = errors.New("database handle is required")

// ServiceConfig configures the collection service.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service manages user bookmarks.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// SavedQuestionsPage is one page of a user's saved questions and the unpaged total.
type SavedQuestionsPage struct {
	Questions []model.QuestionLoad `json:"questions"`
	Total     int64                `json:"total"`
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperror.New(opServiceNew, "missing_database", apperror.ErrValidation, errMissingDatabase)
	}
	return &Service{db: cfg.Database, logger: records.LoggerOrDefault(cfg.Logger)}, nil
}

// Toggle removes the bookmark when present and adds it otherwise. It reports whether the
// question is saved afterwards.
func (s *Service) Toggle(ctx context.Context, userID, questionID int64) (bool, error) {
	fields := []zap.Field{zap.Int64("user_id", userID), zap.Int64("question_id", questionID)}
	var saved bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var questions int64
		if err := tx.Model(&model.Question{}).Where("id = ?", questionID).Count(&questions).Error; err != nil {
			records.LogError(s.logger, opToggle, "question_select_failed", err, fields...)
			return records.StoreError(opToggle, "question_select_failed", err)
		}
		if questions == 0 {
			return apperror.NotFound(opToggle, resourceQuestion, questionID)
		}

		existing, err := find(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID, questionID)
		if err != nil {
			records.LogError(s.logger, opToggle, "select_failed", err, fields...)
			return records.StoreError(opToggle, "select_failed", err)
		}
		if existing != nil {
			if err := tx.Delete(existing).Error; err != nil {
				records.LogError(s.logger, opToggle, "delete_failed", err, fields...)
				return records.StoreError(opToggle, "delete_failed", err)
			}
			saved = false
			return nil
		}

		bookmark := model.UserCollection{UserID: userID, QuestionID: questionID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&bookmark).Error; err != nil {
			records.LogError(s.logger, opToggle, "insert_failed", err, fields...)
			return records.StoreError(opToggle, "insert_failed", err)
		}
		saved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return saved, nil
}

// Load returns the bookmark of the pair.
func (s *Service) Load(ctx context.Context, userID, questionID int64) (model.UserCollectionLoad, error) {
	bookmark, err := find(s.db.WithContext(ctx), userID, questionID)
	if err != nil {
		records.LogError(s.logger, opLoad, "select_failed", err,
			zap.Int64("user_id", userID), zap.Int64("question_id", questionID))
		return model.UserCollectionLoad{}, records.StoreError(opLoad, "select_failed", err)
	}
	if bookmark == nil {
		return model.UserCollectionLoad{}, apperror.NotFound(opLoad, resourceCollection, [2]int64{userID, questionID})
	}
	return bookmark.Load(), nil
}

// SavedQuestions pages through the user's saved questions.
// Filters: mostvoted (default), mostrecent, mostviewed, mostanswered.
func (s *Service) SavedQuestions(ctx context.Context, userID int64, query records.ListQuery) (SavedQuestionsPage, error) {
	query = query.Normalize()
	base := func(db *gorm.DB) *gorm.DB {
		stmt := db.Model(&model.Question{}).
			Joins("JOIN user_collection ON user_collection.question_id = questions.id").
			Where("user_collection.user_id = ?", userID)
		if query.Query != "" {
			pattern := query.LikePattern()
			stmt = stmt.Where("(LOWER(questions.title) LIKE ? OR LOWER(questions.content) LIKE ?)", pattern, pattern)
		}
		return stmt
	}
	db := s.db.WithContext(ctx)

	var total int64
	if err := base(db).Count(&total).Error; err != nil {
		records.LogError(s.logger, opSaved, "count_failed", err, zap.Int64("user_id", userID))
		return SavedQuestionsPage{}, records.StoreError(opSaved, "count_failed", err)
	}

	stmt := base(model.PreloadQuestion(db))
	switch query.Filter {
	case "mostrecent":
		stmt = stmt.Order("user_collection.created_at DESC")
	case "mostviewed":
		stmt = stmt.Order("questions.views DESC")
	case "mostanswered":
		stmt = stmt.Order("(SELECT COUNT(*) FROM answers WHERE answers.question_id = questions.id) DESC")
	default:
		stmt = stmt.Order("questions.upvotes DESC")
	}

	var questions []model.Question
	if err := stmt.Order("questions.id ASC").Offset(query.Offset()).Limit(query.PageSize).Find(&questions).Error; err != nil {
		records.LogError(s.logger, opSaved, "query_failed", err, zap.Int64("user_id", userID))
		return SavedQuestionsPage{}, records.StoreError(opSaved, "query_failed", err)
	}
	return SavedQuestionsPage{Questions: model.QuestionViews(questions), Total: total}, nil
}

// DeleteForQuestion drops every bookmark of the question. Used when the question is deleted.
func (s *Service) DeleteForQuestion(tx *gorm.DB, questionID int64) error {
	if err := tx.Where("question_id = ?", questionID).Delete(&model.UserCollection{}).Error; err != nil {
		return records.StoreError("collections.delete_for_question", "delete_failed", err)
	}
	return nil
}

func find(db *gorm.DB, userID, questionID int64) (*model.UserCollection, error) {
	var bookmark model.UserCollection
	err := db.Where("user_id = ? AND question_id = ?", userID, questionID).Take(&bookmark).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bookmark, nil
}
