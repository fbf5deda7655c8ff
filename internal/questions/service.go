// Package questions creates, edits and lists questions while keeping tag counts current.
package questions

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/apperror"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/collections"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/records"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/tags"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/votes"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	resourceQuestion = "question"
	resourceUser     = "user"
)

const (
	opServiceNew = "questions.service.new"
	opCreate     = "questions.create"
	opLoad       = "questions.load"
	opUpdate     = "questions.update"
	opDelete     = "questions.delete"
	opList       = "questions.list"
)

var (
	errMissingDatabase    = errors.New("database handle is required")
	errMissingTags        = errors.New("tag service is required")
	errMissingVotes       = errors.New("vote service is required")
	errMissingCollections = errors.New("collection service is required")
)

// ServiceConfig configures the question service.
type ServiceConfig struct {
	Database    *gorm.DB
	Tags        *tags.Service
	Votes       *votes.Service
	Collections *collections.Service
	Logger      *zap.Logger
}

// Service manages questions.
type Service struct {
	db          *gorm.DB
	records     *records.Service[model.Question, model.QuestionCreate, model.QuestionLoad, model.QuestionUpdate]
	tags        *tags.Service
	votes       *votes.Service
	collections *collections.Service
	logger      *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Database == nil:
		return nil, apperror.New(opServiceNew, "missing_database", apperror.ErrValidation, errMissingDatabase)
	case cfg.Tags == nil:
		return nil, apperror.New(opServiceNew, "missing_tags", apperror.ErrValidation, errMissingTags)
	case cfg.Votes == nil:
		return nil, apperror.New(opServiceNew, "missing_votes", apperror.ErrValidation, errMissingVotes)
	case cfg.Collections == nil:
		return nil, apperror.New(opServiceNew, "missing_collections", apperror.ErrValidation, errMissingCollections)
	}
	base, err := records.NewService(records.ServiceConfig[model.Question, model.QuestionCreate, model.QuestionLoad, model.QuestionUpdate]{
		Database: cfg.Database,
		Logger:   cfg.Logger,
		Shape: records.Shape[model.Question, model.QuestionCreate, model.QuestionLoad, model.QuestionUpdate]{
			Resource:    resourceQuestion,
			FromCreate:  model.NewQuestion,
			ToLoad:      model.Question.Load,
			ApplyUpdate: (*model.Question).Apply,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		db:          cfg.Database,
		records:     base,
		tags:        cfg.Tags,
		votes:       cfg.Votes,
		collections: cfg.Collections,
		logger:      records.LoggerOrDefault(cfg.Logger),
	}, nil
}

// Create inserts the question, attaches its tags and recounts them in one transaction.
func (s *Service) Create(ctx context.Context, input model.QuestionCreate) (model.QuestionLoad, error) {
	question := model.NewQuestion(input)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireUser(tx, opCreate, question.AuthorID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&question).Error; err != nil {
			records.LogError(s.logger, opCreate, "insert_failed", err, zap.Int64("author_id", question.AuthorID))
			return records.StoreError(opCreate, "insert_failed", err)
		}
		return s.replaceTags(tx, question.ID, input.Tags)
	})
	if err != nil {
		return model.QuestionLoad{}, err
	}
	return s.Load(ctx, question.ID)
}

// Load returns the question with its tags, author and answers.
func (s *Service) Load(ctx context.Context, id int64) (model.QuestionLoad, error) {
	var question model.Question
	err := model.PreloadQuestion(s.db.WithContext(ctx)).Where("id = ?", id).Take(&question).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.QuestionLoad{}, apperror.NotFound(opLoad, resourceQuestion, id)
	}
	if err != nil {
		records.LogError(s.logger, opLoad, "select_failed", err, zap.Int64("id", id))
		return model.QuestionLoad{}, records.StoreError(opLoad, "select_failed", err)
	}
	return question.Load(), nil
}

// Update patches the question. A supplied tag list replaces the tag set and recounts the union
// of the old and the new tags, so an empty list clears every tag.
func (s *Service) Update(ctx context.Context, id int64, patch model.QuestionUpdate) (model.QuestionLoad, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question, err := s.records.FindForUpdate(tx, id)
		if err != nil {
			records.LogError(s.logger, opUpdate, "select_failed", err, zap.Int64("id", id))
			return records.StoreError(opUpdate, "select_failed", err)
		}
		if question == nil {
			return apperror.NotFound(opUpdate, resourceQuestion, id)
		}
		if patch.AuthorID != nil && *patch.AuthorID != question.AuthorID {
			if err := s.requireUser(tx, opUpdate, *patch.AuthorID); err != nil {
				return err
			}
		}

		question.Apply(patch)
		if err := tx.Omit(clause.Associations).Save(question).Error; err != nil {
			records.LogError(s.logger, opUpdate, "save_failed", err, zap.Int64("id", id))
			return records.StoreError(opUpdate, "save_failed", err)
		}
		if patch.Tags == nil {
			return nil
		}
		return s.replaceTags(tx, id, *patch.Tags)
	})
	if err != nil {
		return model.QuestionLoad{}, err
	}
	return s.Load(ctx, id)
}

// Delete removes the question with its answers, votes, bookmarks and tag relationships,
// recounting the tags it carried.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question, err := s.records.FindForUpdate(tx, id)
		if err != nil {
			records.LogError(s.logger, opDelete, "select_failed", err, zap.Int64("id", id))
			return records.StoreError(opDelete, "select_failed", err)
		}
		if question == nil {
			return apperror.NotFound(opDelete, resourceQuestion, id)
		}

		if err := s.replaceTags(tx, id, nil); err != nil {
			return err
		}
		if err := s.collections.DeleteForQuestion(tx, id); err != nil {
			records.LogError(s.logger, opDelete, "collections_failed", err, zap.Int64("id", id))
			return err
		}

		var answerIDs []int64
		if err := tx.Model(&model.Answer{}).Where("question_id = ?", id).Pluck("id", &answerIDs).Error; err != nil {
			records.LogError(s.logger, opDelete, "answers_select_failed", err, zap.Int64("id", id))
			return records.StoreError(opDelete, "answers_select_failed", err)
		}
		for _, answerID := range answerIDs {
			if err := s.votes.DeleteForTarget(tx, model.TargetAnswer, answerID); err != nil {
				records.LogError(s.logger, opDelete, "answer_votes_failed", err, zap.Int64("answer_id", answerID))
				return err
			}
		}
		if err := tx.Where("question_id = ?", id).Delete(&model.Answer{}).Error; err != nil {
			records.LogError(s.logger, opDelete, "answers_delete_failed", err, zap.Int64("id", id))
			return records.StoreError(opDelete, "answers_delete_failed", err)
		}
		if err := s.votes.DeleteForTarget(tx, model.TargetQuestion, id); err != nil {
			records.LogError(s.logger, opDelete, "votes_failed", err, zap.Int64("id", id))
			return err
		}
		if err := tx.Delete(question).Error; err != nil {
			records.LogError(s.logger, opDelete, "delete_failed", err, zap.Int64("id", id))
			return records.StoreError(opDelete, "delete_failed", err)
		}
		return nil
	})
}

// List pages through questions matching the search text.
// Filters: newest (default), popular, unanswered.
func (s *Service) List(ctx context.Context, query records.ListQuery) ([]model.QuestionLoad, error) {
	query = query.Normalize()
	stmt := model.PreloadQuestion(s.db.WithContext(ctx)).Model(&model.Question{})
	if query.Query != "" {
		pattern := query.LikePattern()
		stmt = stmt.Where("(LOWER(questions.title) LIKE ? OR LOWER(questions.content) LIKE ?)", pattern, pattern)
	}
	switch query.Filter {
	case "popular":
		stmt = stmt.Order("questions.upvotes DESC")
	case "unanswered":
		stmt = stmt.
			Where("NOT EXISTS (SELECT 1 FROM answers WHERE answers.question_id = questions.id)").
			Order("questions.created_at DESC")
	default:
		stmt = stmt.Order("questions.created_at DESC")
	}

	var questions []model.Question
	if err := stmt.Order("questions.id DESC").Offset(query.Offset()).Limit(query.PageSize).Find(&questions).Error; err != nil {
		records.LogError(s.logger, opList, "query_failed", err)
		return nil, records.StoreError(opList, "query_failed", err)
	}
	return model.QuestionViews(questions), nil
}

func (s *Service) replaceTags(tx *gorm.DB, questionID int64, names []string) error {
	affected, err := s.tags.AttachTagsToQuestion(tx, questionID, names)
	if err != nil {
		return err
	}
	return s.tags.RecountTags(tx, affected)
}

func (s *Service) requireUser(tx *gorm.DB, operation string, userID int64) error {
	var count int64
	if err := tx.Model(&model.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		records.LogError(s.logger, operation, "author_select_failed", err, zap.Int64("author_id", userID))
		return records.StoreError(operation, "author_select_failed", err)
	}
	if count == 0 {
		return apperror.NotFound(operation, resourceUser, userID)
	}
	return nil
}
