// Package answers manages answers to questions.
package answers

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/apperror"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/records"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/votes"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const resourceAnswer = "answer"

const (
	opServiceNew  = "answers.service.new"
	opCreate      = "answers.create"
	opDelete      = "answers.delete"
	opForQuestion = "answers.for_question"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingVotes    = errors.New("vote service is required")
)

// ServiceConfig configures the answer service.
type ServiceConfig struct {
	Database *gorm.DB
	Votes    *votes.Service
	Logger   *zap.Logger
}

// Service manages answers.
type Service struct {
	db      *gorm.DB
	records *records.Service[model.Answer, model.AnswerCreate, model.AnswerLoad, model.AnswerUpdate]
	votes   *votes.Service
	logger  *zap.Logger
}

// AnswersPage is one page of a question's answers and the unpaged total.
type AnswersPage struct {
	Answers []model.AnswerLoad `json:"answers"`
	Total   int64              `json:"total"`
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperror.New(opServiceNew, "missing_database", apperror.ErrValidation, errMissingDatabase)
	}
	if cfg.Votes == nil {
		return nil, apperror.New(opServiceNew, "missing_votes", apperror.ErrValidation, errMissingVotes)
	}
	base, err := records.NewService(records.ServiceConfig[model.Answer, model.AnswerCreate, model.AnswerLoad, model.AnswerUpdate]{
		Database: cfg.Database,
		Logger:   cfg.Logger,
		Shape: records.Shape[model.Answer, model.AnswerCreate, model.AnswerLoad, model.AnswerUpdate]{
			Resource:    resourceAnswer,
			FromCreate:  model.NewAnswer,
			ToLoad:      model.Answer.Load,
			ApplyUpdate: (*model.Answer).Apply,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		db:      cfg.Database,
		records: base,
		votes:   cfg.Votes,
		logger:  records.LoggerOrDefault(cfg.Logger),
	}, nil
}

// Create stores an answer to an existing question by an existing user.
func (s *Service) Create(ctx context.Context, input model.AnswerCreate) (model.AnswerLoad, error) {
	answer := model.NewAnswer(input)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireRow(tx, opCreate, &model.Question{}, "question", answer.QuestionID); err != nil {
			return err
		}
		if err := s.requireRow(tx, opCreate, &model.User{}, "user", answer.UserID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&answer).Error; err != nil {
			records.LogError(s.logger, opCreate, "insert_failed", err, zap.Int64("question_id", answer.QuestionID))
			return records.StoreError(opCreate, "insert_failed", err)
		}
		if err := tx.Preload("User").Where("id = ?", answer.ID).Take(&answer).Error; err != nil {
			return records.StoreError(opCreate, "reload_failed", err)
		}
		return nil
	})
	if err != nil {
		return model.AnswerLoad{}, err
	}
	return answer.Load(), nil
}

// Load returns the answer with the given id.
func (s *Service) Load(ctx context.Context, id int64) (model.AnswerLoad, error) {
	return s.records.Load(ctx, id)
}

// Update edits the answer body.
func (s *Service) Update(ctx context.Context, id int64, patch model.AnswerUpdate) (model.AnswerLoad, error) {
	return s.records.Update(ctx, id, patch)
}

// Delete removes the answer and the votes cast on it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		answer, err := s.records.FindForUpdate(tx, id)
		if err != nil {
			records.LogError(s.logger, opDelete, "select_failed", err, zap.Int64("id", id))
			return records.StoreError(opDelete, "select_failed", err)
		}
		if answer == nil {
			return apperror.NotFound(opDelete, resourceAnswer, id)
		}
		if err := s.votes.DeleteForTarget(tx, model.TargetAnswer, id); err != nil {
			records.LogError(s.logger, opDelete, "votes_failed", err, zap.Int64("id", id))
			return err
		}
		if err := tx.Delete(answer).Error; err != nil {
			records.LogError(s.logger, opDelete, "delete_failed", err, zap.Int64("id", id))
			return records.StoreError(opDelete, "delete_failed", err)
		}
		return nil
	})
}

// ForQuestion pages through the answers of a question. Filters: popular (default), latest, oldest.
func (s *Service) ForQuestion(ctx context.Context, questionID int64, query records.ListQuery) (AnswersPage, error) {
	query = query.Normalize()
	db := s.db.WithContext(ctx)
	if err := s.requireRow(db, opForQuestion, &model.Question{}, "question", questionID); err != nil {
		return AnswersPage{}, err
	}

	var total int64
	if err := db.Model(&model.Answer{}).Where("question_id = ?", questionID).Count(&total).Error; err != nil {
		records.LogError(s.logger, opForQuestion, "count_failed", err, zap.Int64("question_id", questionID))
		return AnswersPage{}, records.StoreError(opForQuestion, "count_failed", err)
	}

	stmt := db.Preload("User").Where("question_id = ?", questionID)
	switch query.Filter {
	case "latest":
		stmt = stmt.Order("created_at DESC").Order("id DESC")
	case "oldest":
		stmt = stmt.Order("created_at ASC").Order("id ASC")
	default:
		stmt = stmt.Order("upvotes DESC").Order("id ASC")
	}

	var answers []model.Answer
	if err := stmt.Offset(query.Offset()).Limit(query.PageSize).Find(&answers).Error; err != nil {
		records.LogError(s.logger, opForQuestion, "query_failed", err, zap.Int64("question_id", questionID))
		return AnswersPage{}, records.StoreError(opForQuestion, "query_failed", err)
	}
	page := AnswersPage{Answers: make([]model.AnswerLoad, 0, len(answers)), Total: total}
	for _, answer := range answers {
		page.Answers = append(page.Answers, answer.Load())
	}
	return page, nil
}

func (s *Service) requireRow(db *gorm.DB, operation string, table interface{}, resource string, id int64) error {
	var count int64
	if err := db.Model(table).Where("id = ?", id).Count(&count).Error; err != nil {
		records.LogError(s.logger, operation, resource+"_select_failed", err, zap.Int64("id", id))
		return records.StoreError(operation, resource+"_select_failed", err)
	}
	if count == 0 {
		return apperror.NotFound(operation, resource, id)
	}
	return nil
}
