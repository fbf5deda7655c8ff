// Package votes toggles a user's vote on a question or answer and recomputes the target's
// upvote and downvote counters from the votes table after every change.
package votes

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

const resourceVote = "vote"

const (
	opServiceNew = "votes.service.new"
	opFindVote   = "votes.find_vote"
	opDoVote     = "votes.do_vote"
	opRecount    = "votes.recount"
	opRecountAll = "votes.recount_all"
	opCreate     = "votes.create"
	opUpdate     = "votes.update"
	opDelete     = "votes.delete"
)

var errMissingDatabase = errors.New("database handle is required")

// ServiceConfig configures the vote service.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service owns the vote toggle protocol.
type Service struct {
	db      *gorm.DB
	records *records.Service[model.Vote, model.VoteCreate, model.VoteLoad, model.VoteUpdate]
	logger  *zap.Logger
}

// Outcome reports the transition applied by DoVote and the recounted totals of the target.
type Outcome struct {
	Previous  State           `json:"previous"`
	Current   State           `json:"current"`
	Vote      *model.VoteLoad `json:"vote"`
	Upvotes   int64           `json:"upvotes"`
	Downvotes int64           `json:"downvotes"`
}

// Totals are the recounted counters of one target.
type Totals struct {
	Upvotes   int64
	Downvotes int64
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperror.New(opServiceNew, "missing_database", apperror.ErrValidation, errMissingDatabase)
	}
	base, err := records.NewService(records.ServiceConfig[model.Vote, model.VoteCreate, model.VoteLoad, model.VoteUpdate]{
		Database: cfg.Database,
		Logger:   cfg.Logger,
		Shape: records.Shape[model.Vote, model.VoteCreate, model.VoteLoad, model.VoteUpdate]{
			Resource:    resourceVote,
			FromCreate:  model.NewVote,
			ToLoad:      model.Vote.Load,
			ApplyUpdate: (*model.Vote).Apply,
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

// FindVote returns the user's vote on the target, or nil when there is none.
func (s *Service) FindVote(ctx context.Context, find model.VoteFind) (*model.VoteLoad, error) {
	vote, err := findVote(s.db.WithContext(ctx), find)
	if err != nil {
		s.logVoteError(opFindVote, "select_failed", err, find)
		return nil, records.StoreError(opFindVote, "select_failed", err)
	}
	if vote == nil {
		return nil, nil
	}
	view := vote.Load()
	return &view, nil
}

// DoVote toggles the user's vote on the target and recounts the target's counters,
// all inside one transaction.
func (s *Service) DoVote(ctx context.Context, request model.VoteDoVote) (Outcome, error) {
	if err := validateTarget(opDoVote, request.TargetVote); err != nil {
		return Outcome{}, err
	}
	if !request.VoteType.Valid() {
		return Outcome{}, apperror.Validation(opDoVote, "invalid_vote_type", "vote_type must be upvote or downvote")
	}
	find := request.Find()

	var outcome Outcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireTarget(tx, opDoVote, request.TargetVote, request.TargetID); err != nil {
			return err
		}

		current, err := findVote(tx.Clauses(clause.Locking{Strength: "UPDATE"}), find)
		if err != nil {
			s.logVoteError(opDoVote, "select_failed", err, find)
			return records.StoreError(opDoVote, "select_failed", err)
		}

		transition := Next(StateOf(current), request.VoteType)
		settled, err := s.apply(tx, transition, current, request)
		if err != nil {
			return err
		}

		totals, err := s.Recount(tx, request.TargetVote, request.TargetID)
		if err != nil {
			return err
		}

		outcome = Outcome{
			Previous:  transition.From,
			Current:   transition.To,
			Upvotes:   totals.Upvotes,
			Downvotes: totals.Downvotes,
		}
		if settled != nil {
			view := settled.Load()
			outcome.Vote = &view
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	s.logger.Debug("vote applied",
		zap.Int64("user_id", request.UserID),
		zap.Int64("target_id", request.TargetID),
		zap.String("target_vote", string(request.TargetVote)),
		zap.String("previous", string(outcome.Previous)),
		zap.String("current", string(outcome.Current)))
	return outcome, nil
}

// apply performs the store mutation of the transition and returns the vote row left behind.
func (s *Service) apply(tx *gorm.DB, transition Transition, current *model.Vote, request model.VoteDoVote) (*model.Vote, error) {
	find := request.Find()
	switch transition.Action {
	case ActionInsert:
		vote := model.Vote{
			UserID:     request.UserID,
			TargetID:   request.TargetID,
			TargetVote: request.TargetVote,
			VoteType:   request.VoteType,
		}
		// A concurrent request from the same user may have inserted first; the unique index
		// turns that race into an update of the surviving row.
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_id"}, {Name: "target_vote"}},
			DoUpdates: clause.AssignmentColumns([]string{"vote_type", "updated_at"}),
		}).Create(&vote).Error
		if err != nil {
			s.logVoteError(opDoVote, "insert_failed", err, find)
			return nil, records.StoreError(opDoVote, "insert_failed", err)
		}
		stored, err := findVote(tx, find)
		if err != nil {
			s.logVoteError(opDoVote, "reload_failed", err, find)
			return nil, records.StoreError(opDoVote, "reload_failed", err)
		}
		return stored, nil
	case ActionDelete:
		if err := tx.Delete(current).Error; err != nil {
			s.logVoteError(opDoVote, "delete_failed", err, find)
			return nil, records.StoreError(opDoVote, "delete_failed", err)
		}
		return nil, nil
	case ActionFlip:
		current.VoteType = request.VoteType
		if err := tx.Save(current).Error; err != nil {
			s.logVoteError(opDoVote, "flip_failed", err, find)
			return nil, records.StoreError(opDoVote, "flip_failed", err)
		}
		return current, nil
	default:
		return nil, apperror.New(opDoVote, "unknown_transition", apperror.ErrStoreFailure, nil)
	}
}

// Recount recomputes both counters of the target from the votes table and writes them back.
func (s *Service) Recount(tx *gorm.DB, target model.TargetVote, targetID int64) (Totals, error) {
	fields := []zap.Field{zap.String("target_vote", string(target)), zap.Int64("target_id", targetID)}

	var totals Totals
	if err := countVotes(tx, target, targetID, model.VoteUp, &totals.Upvotes); err != nil {
		records.LogError(s.logger, opRecount, "count_upvotes_failed", err, fields...)
		return Totals{}, records.StoreError(opRecount, "count_upvotes_failed", err)
	}
	if err := countVotes(tx, target, targetID, model.VoteDown, &totals.Downvotes); err != nil {
		records.LogError(s.logger, opRecount, "count_downvotes_failed", err, fields...)
		return Totals{}, records.StoreError(opRecount, "count_downvotes_failed", err)
	}

	err := tx.Model(targetModel(target)).
		Where("id = ?", targetID).
		UpdateColumns(map[string]interface{}{"upvotes": totals.Upvotes, "downvotes": totals.Downvotes}).Error
	if err != nil {
		records.LogError(s.logger, opRecount, "write_failed", err, fields...)
		return Totals{}, records.StoreError(opRecount, "write_failed", err)
	}
	return totals, nil
}

// RecountAll recounts every question and answer and returns how many targets were visited.
func (s *Service) RecountAll(ctx context.Context) (int, error) {
	var visited int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, target := range []model.TargetVote{model.TargetQuestion, model.TargetAnswer} {
			var ids []int64
			if err := tx.Model(targetModel(target)).Order("id ASC").Pluck("id", &ids).Error; err != nil {
				records.LogError(s.logger, opRecountAll, "select_failed", err, zap.String("target_vote", string(target)))
				return records.StoreError(opRecountAll, "select_failed", err)
			}
			for _, id := range ids {
				if _, err := s.Recount(tx, target, id); err != nil {
					return err
				}
			}
			visited += len(ids)
		}
		return nil
	})
	return visited, err
}

// DeleteForTarget removes every vote on the target. Used when the target itself is deleted.
func (s *Service) DeleteForTarget(tx *gorm.DB, target model.TargetVote, targetID int64) error {
	err := tx.Where("target_id = ? AND target_vote = ?", targetID, target).Delete(&model.Vote{}).Error
	if err != nil {
		return records.StoreError("votes.delete_for_target", "delete_failed", err)
	}
	return nil
}

// Load returns the vote with the given id.
func (s *Service) Load(ctx context.Context, id int64) (model.VoteLoad, error) {
	return s.records.Load(ctx, id)
}

// Create stores a vote directly and recounts its target. A second vote by the same user on the
// same target is a conflict.
func (s *Service) Create(ctx context.Context, input model.VoteCreate) (model.VoteLoad, error) {
	if err := validateTarget(opCreate, input.TargetVote); err != nil {
		return model.VoteLoad{}, err
	}
	vote := model.NewVote(input)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireTarget(tx, opCreate, vote.TargetVote, vote.TargetID); err != nil {
			return err
		}
		if err := tx.Create(&vote).Error; err != nil {
			if records.IsDuplicate(err) {
				return apperror.Conflict(opCreate, resourceVote, "user has already voted on this target")
			}
			s.logVoteError(opCreate, "insert_failed", err, model.VoteFind{UserID: vote.UserID, TargetID: vote.TargetID, TargetVote: vote.TargetVote})
			return records.StoreError(opCreate, "insert_failed", err)
		}
		_, err := s.Recount(tx, vote.TargetVote, vote.TargetID)
		return err
	})
	if err != nil {
		return model.VoteLoad{}, err
	}
	return vote.Load(), nil
}

// Update patches a vote and recounts both the previous and the current target.
func (s *Service) Update(ctx context.Context, id int64, patch model.VoteUpdate) (model.VoteLoad, error) {
	var updated model.Vote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote, err := s.records.FindForUpdate(tx, id)
		if err != nil {
			records.LogError(s.logger, opUpdate, "select_failed", err, zap.Int64("id", id))
			return records.StoreError(opUpdate, "select_failed", err)
		}
		if vote == nil {
			return apperror.NotFound(opUpdate, resourceVote, id)
		}
		previousTarget, previousID := vote.TargetVote, vote.TargetID

		vote.Apply(patch)
		if err := validateTarget(opUpdate, vote.TargetVote); err != nil {
			return err
		}
		if !vote.VoteType.Valid() {
			return apperror.Validation(opUpdate, "invalid_vote_type", "vote_type must be upvote or downvote")
		}
		if err := s.requireTarget(tx, opUpdate, vote.TargetVote, vote.TargetID); err != nil {
			return err
		}
		if err := tx.Save(vote).Error; err != nil {
			if records.IsDuplicate(err) {
				return apperror.Conflict(opUpdate, resourceVote, "user has already voted on this target")
			}
			records.LogError(s.logger, opUpdate, "save_failed", err, zap.Int64("id", id))
			return records.StoreError(opUpdate, "save_failed", err)
		}

		if _, err := s.Recount(tx, previousTarget, previousID); err != nil {
			return err
		}
		if previousTarget != vote.TargetVote || previousID != vote.TargetID {
			if _, err := s.Recount(tx, vote.TargetVote, vote.TargetID); err != nil {
				return err
			}
		}
		updated = *vote
		return nil
	})
	if err != nil {
		return model.VoteLoad{}, err
	}
	return updated.Load(), nil
}

// Delete removes a vote and recounts its target.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote, err := s.records.FindForUpdate(tx, id)
		if err != nil {
			records.LogError(s.logger, opDelete, "select_failed", err, zap.Int64("id", id))
			return records.StoreError(opDelete, "select_failed", err)
		}
		if vote == nil {
			return apperror.NotFound(opDelete, resourceVote, id)
		}
		if err := tx.Delete(vote).Error; err != nil {
			records.LogError(s.logger, opDelete, "delete_failed", err, zap.Int64("id", id))
			return records.StoreError(opDelete, "delete_failed", err)
		}
		_, err = s.Recount(tx, vote.TargetVote, vote.TargetID)
		return err
	})
}

func (s *Service) requireTarget(tx *gorm.DB, operation string, target model.TargetVote, targetID int64) error {
	var count int64
	if err := tx.Model(targetModel(target)).Where("id = ?", targetID).Count(&count).Error; err != nil {
		records.LogError(s.logger, operation, "target_select_failed", err,
			zap.String("target_vote", string(target)), zap.Int64("target_id", targetID))
		return records.StoreError(operation, "target_select_failed", err)
	}
	if count == 0 {
		return apperror.NotFound(operation, string(target), targetID)
	}
	return nil
}

func (s *Service) logVoteError(operation, reason string, err error, find model.VoteFind) {
	records.LogError(s.logger, operation, reason, err,
		zap.Int64("user_id", find.UserID),
		zap.Int64("target_id", find.TargetID),
		zap.String("target_vote", string(find.TargetVote)))
}

func validateTarget(operation string, target model.TargetVote) error {
	if !target.Valid() {
		return apperror.Validation(operation, "invalid_target_vote", "target_vote must be question or answer")
	}
	return nil
}

func targetModel(target model.TargetVote) interface{} {
	if target == model.TargetAnswer {
		return &model.Answer{}
	}
	return &model.Question{}
}

func countVotes(tx *gorm.DB, target model.TargetVote, targetID int64, voteType model.VoteType, into *int64) error {
	return tx.Model(&model.Vote{}).
		Where("target_id = ? AND target_vote = ? AND vote_type = ?", targetID, target, voteType).
		Count(into).Error
}

func findVote(db *gorm.DB, find model.VoteFind) (*model.Vote, error) {
	var vote model.Vote
	err := db.Where("user_id = ? AND target_id = ? AND target_vote = ?", find.UserID, find.TargetID, find.TargetVote).
		Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}
