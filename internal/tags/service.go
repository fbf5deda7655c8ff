// Package tags maintains tags by canonical name and keeps their question counts derived from
// the question_tag_relationship table.
package tags

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/apperror"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/records"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const resourceTag = "tag"

const (
	opServiceNew = "tags.service.new"
	opUpsert     = "tags.upsert_by_name"
	opAttach     = "tags.attach_to_question"
	opRecount    = "tags.recount"
	opRecountAll = "tags.recount_all"
	opLoadByName = "tags.load_by_name"
	opUpdate     = "tags.update"
	opDelete     = "tags.delete"
	opList       = "tags.list"
	opQuestions  = "tags.questions"
)

var errMissingDatabase = errors.New("database handle is required")

// ServiceConfig configures the tag service.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service upserts tags by canonical name and recounts their questions.
type Service struct {
	db      *gorm.DB
	records *records.Service[model.Tag, model.TagCreate, model.TagLoad, model.TagUpdate]
	logger  *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperror.New(opServiceNew, "missing_database", apperror.ErrValidation, errMissingDatabase)
	}
	base, err := records.NewService(records.ServiceConfig[model.Tag, model.TagCreate, model.TagLoad, model.TagUpdate]{
		Database: cfg.Database,
		Logger:   cfg.Logger,
		Shape: records.Shape[model.Tag, model.TagCreate, model.TagLoad, model.TagUpdate]{
			Resource:    resourceTag,
			FromCreate:  model.NewTag,
			ToLoad:      model.Tag.Load,
			ApplyUpdate: (*model.Tag).Apply,
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

// CanonicalName lowercases and trims a tag name.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CanonicalNames canonicalizes names, dropping empties and duplicates while keeping first-seen order.
func CanonicalNames(names []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	ordered := make([]string, 0, len(names))
	for _, name := range names {
		canonical := CanonicalName(name)
		if canonical == "" || !seen.Add(canonical) {
			continue
		}
		ordered = append(ordered, canonical)
	}
	return ordered
}

// Create upserts by name; creating an existing tag returns it unchanged.
func (s *Service) Create(ctx context.Context, input model.TagCreate) (model.TagLoad, error) {
	return s.UpsertByName(ctx, input.Name)
}

// UpsertByName returns the tag with the canonical form of name, creating it when absent.
func (s *Service) UpsertByName(ctx context.Context, name string) (model.TagLoad, error) {
	var tag model.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var upsertErr error
		tag, upsertErr = s.upsert(tx, CanonicalName(name))
		return upsertErr
	})
	if err != nil {
		return model.TagLoad{}, err
	}
	return tag.Load(), nil
}

func (s *Service) upsert(tx *gorm.DB, canonical string) (model.Tag, error) {
	if canonical == "" {
		return model.Tag{}, apperror.Validation(opUpsert, "empty_name", "tag name is required")
	}
	existing, err := findByName(tx, canonical)
	if err != nil {
		records.LogError(s.logger, opUpsert, "select_failed", err, zap.String("name", canonical))
		return model.Tag{}, records.StoreError(opUpsert, "select_failed", err)
	}
	if existing != nil {
		return *existing, nil
	}

	// A concurrent writer may insert the same name between the lookup and the insert.
	candidate := model.Tag{Name: canonical}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&candidate).Error; err != nil {
		records.LogError(s.logger, opUpsert, "insert_failed", err, zap.String("name", canonical))
		return model.Tag{}, records.StoreError(opUpsert, "insert_failed", err)
	}

	stored, err := findByName(tx, canonical)
	if err != nil {
		records.LogError(s.logger, opUpsert, "reload_failed", err, zap.String("name", canonical))
		return model.Tag{}, records.StoreError(opUpsert, "reload_failed", err)
	}
	if stored == nil {
		return model.Tag{}, apperror.New(opUpsert, "vanished", apperror.ErrStoreFailure, nil)
	}
	return *stored, nil
}

// AttachTagsToQuestion replaces the question's tag set with names and returns the sorted union of
// the previous and the new canonical names. Callers pass that union to RecountTags.
func (s *Service) AttachTagsToQuestion(tx *gorm.DB, questionID int64, names []string) ([]string, error) {
	requested := CanonicalNames(names)

	previous, err := questionTagNames(tx, questionID)
	if err != nil {
		records.LogError(s.logger, opAttach, "previous_select_failed", err, zap.Int64("question_id", questionID))
		return nil, records.StoreError(opAttach, "previous_select_failed", err)
	}

	relationships := make([]model.QuestionTagRelationship, 0, len(requested))
	for _, name := range requested {
		tag, err := s.upsert(tx, name)
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, model.QuestionTagRelationship{QuestionID: questionID, TagID: tag.ID})
	}

	if err := tx.Where("question_id = ?", questionID).Delete(&model.QuestionTagRelationship{}).Error; err != nil {
		records.LogError(s.logger, opAttach, "detach_failed", err, zap.Int64("question_id", questionID))
		return nil, records.StoreError(opAttach, "detach_failed", err)
	}
	if len(relationships) > 0 {
		if err := tx.Create(&relationships).Error; err != nil {
			records.LogError(s.logger, opAttach, "attach_failed", err, zap.Int64("question_id", questionID))
			return nil, records.StoreError(opAttach, "attach_failed", err)
		}
	}

	affected := mapset.NewThreadUnsafeSet[string](previous...)
	affected.Append(requested...)
	union := affected.ToSlice()
	sort.Strings(union)
	return union, nil
}

// DetachQuestion removes every relationship of the question and returns the names it carried.
func (s *Service) DetachQuestion(tx *gorm.DB, questionID int64) ([]string, error) {
	return s.AttachTagsToQuestion(tx, questionID, nil)
}

// RecountTags sets num_questions of each named tag to its relationship count. Unknown names are skipped.
func (s *Service) RecountTags(tx *gorm.DB, names []string) error {
	for _, name := range CanonicalNames(names) {
		tag, err := findByName(tx, name)
		if err != nil {
			records.LogError(s.logger, opRecount, "select_failed", err, zap.String("name", name))
			return records.StoreError(opRecount, "select_failed", err)
		}
		if tag == nil {
			continue
		}
		if err := s.recountTag(tx, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) recountTag(tx *gorm.DB, tagID int64) error {
	var count int64
	if err := tx.Model(&model.QuestionTagRelationship{}).Where("tag_id = ?", tagID).Count(&count).Error; err != nil {
		records.LogError(s.logger, opRecount, "count_failed", err, zap.Int64("tag_id", tagID))
		return records.StoreError(opRecount, "count_failed", err)
	}
	if err := tx.Model(&model.Tag{}).Where("id = ?", tagID).UpdateColumn("num_questions", count).Error; err != nil {
		records.LogError(s.logger, opRecount, "write_failed", err, zap.Int64("tag_id", tagID))
		return records.StoreError(opRecount, "write_failed", err)
	}
	return nil
}

// RecountAll recounts every tag and returns how many were visited.
func (s *Service) RecountAll(ctx context.Context) (int, error) {
	var visited int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []int64
		if err := tx.Model(&model.Tag{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
			records.LogError(s.logger, opRecountAll, "select_failed", err)
			return records.StoreError(opRecountAll, "select_failed", err)
		}
		for _, id := range ids {
			if err := s.recountTag(tx, id); err != nil {
				return err
			}
		}
		visited = len(ids)
		return nil
	})
	return visited, err
}

// Load returns the tag with the given id.
func (s *Service) Load(ctx context.Context, id int64) (model.TagLoad, error) {
	return s.records.Load(ctx, id)
}

// LoadByName returns the tag whose canonical name matches name.
func (s *Service) LoadByName(ctx context.Context, name string) (model.TagLoad, error) {
	canonical := CanonicalName(name)
	tag, err := findByName(s.db.WithContext(ctx), canonical)
	if err != nil {
		records.LogError(s.logger, opLoadByName, "select_failed", err, zap.String("name", canonical))
		return model.TagLoad{}, records.StoreError(opLoadByName, "select_failed", err)
	}
	if tag == nil {
		return model.TagLoad{}, apperror.NotFound(opLoadByName, resourceTag, canonical)
	}
	return tag.Load(), nil
}

// Update renames a tag, keeping the name canonical. Renaming onto an existing name is a conflict.
func (s *Service) Update(ctx context.Context, id int64, patch model.TagUpdate) (model.TagLoad, error) {
	if patch.Name != nil {
		canonical := CanonicalName(*patch.Name)
		if canonical == "" {
			return model.TagLoad{}, apperror.Validation(opUpdate, "empty_name", "tag name is required")
		}
		patch.Name = &canonical
	}
	return s.records.Update(ctx, id, patch)
}

// Delete removes a tag together with its question relationships.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tag, err := s.records.FindForUpdate(tx, id)
		if err != nil {
			records.LogError(s.logger, opDelete, "select_failed", err, zap.Int64("id", id))
			return records.StoreError(opDelete, "select_failed", err)
		}
		if tag == nil {
			return apperror.NotFound(opDelete, resourceTag, id)
		}
		if err := tx.Where("tag_id = ?", id).Delete(&model.QuestionTagRelationship{}).Error; err != nil {
			records.LogError(s.logger, opDelete, "detach_failed", err, zap.Int64("id", id))
			return records.StoreError(opDelete, "detach_failed", err)
		}
		if err := tx.Delete(tag).Error; err != nil {
			records.LogError(s.logger, opDelete, "delete_failed", err, zap.Int64("id", id))
			return records.StoreError(opDelete, "delete_failed", err)
		}
		return nil
	})
}

// List pages through tags. Filters: popular (default), recent, oldest, name.
// A non-empty query matches the canonical name exactly.
func (s *Service) List(ctx context.Context, query records.ListQuery) ([]model.TagLoad, error) {
	query = query.Normalize()
	stmt := s.db.WithContext(ctx).Model(&model.Tag{})
	if query.Query != "" {
		stmt = stmt.Where("name = ?", CanonicalName(query.Query))
	}
	switch query.Filter {
	case "recent":
		stmt = stmt.Order("created_at DESC").Order("id DESC")
	case "oldest":
		stmt = stmt.Order("created_at ASC").Order("id ASC")
	case "name":
		stmt = stmt.Order("name ASC")
	default:
		stmt = stmt.Order("num_questions DESC").Order("name ASC")
	}

	var tags []model.Tag
	if err := stmt.Offset(query.Offset()).Limit(query.PageSize).Find(&tags).Error; err != nil {
		records.LogError(s.logger, opList, "query_failed", err)
		return nil, records.StoreError(opList, "query_failed", err)
	}
	views := make([]model.TagLoad, 0, len(tags))
	for _, tag := range tags {
		views = append(views, tag.Load())
	}
	return views, nil
}

// Questions pages through the questions carrying the tag, most upvoted first.
func (s *Service) Questions(ctx context.Context, tagID int64, query records.ListQuery) ([]model.QuestionLoad, error) {
	query = query.Normalize()
	db := s.db.WithContext(ctx)

	tag, err := s.records.Find(db, tagID)
	if err != nil {
		records.LogError(s.logger, opQuestions, "select_failed", err, zap.Int64("tag_id", tagID))
		return nil, records.StoreError(opQuestions, "select_failed", err)
	}
	if tag == nil {
		return nil, apperror.NotFound(opQuestions, resourceTag, tagID)
	}

	stmt := model.PreloadQuestion(db).
		Joins("JOIN question_tag_relationship ON question_tag_relationship.question_id = questions.id").
		Where("question_tag_relationship.tag_id = ?", tagID)
	if query.Query != "" {
		pattern := query.LikePattern()
		stmt = stmt.Where("(LOWER(questions.title) LIKE ? OR LOWER(questions.content) LIKE ?)", pattern, pattern)
	}

	var questions []model.Question
	if err := stmt.
		Order("questions.upvotes DESC").
		Order("questions.id ASC").
		Offset(query.Offset()).
		Limit(query.PageSize).
		Find(&questions).Error; err != nil {
		records.LogError(s.logger, opQuestions, "query_failed", err, zap.Int64("tag_id", tagID))
		return nil, records.StoreError(opQuestions, "query_failed", err)
	}
	return model.QuestionViews(questions), nil
}

func findByName(db *gorm.DB, canonical string) (*model.Tag, error) {
	var tag model.Tag
	err := db.Where("name = ?", canonical).Take(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func questionTagNames(tx *gorm.DB, questionID int64) ([]string, error) {
	var names []string
	err := tx.Model(&model.Tag{}).
		Joins("JOIN question_tag_relationship ON question_tag_relationship.tag_id = tags.id").
		Where("question_tag_relationship.question_id = ?", questionID).
		Order("tags.name ASC").
		Pluck("tags.name", &names).Error
	return names, err
}
