package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationRecountDenormalizedCounters = "2026-10-01_recount_denormalized_counters"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationRecountDenormalizedCounters, apply: recountDenormalizedCounters},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Imported data may carry counters that disagree with the vote and relationship tables.
func recountDenormalizedCounters(db *gorm.DB) error {
	statements := []string{
		`UPDATE questions SET
			upvotes = (SELECT COUNT(*) FROM votes WHERE votes.target_id = questions.id AND votes.target_vote = 'question' AND votes.vote_type = 'upvote'),
			downvotes = (SELECT COUNT(*) FROM votes WHERE votes.target_id = questions.id AND votes.target_vote = 'question' AND votes.vote_type = 'downvote')`,
		`UPDATE answers SET
			upvotes = (SELECT COUNT(*) FROM votes WHERE votes.target_id = answers.id AND votes.target_vote = 'answer' AND votes.vote_type = 'upvote'),
			downvotes = (SELECT COUNT(*) FROM votes WHERE votes.target_id = answers.id AND votes.target_vote = 'answer' AND votes.vote_type = 'downvote')`,
		`UPDATE tags SET
			num_questions = (SELECT COUNT(*) FROM question_tag_relationship WHERE question_tag_relationship.tag_id = tags.id)`,
	}
	for _, statement := range statements {
		if err := db.Exec(statement).Error; err != nil {
			return err
		}
	}
	return nil
}
