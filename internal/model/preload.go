package model

import "gorm.io/gorm"

// PreloadQuestion eager-loads the associations rendered by QuestionLoad.
func PreloadQuestion(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("tags.name ASC") }).
		Preload("Author").
		Preload("Answers", func(tx *gorm.DB) *gorm.DB { return tx.Order("answers.id ASC") })
}

// QuestionViews renders a slice of questions.
func QuestionViews(questions []Question) []QuestionLoad {
	views := make([]QuestionLoad, 0, len(questions))
	for _, question := range questions {
		views = append(views, question.Load())
	}
	return views
}
