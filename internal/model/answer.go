package model

import "time"

// Answer is the persisted answer row. Upvotes and Downvotes are derived from the votes table.
type Answer struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Content    string    `gorm:"column:content;type:text;not null"`
	UserID     int64     `gorm:"column:user_id;not null;index:idx_answers_user"`
	QuestionID int64     `gorm:"column:question_id;not null;index:idx_answers_question"`
	Upvotes    int64     `gorm:"column:upvotes;not null;default:0"`
	Downvotes  int64     `gorm:"column:downvotes;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID"`
}

// TableName provides the explicit table binding for GORM.
func (Answer) TableName() string {
	return "answers"
}

// AnswerCreate is the payload accepted when creating an answer.
type AnswerCreate struct {
	Content    string `json:"content" binding:"required"`
	UserID     int64  `json:"user_id" binding:"required"`
	QuestionID int64  `json:"question_id" binding:"required"`
}

// AnswerLoad is the public view of an answer.
type AnswerLoad struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	UserID     int64     `json:"user_id"`
	QuestionID int64     `json:"question_id"`
	Upvotes    int64     `json:"upvotes"`
	Downvotes  int64     `json:"downvotes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	User       *UserLoad `json:"user,omitempty"`
}

// AnswerUpdate edits the answer body.
type AnswerUpdate struct {
	Content *string `json:"content"`
}

// NewAnswer converts a creation payload into a row.
func NewAnswer(in AnswerCreate) Answer {
	return Answer{
		Content:    in.Content,
		UserID:     in.UserID,
		QuestionID: in.QuestionID,
	}
}

// Load renders the public view, including the author when preloaded.
func (a Answer) Load() AnswerLoad {
	view := AnswerLoad{
		ID:         a.ID,
		Content:    a.Content,
		UserID:     a.UserID,
		QuestionID: a.QuestionID,
		Upvotes:    a.Upvotes,
		Downvotes:  a.Downvotes,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
	if a.User != nil {
		user := a.User.Load()
		view.User = &user
	}
	return view
}

// Apply copies every supplied field of the patch onto the row.
func (a *Answer) Apply(patch AnswerUpdate) {
	if patch.Content != nil {
		a.Content = *patch.Content
	}
}
