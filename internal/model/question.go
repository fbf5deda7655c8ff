package model

import "time"

// Question is the persisted question row. Upvotes and Downvotes are derived from the votes table.
type Question struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Title     string    `gorm:"column:title;size:300;not null"`
	Content   string    `gorm:"column:content;type:text;not null"`
	Views     int64     `gorm:"column:views;not null;default:0"`
	Upvotes   int64     `gorm:"column:upvotes;not null;default:0"`
	Downvotes int64     `gorm:"column:downvotes;not null;default:0"`
	AuthorID  int64     `gorm:"column:author_id;not null;index:idx_questions_author"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Author  *User    `gorm:"foreignKey:AuthorID"`
	Tags    []Tag    `gorm:"many2many:question_tag_relationship;joinForeignKey:QuestionID;joinReferences:TagID"`
	Answers []Answer `gorm:"foreignKey:QuestionID"`
}

// TableName provides the explicit table binding for GORM.
func (Question) TableName() string {
	return "questions"
}

// QuestionCreate is the payload accepted when creating a question.
type QuestionCreate struct {
	Title    string   `json:"title" binding:"required"`
	Content  string   `json:"content" binding:"required"`
	Tags     []string `json:"tags"`
	AuthorID int64    `json:"author_id" binding:"required"`
}

// QuestionLoad is the public view of a question.
type QuestionLoad struct {
	ID        int64        `json:"id"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	Views     int64        `json:"views"`
	Upvotes   int64        `json:"upvotes"`
	Downvotes int64        `json:"downvotes"`
	AuthorID  int64        `json:"author_id"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Tags      []TagLoad    `json:"tags"`
	Author    *UserLoad    `json:"author"`
	Answers   []AnswerLoad `json:"answers"`
}

// QuestionUpdate is a partial update. A non-nil Tags replaces the whole tag set.
type QuestionUpdate struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Tags     *[]string `json:"tags"`
	AuthorID *int64    `json:"author_id"`
	Views    *int64    `json:"views"`
}

// NewQuestion converts a creation payload into a row. Tags are attached separately.
func NewQuestion(in QuestionCreate) Question {
	return Question{
		Title:    in.Title,
		Content:  in.Content,
		AuthorID: in.AuthorID,
	}
}

// Load renders the public view including whichever associations were preloaded.
func (q Question) Load() QuestionLoad {
	view := QuestionLoad{
		ID:        q.ID,
		Title:     q.Title,
		Content:   q.Content,
		Views:     q.Views,
		Upvotes:   q.Upvotes,
		Downvotes: q.Downvotes,
		AuthorID:  q.AuthorID,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
		Tags:      make([]TagLoad, 0, len(q.Tags)),
		Answers:   make([]AnswerLoad, 0, len(q.Answers)),
	}
	for _, tag := range q.Tags {
		view.Tags = append(view.Tags, tag.Load())
	}
	for _, answer := range q.Answers {
		view.Answers = append(view.Answers, answer.Load())
	}
	if q.Author != nil {
		author := q.Author.Load()
		view.Author = &author
	}
	return view
}

// Apply copies the scalar fields of the patch onto the row. Tags are handled by the tag engine.
func (q *Question) Apply(patch QuestionUpdate) {
	if patch.Title != nil {
		q.Title = *patch.Title
	}
	if patch.Content != nil {
		q.Content = *patch.Content
	}
	if patch.AuthorID != nil {
		q.AuthorID = *patch.AuthorID
	}
	if patch.Views != nil {
		q.Views = *patch.Views
	}
}
