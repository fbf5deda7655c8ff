package model

import "time"

// Tag is the persisted tag row. Name always holds the canonical form.
type Tag struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string    `gorm:"column:name;size:190;not null;uniqueIndex:idx_tags_name"`
	NumQuestions int64     `gorm:"column:num_questions;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Tag) TableName() string {
	return "tags"
}

// TagCreate is the payload accepted when creating a tag.
type TagCreate struct {
	Name string `json:"name" binding:"required"`
}

// TagLoad is the public view of a tag.
type TagLoad struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	NumQuestions int64     `json:"num_questions"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TagUpdate renames a tag.
type TagUpdate struct {
	Name *string `json:"name"`
}

// NewTag converts a creation payload into a row.
func NewTag(in TagCreate) Tag {
	return Tag{Name: in.Name}
}

// Load renders the public view.
func (t Tag) Load() TagLoad {
	return TagLoad{
		ID:           t.ID,
		Name:         t.Name,
		NumQuestions: t.NumQuestions,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// Apply copies every supplied field of the patch onto the row.
func (t *Tag) Apply(patch TagUpdate) {
	if patch.Name != nil {
		t.Name = *patch.Name
	}
}

// QuestionTagRelationship associates a question with a tag.
type QuestionTagRelationship struct {
	QuestionID int64 `gorm:"column:question_id;primaryKey;autoIncrement:false"`
	TagID      int64 `gorm:"column:tag_id;primaryKey;autoIncrement:false;index:idx_question_tag_relationship_tag"`
}

// TableName provides the explicit table binding for GORM.
func (QuestionTagRelationship) TableName() string {
	return "question_tag_relationship"
}
