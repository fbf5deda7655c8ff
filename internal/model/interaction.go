package model

import "time"

// ActionType classifies a recorded user interaction.
type ActionType string

const (
	ActionQuestion ActionType = "question"
	ActionAnswer   ActionType = "answer"
	ActionUpvote   ActionType = "upvote"
	ActionDownvote ActionType = "downvote"
	ActionTag      ActionType = "tag"
)

// Interaction records a user action on some content.
type Interaction struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      int64      `gorm:"column:user_id;not null;index:idx_interactions_user"`
	ContentType string     `gorm:"column:content_type;size:64;not null"`
	TargetID    int64      `gorm:"column:target_id;not null"`
	ActionType  ActionType `gorm:"column:action_type;size:16;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Interaction) TableName() string {
	return "interactions"
}

// InteractionCreate is the payload accepted when recording an interaction.
type InteractionCreate struct {
	UserID      int64      `json:"user_id" binding:"required"`
	ContentType string     `json:"content_type" binding:"required"`
	TargetID    int64      `json:"target_id" binding:"required"`
	ActionType  ActionType `json:"action_type" binding:"required,oneof=question answer upvote downvote tag"`
}

// InteractionLoad is the public view of an interaction.
type InteractionLoad struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	ContentType string     `json:"content_type"`
	TargetID    int64      `json:"target_id"`
	ActionType  ActionType `json:"action_type"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// InteractionUpdate is a partial update; nil fields are left untouched.
type InteractionUpdate struct {
	ContentType *string     `json:"content_type"`
	ActionType  *ActionType `json:"action_type" binding:"omitempty,oneof=question answer upvote downvote tag"`
}

// NewInteraction converts a creation payload into a row.
func NewInteraction(in InteractionCreate) Interaction {
	return Interaction{
		UserID:      in.UserID,
		ContentType: in.ContentType,
		TargetID:    in.TargetID,
		ActionType:  in.ActionType,
	}
}

// Load renders the public view.
func (i Interaction) Load() InteractionLoad {
	return InteractionLoad{
		ID:          i.ID,
		UserID:      i.UserID,
		ContentType: i.ContentType,
		TargetID:    i.TargetID,
		ActionType:  i.ActionType,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

// Apply copies every supplied field of the patch onto the row.
func (i *Interaction) Apply(patch InteractionUpdate) {
	if patch.ContentType != nil {
		i.ContentType = *patch.ContentType
	}
	if patch.ActionType != nil {
		i.ActionType = *patch.ActionType
	}
}
