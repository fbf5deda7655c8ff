package model

import "time"

// TargetVote selects the kind of entity a vote applies to.
type TargetVote string

// VoteType is the direction of a vote.
type VoteType string

const (
	TargetQuestion TargetVote = "question"
	TargetAnswer   TargetVote = "answer"

	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// Valid reports whether the value is one of the known targets.
func (t TargetVote) Valid() bool {
	return t == TargetQuestion || t == TargetAnswer
}

// Valid reports whether the value is one of the known vote directions.
func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// Opposite returns the other vote direction.
func (v VoteType) Opposite() VoteType {
	if v == VoteUp {
		return VoteDown
	}
	return VoteUp
}

// Vote is the persisted vote row. At most one row exists per (user, target, target kind).
type Vote struct {
	ID         int64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     int64      `gorm:"column:user_id;not null;uniqueIndex:idx_votes_user_target,priority:1"`
	TargetID   int64      `gorm:"column:target_id;not null;uniqueIndex:idx_votes_user_target,priority:2;index:idx_votes_target,priority:1"`
	TargetVote TargetVote `gorm:"column:target_vote;size:16;not null;uniqueIndex:idx_votes_user_target,priority:3;index:idx_votes_target,priority:2"`
	VoteType   VoteType   `gorm:"column:vote_type;size:16;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Vote) TableName() string {
	return "votes"
}

// VoteCreate is the payload accepted when creating a vote directly.
type VoteCreate struct {
	UserID     int64      `json:"user_id" binding:"required"`
	TargetID   int64      `json:"target_id" binding:"required"`
	TargetVote TargetVote `json:"target_vote" binding:"required,oneof=question answer"`
	VoteType   VoteType   `json:"vote_type" binding:"required,oneof=upvote downvote"`
}

// VoteLoad is the public view of a vote.
type VoteLoad struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	TargetID   int64      `json:"target_id"`
	TargetVote TargetVote `json:"target_vote"`
	VoteType   VoteType   `json:"vote_type"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// VoteUpdate is a partial update; nil fields are left untouched.
type VoteUpdate struct {
	UserID     *int64      `json:"user_id"`
	TargetID   *int64      `json:"target_id"`
	TargetVote *TargetVote `json:"target_vote" binding:"omitempty,oneof=question answer"`
	VoteType   *VoteType   `json:"vote_type" binding:"omitempty,oneof=upvote downvote"`
}

// VoteFind identifies the vote of one user on one target.
type VoteFind struct {
	UserID     int64      `json:"user_id" binding:"required"`
	TargetID   int64      `json:"target_id" binding:"required"`
	TargetVote TargetVote `json:"target_vote" binding:"required,oneof=question answer"`
}

// VoteDoVote requests a toggle of the user's vote on a target.
type VoteDoVote struct {
	UserID     int64      `json:"user_id" binding:"required"`
	TargetID   int64      `json:"target_id" binding:"required"`
	TargetVote TargetVote `json:"target_vote" binding:"required,oneof=question answer"`
	VoteType   VoteType   `json:"vote_type" binding:"required,oneof=upvote downvote"`
}

// Find returns the lookup key of the request.
func (d VoteDoVote) Find() VoteFind {
	return VoteFind{UserID: d.UserID, TargetID: d.TargetID, TargetVote: d.TargetVote}
}

// NewVote converts a creation payload into a row.
func NewVote(in VoteCreate) Vote {
	return Vote{
		UserID:     in.UserID,
		TargetID:   in.TargetID,
		TargetVote: in.TargetVote,
		VoteType:   in.VoteType,
	}
}

// Load renders the public view.
func (v Vote) Load() VoteLoad {
	return VoteLoad{
		ID:         v.ID,
		UserID:     v.UserID,
		TargetID:   v.TargetID,
		TargetVote: v.TargetVote,
		VoteType:   v.VoteType,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

// Apply copies every supplied field of the patch onto the row.
func (v *Vote) Apply(patch VoteUpdate) {
	if patch.UserID != nil {
		v.UserID = *patch.UserID
	}
	if patch.TargetID != nil {
		v.TargetID = *patch.TargetID
	}
	if patch.TargetVote != nil {
		v.TargetVote = *patch.TargetVote
	}
	if patch.VoteType != nil {
		v.VoteType = *patch.VoteType
	}
}
