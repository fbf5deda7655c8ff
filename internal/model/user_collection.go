package model

import "time"

// UserCollection marks a question bookmarked by a user.
type UserCollection struct {
	UserID     int64     `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	QuestionID int64     `gorm:"column:question_id;primaryKey;autoIncrement:false;index:idx_user_collection_question"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (UserCollection) TableName() string {
	return "user_collection"
}

// UserCollectionLoad is the public view of a bookmark.
type UserCollectionLoad struct {
	UserID     int64     `json:"user_id"`
	QuestionID int64     `json:"question_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Load renders the public view.
func (c UserCollection) Load() UserCollectionLoad {
	return UserCollectionLoad{
		UserID:     c.UserID,
		QuestionID: c.QuestionID,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}
