package model

import "time"

// User is the persisted user row.
type User struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `gorm:"column:name;size:190;not null"`
	Username   string    `gorm:"column:username;size:190;not null;uniqueIndex:idx_users_username"`
	Email      string    `gorm:"column:email;size:320;not null;uniqueIndex:idx_users_email"`
	Bio        *string   `gorm:"column:bio;type:text"`
	Image      string    `gorm:"column:image;size:512;not null;default:''"`
	Location   *string   `gorm:"column:location;size:190"`
	Portfolio  *string   `gorm:"column:portfolio;size:512"`
	Reputation float64   `gorm:"column:reputation;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

// UserCreate is the payload accepted when creating a user.
type UserCreate struct {
	Name       string  `json:"name" binding:"required"`
	Username   string  `json:"username" binding:"required"`
	Email      string  `json:"email" binding:"required"`
	Bio        *string `json:"bio"`
	Image      string  `json:"image"`
	Location   *string `json:"location"`
	Portfolio  *string `json:"portfolio"`
	Reputation float64 `json:"reputation"`
}

// UserLoad is the public view of a user.
type UserLoad struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Bio        *string   `json:"bio"`
	Image      string    `json:"image"`
	Location   *string   `json:"location"`
	Portfolio  *string   `json:"portfolio"`
	Reputation float64   `json:"reputation"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	Name       *string  `json:"name"`
	Username   *string  `json:"username"`
	Email      *string  `json:"email"`
	Bio        *string  `json:"bio"`
	Image      *string  `json:"image"`
	Location   *string  `json:"location"`
	Portfolio  *string  `json:"portfolio"`
	Reputation *float64 `json:"reputation"`
}

// NewUser converts a creation payload into a row.
func NewUser(in UserCreate) User {
	return User{
		Name:       in.Name,
		Username:   in.Username,
		Email:      in.Email,
		Bio:        in.Bio,
		Image:      in.Image,
		Location:   in.Location,
		Portfolio:  in.Portfolio,
		Reputation: in.Reputation,
	}
}

// Load renders the public view.
func (u User) Load() UserLoad {
	return UserLoad{
		ID:         u.ID,
		Name:       u.Name,
		Username:   u.Username,
		Email:      u.Email,
		Bio:        u.Bio,
		Image:      u.Image,
		Location:   u.Location,
		Portfolio:  u.Portfolio,
		Reputation: u.Reputation,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// Apply copies every supplied field of the patch onto the row.
func (u *User) Apply(patch UserUpdate) {
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Bio != nil {
		u.Bio = patch.Bio
	}
	if patch.Image != nil {
		u.Image = *patch.Image
	}
	if patch.Location != nil {
		u.Location = patch.Location
	}
	if patch.Portfolio != nil {
		u.Portfolio = patch.Portfolio
	}
	if patch.Reputation != nil {
		u.Reputation = *patch.Reputation
	}
}
