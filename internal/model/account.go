package model

import "time"

// ProviderCredentials names accounts created by email/password sign-up.
const ProviderCredentials = "credentials"

// Account links a user to a login provider.
type Account struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID            *int64    `gorm:"column:user_id;index"`
	Username          string    `gorm:"column:username;size:190;not null;uniqueIndex:idx_accounts_provider_username,priority:2"`
	Image             *string   `gorm:"column:image;size:512"`
	Provider          string    `gorm:"column:provider;size:32;not null"`
	ProviderAccountID string    `gorm:"column:provider_account_id;size:190;not null;uniqueIndex:idx_accounts_provider_username,priority:1"`
	Password          *string   `gorm:"column:password;size:190"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Account) TableName() string {
	return "accounts"
}

// AccountCreate is the payload accepted when creating an account.
type AccountCreate struct {
	UserID            *int64  `json:"user_id"`
	Username          string  `json:"username" binding:"required"`
	Image             *string `json:"image"`
	Provider          string  `json:"provider" binding:"required"`
	ProviderAccountID string  `json:"provider_account_id" binding:"required"`
	Password          *string `json:"password"`
}

// AccountLoad is the public view of an account. The password hash is never rendered.
type AccountLoad struct {
	ID                int64     `json:"id"`
	UserID            *int64    `json:"user_id"`
	Username          string    `json:"username"`
	Image             *string   `json:"image"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"provider_account_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AccountUpdate is a partial update; nil fields are left untouched.
type AccountUpdate struct {
	Image    *string `json:"image"`
	Password *string `json:"password"`
}

// AccountSignInWithOAuth is the payload of an OAuth provider sign-in.
type AccountSignInWithOAuth struct {
	Provider          string     `json:"provider" binding:"required"`
	ProviderAccountID string     `json:"provider_account_id" binding:"required"`
	User              UserCreate `json:"user" binding:"required"`
}

// AccountSignUpWithCredentials is the payload of an email/password sign-up.
type AccountSignUpWithCredentials struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AccountSignInWithCredentials is the payload of an email/password sign-in.
type AccountSignInWithCredentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// NewAccount converts a creation payload into a row.
func NewAccount(in AccountCreate) Account {
	return Account{
		UserID:            in.UserID,
		Username:          in.Username,
		Image:             in.Image,
		Provider:          in.Provider,
		ProviderAccountID: in.ProviderAccountID,
		Password:          in.Password,
	}
}

// Load renders the public view.
func (a Account) Load() AccountLoad {
	return AccountLoad{
		ID:                a.ID,
		UserID:            a.UserID,
		Username:          a.Username,
		Image:             a.Image,
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// Apply copies every supplied field of the patch onto the row.
func (a *Account) Apply(patch AccountUpdate) {
	if patch.Image != nil {
		a.Image = patch.Image
	}
	if patch.Password != nil {
		a.Password = patch.Password
	}
}
