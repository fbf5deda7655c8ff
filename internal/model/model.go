// Package model declares the persisted rows and their create, load and update shapes.
package model

// Tables lists every model managed by schema migration, in dependency order.
func Tables() []any {
	return []any{
		&User{},
		&Account{},
		&Tag{},
		&Question{},
		&QuestionTagRelationship{},
		&Answer{},
		&Vote{},
		&UserCollection{},
		&Interaction{},
	}
}
