// Package interactions records user actions on questions, answers and tags.
package interactions

import (
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/records"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the record service over interactions.
type Service = records.Service[model.Interaction, model.InteractionCreate, model.InteractionLoad, model.InteractionUpdate]

// NewService constructs the interaction service.
func NewService(db *gorm.DB, logger *zap.Logger) (*Service, error) {
	return records.NewService(records.ServiceConfig[model.Interaction, model.InteractionCreate, model.InteractionLoad, model.InteractionUpdate]{
		Database: db,
		Logger:   logger,
		Shape: records.Shape[model.Interaction, model.InteractionCreate, model.InteractionLoad, model.InteractionUpdate]{
			Resource:    "interaction",
			FromCreate:  model.NewInteraction,
			ToLoad:      model.Interaction.Load,
			ApplyUpdate: (*model.Interaction).Apply,
		},
	})
}
