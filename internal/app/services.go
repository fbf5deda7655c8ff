// Package app assembles the service graph shared by the HTTP server and the CLI commands.
package app

import (
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/answers"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/collections"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/interactions"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/questions"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/server"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/tags"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/users"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/votes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options tunes service construction.
type Options struct {
	// PasswordCost is the bcrypt cost for credential accounts; zero selects the default.
	PasswordCost int
}

// Services holds one instance of every domain service.
type Services struct {
	Users        *users.Service
	Accounts     *users.AccountService
	Questions    *questions.Service
	Answers      *answers.Service
	Tags         *tags.Service
	Votes        *votes.Service
	Collections  *collections.Service
	Interactions *interactions.Service
}

// NewServices builds every service over the shared database handle.
func NewServices(db *gorm.DB, logger *zap.Logger, options Options) (Services, error) {
	userService, err := users.NewService(users.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return Services{}, err
	}
	accountService, err := users.NewAccountService(users.AccountServiceConfig{
		Database:     db,
		Users:        userService,
		Logger:       logger,
		PasswordCost: options.PasswordCost,
	})
	if err != nil {
		return Services{}, err
	}
	tagService, err := tags.NewService(tags.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return Services{}, err
	}
	voteService, err := votes.NewService(votes.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return Services{}, err
	}
	collectionService, err := collections.NewService(collections.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return Services{}, err
	}
	questionService, err := questions.NewService(questions.ServiceConfig{
		Database:    db,
		Tags:        tagService,
		Votes:       voteService,
		Collections: collectionService,
		Logger:      logger,
	})
	if err != nil {
		return Services{}, err
	}
	answerService, err := answers.NewService(answers.ServiceConfig{Database: db, Votes: voteService, Logger: logger})
	if err != nil {
		return Services{}, err
	}
	interactionService, err := interactions.NewService(db, logger)
	if err != nil {
		return Services{}, err
	}

	return Services{
		Users:        userService,
		Accounts:     accountService,
		Questions:    questionService,
		Answers:      answerService,
		Tags:         tagService,
		Votes:        voteService,
		Collections:  collectionService,
		Interactions: interactionService,
	}, nil
}

// Dependencies converts the service set into router dependencies.
func (s Services) Dependencies(db *gorm.DB, tokens server.TokenManager, origins []string, logger *zap.Logger) server.Dependencies {
	return server.Dependencies{
		Database:       db,
		TokenManager:   tokens,
		Users:          s.Users,
		Accounts:       s.Accounts,
		Questions:      s.Questions,
		Answers:        s.Answers,
		Tags:           s.Tags,
		Votes:          s.Votes,
		Collections:    s.Collections,
		Interactions:   s.Interactions,
		AllowedOrigins: origins,
		Logger:         logger,
	}
}
