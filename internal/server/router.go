// Package server exposes the DevFlow services over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/answers"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/collections"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/interactions"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/questions"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/tags"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/users"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/votes"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const apiPrefix = "/api/v1"

var (
	errMissingDatabase     = errors.New("database dependency required")
	errMissingTokenManager = errors.New("token manager dependency required")
	errMissingService      = errors.New("service dependencies required")
)

// TokenManager issues the access tokens returned by sign-in endpoints.
type TokenManager interface {
	IssueToken(ctx context.Context, userID int64) (auth.AccessToken, error)
}

// Dependencies carries everything the router needs. Nothing is constructed here.
type Dependencies struct {
	Database       *gorm.DB
	TokenManager   TokenManager
	Users          *users.Service
	Accounts       *users.AccountService
	Questions      *questions.Service
	Answers        *answers.Service
	Tags           *tags.Service
	Votes          *votes.Service
	Collections    *collections.Service
	Interactions   *interactions.Service
	AllowedOrigins []string
	Logger         *zap.Logger
}

func (d Dependencies) validate() error {
	if d.Database == nil {
		return errMissingDatabase
	}
	if d.TokenManager == nil {
		return errMissingTokenManager
	}
	if d.Users == nil || d.Accounts == nil || d.Questions == nil || d.Answers == nil ||
		d.Tags == nil || d.Votes == nil || d.Collections == nil || d.Interactions == nil {
		return errMissingService
	}
	return nil
}

// NewHTTPHandler wires middleware and every API route.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		db:           deps.Database,
		tokens:       deps.TokenManager,
		users:        deps.Users,
		accounts:     deps.Accounts,
		questions:    deps.Questions,
		answers:      deps.Answers,
		tags:         deps.Tags,
		votes:        deps.Votes,
		collections:  deps.Collections,
		interactions: deps.Interactions,
		logger:       logger,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group(apiPrefix)
	handler.registerUserRoutes(api.Group("/user"))
	handler.registerAccountRoutes(api.Group("/account"))
	handler.registerQuestionRoutes(api.Group("/question"))
	handler.registerAnswerRoutes(api.Group("/answer"))
	handler.registerTagRoutes(api.Group("/tag"))
	handler.registerVoteRoutes(api.Group("/vote"))
	handler.registerCollectionRoutes(api.Group("/user_collection"))
	handler.registerInteractionRoutes(api.Group("/interaction"))

	return router, nil
}

type httpHandler struct {
	db           *gorm.DB
	tokens       TokenManager
	users        *users.Service
	accounts     *users.AccountService
	questions    *questions.Service
	answers      *answers.Service
	tags         *tags.Service
	votes        *votes.Service
	collections  *collections.Service
	interactions *interactions.Service
	logger       *zap.Logger
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	return cors.New(config)
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
