package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/records"
	"github.com/gin-gonic/gin"
)

type savedQuestionsQuery struct {
	UserID int64 `form:"user_id" binding:"required"`
	records.ListQuery
}

type toggleResponsePayload struct {
	Saved   bool   `json:"saved"`
	Message string `json:"message"`
}

func (h *httpHandler) registerVoteRoutes(group *gin.RouterGroup) {
	group.GET("/load/:id", h.handleVoteLoad)
	group.POST("/create", h.handleVoteCreate)
	group.PUT("/update/:id", h.handleVoteUpdate)
	group.DELETE("/delete/:id", h.handleVoteDelete)
	group.POST("/find-vote", h.handleFindVote)
	group.POST("/do-vote", h.handleDoVote)
}

func (h *httpHandler) handleVoteLoad(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	loaded, err := h.votes.Load(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleVoteCreate(c *gin.Context) {
	var request model.VoteCreate
	if !h.bindJSON(c, &request) {
		return
	}
	created, err := h.votes.Create(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *httpHandler) handleVoteUpdate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var patch model.VoteUpdate
	if !h.bindJSON(c, &patch) {
		return
	}
	updated, err := h.votes.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleVoteDelete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.votes.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleFindVote renders null when the user has not voted on the target.
func (h *httpHandler) handleFindVote(c *gin.Context) {
	var request model.VoteFind
	if !h.bindJSON(c, &request) {
		return
	}
	found, err := h.votes.FindVote(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h *httpHandler) handleDoVote(c *gin.Context) {
	var request model.VoteDoVote
	if !h.bindJSON(c, &request) {
		return
	}
	outcome, err := h.votes.DoVote(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *httpHandler) registerCollectionRoutes(group *gin.RouterGroup) {
	group.GET("/load/:user_id/:question_id", h.handleCollectionLoad)
	group.POST("/toggle/:user_id/:question_id", h.handleCollectionToggle)
	group.POST("/user-collection", h.handleSavedQuestions)
}

func (h *httpHandler) handleCollectionLoad(c *gin.Context) {
	userID, ok := h.pathID(c, "user_id")
	if !ok {
		return
	}
	questionID, ok := h.pathID(c, "question_id")
	if !ok {
		return
	}
	loaded, err := h.collections.Load(c.Request.Context(), userID, questionID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleCollectionToggle(c *gin.Context) {
	userID, ok := h.pathID(c, "user_id")
	if !ok {
		return
	}
	questionID, ok := h.pathID(c, "question_id")
	if !ok {
		return
	}
	saved, err := h.collections.Toggle(c.Request.Context(), userID, questionID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toggleResponsePayload{Saved: saved, Message: "user collection has been toggled"})
}

func (h *httpHandler) handleSavedQuestions(c *gin.Context) {
	var query savedQuestionsQuery
	if !h.bindQuery(c, &query) {
		return
	}
	page, err := h.collections.SavedQuestions(c.Request.Context(), query.UserID, query.ListQuery)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *httpHandler) registerInteractionRoutes(group *gin.RouterGroup) {
	group.GET("/load/:id", h.handleInteractionLoad)
	group.POST("/create", h.handleInteractionCreate)
	group.PUT("/update/:id", h.handleInteractionUpdate)
	group.DELETE("/delete/:id", h.handleInteractionDelete)
}

func (h *httpHandler) handleInteractionLoad(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	loaded, err := h.interactions.Load(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleInteractionCreate(c *gin.Context) {
	var request model.InteractionCreate
	if !h.bindJSON(c, &request) {
		return
	}
	created, err := h.interactions.Create(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *httpHandler) handleInteractionUpdate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var patch model.InteractionUpdate
	if !h.bindJSON(c, &patch) {
		return
	}
	updated, err := h.interactions.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleInteractionDelete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.interactions.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
