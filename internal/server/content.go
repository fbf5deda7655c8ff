package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/records"
	"github.com/gin-gonic/gin"
)

func (h *httpHandler) registerQuestionRoutes(group *gin.RouterGroup) {
	group.GET("/load/:id", h.handleQuestionLoad)
	group.POST("/create", h.handleQuestionCreate)
	group.PUT("/update/:id", h.handleQuestionUpdate)
	group.DELETE("/delete/:id", h.handleQuestionDelete)
	group.GET("/questions", h.handleQuestionList)
}

func (h *httpHandler) handleQuestionLoad(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	loaded, err := h.questions.Load(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleQuestionCreate(c *gin.Context) {
	var request model.QuestionCreate
	if !h.bindJSON(c, &request) {
		return
	}
	created, err := h.questions.Create(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *httpHandler) handleQuestionUpdate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var patch model.QuestionUpdate
	if !h.bindJSON(c, &patch) {
		return
	}
	updated, err := h.questions.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleQuestionDelete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.questions.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleQuestionList(c *gin.Context) {
	var query records.ListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	listed, err := h.questions.List(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listed)
}

func (h *httpHandler) registerAnswerRoutes(group *gin.RouterGroup) {
	group.GET("/load/:id", h.handleAnswerLoad)
	group.POST("/create", h.handleAnswerCreate)
	group.PUT("/update/:id", h.handleAnswerUpdate)
	group.DELETE("/delete/:id", h.handleAnswerDelete)
	group.GET("/answers-for-question/:question_id", h.handleAnswersForQuestion)
}

func (h *httpHandler) handleAnswerLoad(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	loaded, err := h.answers.Load(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleAnswerCreate(c *gin.Context) {
	var request model.AnswerCreate
	if !h.bindJSON(c, &request) {
		return
	}
	created, err := h.answers.Create(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *httpHandler) handleAnswerUpdate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var patch model.AnswerUpdate
	if !h.bindJSON(c, &patch) {
		return
	}
	updated, err := h.answers.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleAnswerDelete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.answers.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAnswersForQuestion(c *gin.Context) {
	questionID, ok := h.pathID(c, "question_id")
	if !ok {
		return
	}
	var query records.ListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	page, err := h.answers.ForQuestion(c.Request.Context(), questionID, query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *httpHandler) registerTagRoutes(group *gin.RouterGroup) {
	group.GET("/load/:id", h.handleTagLoad)
	group.POST("/create", h.handleTagCreate)
	group.PUT("/update/:id", h.handleTagUpdate)
	group.DELETE("/delete/:id", h.handleTagDelete)
	group.GET("/tags", h.handleTagList)
	group.GET("/:id/questions", h.handleTagQuestions)
}

func (h *httpHandler) handleTagLoad(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	loaded, err := h.tags.Load(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleTagCreate(c *gin.Context) {
	var request model.TagCreate
	if !h.bindJSON(c, &request) {
		return
	}
	created, err := h.tags.Create(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *httpHandler) handleTagUpdate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var patch model.TagUpdate
	if !h.bindJSON(c, &patch) {
		return
	}
	updated, err := h.tags.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleTagDelete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.tags.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleTagList(c *gin.Context) {
	var query records.ListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	listed, err := h.tags.List(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listed)
}

func (h *httpHandler) handleTagQuestions(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var query records.ListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	listed, err := h.tags.Questions(c.Request.Context(), id, query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listed)
}
