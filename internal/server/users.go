package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/gin-gonic/gin"
)

const tokenTypeBearer = "Bearer"

type emailRequestPayload struct {
	Email string `json:"email" binding:"required"`
}

type usernameRequestPayload struct {
	Username string `json:"username" binding:"required"`
}

type providerRequestPayload struct {
	Provider string `json:"provider" binding:"required"`
}

type signInResponsePayload struct {
	Account     model.AccountLoad `json:"account"`
	AccessToken string            `json:"access_token"`
	ExpiresIn   int64             `json:"expires_in"`
	TokenType   string            `json:"token_type"`
}

func (h *httpHandler) registerUserRoutes(group *gin.RouterGroup) {
	group.GET("", h.handleUserAll)
	group.GET("/", h.handleUserAll)
	group.POST("/email", h.handleUserByEmail)
	group.POST("/username", h.handleUserByUsername)
	group.GET("/load/:id", h.handleUserLoad)
	group.POST("/create", h.handleUserCreate)
	group.PUT("/update/:id", h.handleUserUpdate)
	group.DELETE("/delete/:id", h.handleUserDelete)
}

func (h *httpHandler) handleUserAll(c *gin.Context) {
	loaded, err := h.users.All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleUserByEmail(c *gin.Context) {
	var request emailRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	loaded, err := h.users.LoadByEmail(c.Request.Context(), request.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleUserByUsername(c *gin.Context) {
	var request usernameRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	loaded, err := h.users.LoadByUsername(c.Request.Context(), request.Username)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleUserLoad(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	loaded, err := h.users.Load(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleUserCreate(c *gin.Context) {
	var request model.UserCreate
	if !h.bindJSON(c, &request) {
		return
	}
	created, err := h.users.Create(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *httpHandler) handleUserUpdate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var patch model.UserUpdate
	if !h.bindJSON(c, &patch) {
		return
	}
	updated, err := h.users.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleUserDelete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) registerAccountRoutes(group *gin.RouterGroup) {
	group.GET("/load/:id", h.handleAccountLoad)
	group.POST("/create", h.handleAccountCreate)
	group.PUT("/update/:id", h.handleAccountUpdate)
	group.DELETE("/delete/:id", h.handleAccountDelete)
	group.POST("/provider", h.handleAccountByProvider)
	group.POST("/sign-in-with-oauth", h.handleSignInWithOAuth)
	group.POST("/sign-up-with-credentials", h.handleSignUpWithCredentials)
	group.POST("/sign-in-with-credentials", h.handleSignInWithCredentials)
}

func (h *httpHandler) handleAccountLoad(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	loaded, err := h.accounts.Load(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleAccountCreate(c *gin.Context) {
	var request model.AccountCreate
	if !h.bindJSON(c, &request) {
		return
	}
	created, err := h.accounts.Create(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *httpHandler) handleAccountUpdate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var patch model.AccountUpdate
	if !h.bindJSON(c, &patch) {
		return
	}
	updated, err := h.accounts.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleAccountDelete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAccountByProvider(c *gin.Context) {
	var request providerRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	loaded, err := h.accounts.LoadByProviderAccountID(c.Request.Context(), request.Provider)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleSignInWithOAuth(c *gin.Context) {
	var request model.AccountSignInWithOAuth
	if !h.bindJSON(c, &request) {
		return
	}
	account, err := h.accounts.SignInWithOAuth(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSignedIn(c, account)
}

func (h *httpHandler) handleSignUpWithCredentials(c *gin.Context) {
	var request model.AccountSignUpWithCredentials
	if !h.bindJSON(c, &request) {
		return
	}
	account, err := h.accounts.SignUpWithCredentials(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSignedIn(c, account)
}

func (h *httpHandler) handleSignInWithCredentials(c *gin.Context) {
	var request model.AccountSignInWithCredentials
	if !h.bindJSON(c, &request) {
		return
	}
	account, err := h.accounts.SignInWithCredentials(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSignedIn(c, account)
}

func (h *httpHandler) respondSignedIn(c *gin.Context, account model.AccountLoad) {
	var token auth.AccessToken
	if account.UserID != nil {
		issued, err := h.tokens.IssueToken(c.Request.Context(), *account.UserID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		token = issued
	}
	c.JSON(http.StatusOK, signInResponsePayload{
		Account:     account,
		AccessToken: token.Token,
		ExpiresIn:   token.ExpiresIn,
		TokenType:   tokenTypeBearer,
	})
}
