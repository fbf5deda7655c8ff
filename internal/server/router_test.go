package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/app"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/database"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/server"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const jsonContentType = "application/json"

var databaseCounter atomic.Int64

type apiHarness struct {
	handler http.Handler
	tokens  *auth.TokenIssuer
}

func newAPIHarness(testContext *testing.T) apiHarness {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", databaseCounter.Add(1))
	db, err := database.OpenSQLite(dsn, nil, "")
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		testContext.Fatalf("failed to access sql db: %v", err)
	}
	testContext.Cleanup(func() { _ = sqlDB.Close() })

	services, err := app.NewServices(db, nil, app.Options{PasswordCost: bcrypt.MinCost})
	if err != nil {
		testContext.Fatalf("failed to build services: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("router-secret"),
		Issuer:        "devflow-auth",
		Audience:      "devflow-api",
		TokenTTL:      10 * time.Minute,
	})
	if err != nil {
		testContext.Fatalf("failed to build token issuer: %v", err)
	}
	handler, err := server.NewHTTPHandler(services.Dependencies(db, tokens, nil, nil))
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}
	return apiHarness{handler: handler, tokens: tokens}
}

func (h apiHarness) do(testContext *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	testContext.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			testContext.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", jsonContentType)
	recorder := httptest.NewRecorder()
	h.handler.ServeHTTP(recorder, request)
	return recorder
}

func decode[T any](testContext *testing.T, recorder *httptest.ResponseRecorder) T {
	testContext.Helper()
	var value T
	if err := json.Unmarshal(recorder.Body.Bytes(), &value); err != nil {
		testContext.Fatalf("failed to decode %q: %v", recorder.Body.String(), err)
	}
	return value
}

func expectStatus(testContext *testing.T, recorder *httptest.ResponseRecorder, status int) {
	testContext.Helper()
	if recorder.Code != status {
		testContext.Fatalf("expected status %d, got %d: %s", status, recorder.Code, recorder.Body.String())
	}
}

func (h apiHarness) createUser(testContext *testing.T, username string) model.UserLoad {
	testContext.Helper()
	recorder := h.do(testContext, http.MethodPost, "/api/v1/user/create", model.UserCreate{
		Name:     username,
		Username: username,
		Email:    username + "@example.com",
	})
	expectStatus(testContext, recorder, http.StatusOK)
	return decode[model.UserLoad](testContext, recorder)
}

func (h apiHarness) createQuestion(testContext *testing.T, authorID int64, tagNames ...string) model.QuestionLoad {
	testContext.Helper()
	recorder := h.do(testContext, http.MethodPost, "/api/v1/question/create", model.QuestionCreate{
		Title:    "How do channels work?",
		Content:  "Buffered versus unbuffered.",
		Tags:     tagNames,
		AuthorID: authorID,
	})
	expectStatus(testContext, recorder, http.StatusOK)
	return decode[model.QuestionLoad](testContext, recorder)
}

func TestHealthzPingsDatabase(testContext *testing.T) {
	harness := newAPIHarness(testContext)

	recorder := harness.do(testContext, http.MethodGet, "/healthz", nil)
	expectStatus(testContext, recorder, http.StatusOK)
	if recorder.Header().Get("X-Request-ID") == "" {
		testContext.Fatalf("expected a request id header")
	}
}

func TestDoVoteTogglesAndReportsTotals(testContext *testing.T) {
	harness := newAPIHarness(testContext)
	author := harness.createUser(testContext, "ada")
	question := harness.createQuestion(testContext, author.ID, "Go")

	request := model.VoteDoVote{UserID: author.ID, TargetID: question.ID, TargetVote: model.TargetQuestion, VoteType: model.VoteUp}

	recorder := harness.do(testContext, http.MethodPost, "/api/v1/vote/do-vote", request)
	expectStatus(testContext, recorder, http.StatusOK)
	outcome := decode[map[string]any](testContext, recorder)
	if outcome["current"] != "upvoted" || outcome["upvotes"] != float64(1) {
		testContext.Fatalf("unexpected outcome %v", outcome)
	}

	find := request.Find()
	recorder = harness.do(testContext, http.MethodPost, "/api/v1/vote/find-vote", find)
	expectStatus(testContext, recorder, http.StatusOK)
	found := decode[*model.VoteLoad](testContext, recorder)
	if found == nil || found.VoteType != model.VoteUp {
		testContext.Fatalf("expected the upvote to be found, got %+v", found)
	}

	recorder = harness.do(testContext, http.MethodPost, "/api/v1/vote/do-vote", request)
	expectStatus(testContext, recorder, http.StatusOK)
	outcome = decode[map[string]any](testContext, recorder)
	if outcome["current"] != "none" || outcome["upvotes"] != float64(0) || outcome["vote"] != nil {
		testContext.Fatalf("unexpected outcome after toggle-off %v", outcome)
	}

	recorder = harness.do(testContext, http.MethodPost, "/api/v1/vote/find-vote", find)
	expectStatus(testContext, recorder, http.StatusOK)
	if recorder.Body.String() != "null" {
		testContext.Fatalf("expected null for absent vote, got %s", recorder.Body.String())
	}

	recorder = harness.do(testContext, http.MethodGet, fmt.Sprintf("/api/v1/question/load/%d", question.ID), nil)
	expectStatus(testContext, recorder, http.StatusOK)
	loaded := decode[model.QuestionLoad](testContext, recorder)
	if loaded.Upvotes != 0 || loaded.Downvotes != 0 {
		testContext.Fatalf("expected zero counters, got %d/%d", loaded.Upvotes, loaded.Downvotes)
	}
}

func TestDoVoteRejectsUnknownVoteType(testContext *testing.T) {
	harness := newAPIHarness(testContext)

	recorder := harness.do(testContext, http.MethodPost, "/api/v1/vote/do-vote", map[string]any{
		"user_id":     1,
		"target_id":   1,
		"target_vote": "question",
		"vote_type":   "sideways",
	})
	expectStatus(testContext, recorder, http.StatusBadRequest)
	payload := decode[map[string]string](testContext, recorder)
	if payload["error"] != "validation" {
		testContext.Fatalf("unexpected payload %v", payload)
	}
}

func TestDoVoteOnMissingTargetIsNotFound(testContext *testing.T) {
	harness := newAPIHarness(testContext)
	voter := harness.createUser(testContext, "grace")

	recorder := harness.do(testContext, http.MethodPost, "/api/v1/vote/do-vote", model.VoteDoVote{
		UserID: voter.ID, TargetID: 404, TargetVote: model.TargetAnswer, VoteType: model.VoteDown,
	})
	expectStatus(testContext, recorder, http.StatusNotFound)
	payload := decode[map[string]string](testContext, recorder)
	if payload["error"] != "not_found" || payload["code"] == "" {
		testContext.Fatalf("unexpected payload %v", payload)
	}
}

func TestQuestionTagsAreCanonicalizedAndCounted(testContext *testing.T) {
	harness := newAPIHarness(testContext)
	author := harness.createUser(testContext, "linus")
	question := harness.createQuestion(testContext, author.ID, "Go", " go ", "Rust")

	if len(question.Tags) != 2 {
		testContext.Fatalf("expected two canonical tags, got %+v", question.Tags)
	}

	newTags := []string{"rust", "zig"}
	recorder := harness.do(testContext, http.MethodPut, fmt.Sprintf("/api/v1/question/update/%d", question.ID), model.QuestionUpdate{Tags: &newTags})
	expectStatus(testContext, recorder, http.StatusOK)

	recorder = harness.do(testContext, http.MethodGet, "/api/v1/tag/tags?filter=name", nil)
	expectStatus(testContext, recorder, http.StatusOK)
	listed := decode[[]model.TagLoad](testContext, recorder)
	counts := map[string]int64{}
	for _, tag := range listed {
		counts[tag.Name] = tag.NumQuestions
	}
	if counts["go"] != 0 || counts["rust"] != 1 || counts["zig"] != 1 {
		testContext.Fatalf("unexpected tag counts %v", counts)
	}
}

func TestDuplicateUserIsConflict(testContext *testing.T) {
	harness := newAPIHarness(testContext)
	harness.createUser(testContext, "ken")

	recorder := harness.do(testContext, http.MethodPost, "/api/v1/user/create", model.UserCreate{
		Name: "Other", Username: "ken", Email: "other@example.com",
	})
	expectStatus(testContext, recorder, http.StatusConflict)
}

func TestCollectionToggleIsAccepted(testContext *testing.T) {
	harness := newAPIHarness(testContext)
	author := harness.createUser(testContext, "rob")
	question := harness.createQuestion(testContext, author.ID)
	path := fmt.Sprintf("/api/v1/user_collection/toggle/%d/%d", author.ID, question.ID)

	recorder := harness.do(testContext, http.MethodPost, path, nil)
	expectStatus(testContext, recorder, http.StatusAccepted)
	if saved := decode[map[string]any](testContext, recorder)["saved"]; saved != true {
		testContext.Fatalf("expected saved after first toggle, got %v", saved)
	}

	recorder = harness.do(testContext, http.MethodPost, fmt.Sprintf("/api/v1/user_collection/user-collection?user_id=%d", author.ID), nil)
	expectStatus(testContext, recorder, http.StatusOK)
	page := decode[map[string]any](testContext, recorder)
	if page["total"] != float64(1) {
		testContext.Fatalf("expected one saved question, got %v", page)
	}

	recorder = harness.do(testContext, http.MethodPost, path, nil)
	expectStatus(testContext, recorder, http.StatusAccepted)

	recorder = harness.do(testContext, http.MethodGet, fmt.Sprintf("/api/v1/user_collection/load/%d/%d", author.ID, question.ID), nil)
	expectStatus(testContext, recorder, http.StatusNotFound)
}

func TestCredentialSignUpIssuesAccessToken(testContext *testing.T) {
	harness := newAPIHarness(testContext)

	recorder := harness.do(testContext, http.MethodPost, "/api/v1/account/sign-up-with-credentials", model.AccountSignUpWithCredentials{
		Name: "Barbara", Username: "barbara", Email: "Barbara@Example.com", Password: "correct horse",
	})
	expectStatus(testContext, recorder, http.StatusOK)
	signedUp := decode[map[string]any](testContext, recorder)
	token, _ := signedUp["access_token"].(string)
	if token == "" {
		testContext.Fatalf("expected an access token, got %v", signedUp)
	}
	userID, err := harness.tokens.ValidateToken(token)
	if err != nil || userID <= 0 {
		testContext.Fatalf("expected a valid token, got %d %v", userID, err)
	}

	recorder = harness.do(testContext, http.MethodPost, "/api/v1/account/sign-in-with-credentials", model.AccountSignInWithCredentials{
		Email: "barbara@example.com", Password: "correct horse",
	})
	expectStatus(testContext, recorder, http.StatusOK)

	recorder = harness.do(testContext, http.MethodPost, "/api/v1/account/sign-in-with-credentials", model.AccountSignInWithCredentials{
		Email: "barbara@example.com", Password: "wrong",
	})
	expectStatus(testContext, recorder, http.StatusBadRequest)

	recorder = harness.do(testContext, http.MethodPost, "/api/v1/account/sign-in-with-credentials", model.AccountSignInWithCredentials{
		Email: "nobody@example.com", Password: "wrong",
	})
	expectStatus(testContext, recorder, http.StatusNotFound)
}

func TestDeleteReturnsNoContent(testContext *testing.T) {
	harness := newAPIHarness(testContext)
	author := harness.createUser(testContext, "dennis")
	question := harness.createQuestion(testContext, author.ID, "c")

	recorder := harness.do(testContext, http.MethodDelete, fmt.Sprintf("/api/v1/question/delete/%d", question.ID), nil)
	expectStatus(testContext, recorder, http.StatusNoContent)

	recorder = harness.do(testContext, http.MethodGet, fmt.Sprintf("/api/v1/question/load/%d", question.ID), nil)
	expectStatus(testContext, recorder, http.StatusNotFound)

	recorder = harness.do(testContext, http.MethodGet, "/api/v1/question/load/abc", nil)
	expectStatus(testContext, recorder, http.StatusBadRequest)
}

func TestNewHTTPHandlerRequiresDependencies(testContext *testing.T) {
	if _, err := server.NewHTTPHandler(server.Dependencies{}); err == nil {
		testContext.Fatalf("expected error for missing dependencies")
	}
}
