package tags

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/apperror"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/database"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:tags_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := database.OpenSQLite(dsn, nil, "")
	require.NoError(t, err)
	service, err := NewService(ServiceConfig{Database: db})
	require.NoError(t, err)
	return service, db
}

func seedQuestion(t *testing.T, db *gorm.DB, title string) model.Question {
	t.Helper()
	author := model.User{Name: title, Username: "user-" + title, Email: title + "@example.com"}
	require.NoError(t, db.Create(&author).Error)
	question := model.Question{Title: title, Content: "content of " + title, AuthorID: author.ID}
	require.NoError(t, db.Omit("Author", "Tags", "Answers").Create(&question).Error)
	return question
}

func setTags(t *testing.T, service *Service, db *gorm.DB, questionID int64, names ...string) []string {
	t.Helper()
	var affected []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		affected, err = service.AttachTagsToQuestion(tx, questionID, names)
		if err != nil {
			return err
		}
		return service.RecountTags(tx, affected)
	})
	require.NoError(t, err)
	return affected
}

func numQuestions(t *testing.T, service *Service, name string) int64 {
	t.Helper()
	tag, err := service.LoadByName(context.Background(), name)
	require.NoError(t, err)
	return tag.NumQuestions
}

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "rust", CanonicalName("  Rust "))
	assert.Equal(t, "", CanonicalName("   "))
	assert.Equal(t, []string{"go", "rust"}, CanonicalNames([]string{"Go", "rust", " GO", "", "Rust "}))
}

func TestUpsertByNameIsIdempotentAcrossCaseAndWhitespace(t *testing.T) {
	ctx := context.Background()
	service, db := newTestService(t)

	first, err := service.UpsertByName(ctx, "Rust")
	require.NoError(t, err)
	second, err := service.UpsertByName(ctx, "rust ")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "rust", second.Name)

	var count int64
	require.NoError(t, db.Model(&model.Tag{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertByNameRejectsBlankName(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.UpsertByName(context.Background(), "   ")
	require.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCreateNeverConflicts(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	first, err := service.Create(ctx, model.TagCreate{Name: "Go"})
	require.NoError(t, err)
	second, err := service.Create(ctx, model.TagCreate{Name: "go"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestReplacingTagSetRecountsUnionOfOldAndNew(t *testing.T) {
	service, db := newTestService(t)
	question := seedQuestion(t, db, "scenario")

	affected := setTags(t, service, db, question.ID, "go", "rust")
	assert.Equal(t, []string{"go", "rust"}, affected)
	assert.EqualValues(t, 1, numQuestions(t, service, "go"))
	assert.EqualValues(t, 1, numQuestions(t, service, "rust"))

	affected = setTags(t, service, db, question.ID, "rust", "zig")
	assert.Equal(t, []string{"go", "rust", "zig"}, affected)
	assert.EqualValues(t, 0, numQuestions(t, service, "go"))
	assert.EqualValues(t, 1, numQuestions(t, service, "rust"))
	assert.EqualValues(t, 1, numQuestions(t, service, "zig"))
}

func TestRemovingAllTagsRecountsPreviousTags(t *testing.T) {
	service, db := newTestService(t)
	question := seedQuestion(t, db, "clear")

	setTags(t, service, db, question.ID, "go", "rust")
	affected := setTags(t, service, db, question.ID)

	assert.Equal(t, []string{"go", "rust"}, affected)
	assert.EqualValues(t, 0, numQuestions(t, service, "go"))
	assert.EqualValues(t, 0, numQuestions(t, service, "rust"))
}

func TestDuplicateNamesAttachOnce(t *testing.T) {
	service, db := newTestService(t)
	question := seedQuestion(t, db, "dupes")

	setTags(t, service, db, question.ID, "Go", "go ", "GO")

	var relationships int64
	require.NoError(t, db.Model(&model.QuestionTagRelationship{}).Where("question_id = ?", question.ID).Count(&relationships).Error)
	assert.EqualValues(t, 1, relationships)
	assert.EqualValues(t, 1, numQuestions(t, service, "go"))
}

func TestCountsMatchRelationshipsAcrossQuestions(t *testing.T) {
	service, db := newTestService(t)
	first := seedQuestion(t, db, "first")
	second := seedQuestion(t, db, "second")

	setTags(t, service, db, first.ID, "go", "sql")
	setTags(t, service, db, second.ID, "go")

	assert.EqualValues(t, 2, numQuestions(t, service, "go"))
	assert.EqualValues(t, 1, numQuestions(t, service, "sql"))

	// Drift introduced behind the engine's back is repaired by a full recount.
	require.NoError(t, db.Model(&model.Tag{}).Where("name = ?", "go").Update("num_questions", 42).Error)
	visited, err := service.RecountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, visited)
	assert.EqualValues(t, 2, numQuestions(t, service, "go"))
}

func TestUpdateCanonicalizesAndDeleteDetaches(t *testing.T) {
	ctx := context.Background()
	service, db := newTestService(t)
	question := seedQuestion(t, db, "rename")
	setTags(t, service, db, question.ID, "golang")

	tag, err := service.LoadByName(ctx, "golang")
	require.NoError(t, err)

	renamed := "  GoLang2 "
	updated, err := service.Update(ctx, tag.ID, model.TagUpdate{Name: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "golang2", updated.Name)

	require.NoError(t, service.Delete(ctx, tag.ID))

	var relationships int64
	require.NoError(t, db.Model(&model.QuestionTagRelationship{}).Where("tag_id = ?", tag.ID).Count(&relationships).Error)
	assert.Zero(t, relationships)

	err = service.Delete(ctx, tag.ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListOrdersByFilter(t *testing.T) {
	ctx := context.Background()
	service, db := newTestService(t)
	first := seedQuestion(t, db, "one")
	second := seedQuestion(t, db, "two")
	setTags(t, service, db, first.ID, "zig", "go")
	setTags(t, service, db, second.ID, "go")

	popular, err := service.List(ctx, records.ListQuery{})
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "go", popular[0].Name)

	byName, err := service.List(ctx, records.ListQuery{Filter: "name"})
	require.NoError(t, err)
	assert.Equal(t, "go", byName[0].Name)
	assert.Equal(t, "zig", byName[1].Name)

	exact, err := service.List(ctx, records.ListQuery{Query: "ZIG"})
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "zig", exact[0].Name)
}

func TestQuestionsForTag(t *testing.T) {
	ctx := context.Background()
	service, db := newTestService(t)
	popular := seedQuestion(t, db, "popular")
	quiet := seedQuestion(t, db, "quiet")
	require.NoError(t, db.Model(&model.Question{}).Where("id = ?", popular.ID).Update("upvotes", 5).Error)
	setTags(t, service, db, popular.ID, "go")
	setTags(t, service, db, quiet.ID, "go")

	tag, err := service.LoadByName(ctx, "go")
	require.NoError(t, err)

	questions, err := service.Questions(ctx, tag.ID, records.ListQuery{})
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, popular.ID, questions[0].ID)
	require.Len(t, questions[0].Tags, 1)
	assert.Equal(t, "go", questions[0].Tags[0].Name)
	require.NotNil(t, questions[0].Author)

	filtered, err := service.Questions(ctx, tag.ID, records.ListQuery{Query: "QUIET"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, quiet.ID, filtered[0].ID)

	_, err = service.Questions(ctx, 9999, records.ListQuery{})
	require.ErrorIs(t, err, apperror.ErrNotFound)
}
