//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
)

func TestOpenPostgresMigratesSchema(testContext *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("devflow"),
		postgres.WithUsername("devflow"),
		postgres.WithPassword("devflow"),
		postgres.BasicWaitStrategies(),
	)
	testContext.Cleanup(func() {
		if terminateErr := testcontainers.TerminateContainer(container); terminateErr != nil {
			testContext.Logf("failed to terminate container: %v", terminateErr)
		}
	})
	if err != nil {
		testContext.Fatalf("failed to start postgres: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		testContext.Fatalf("failed to resolve dsn: %v", err)
	}

	database, err := OpenPostgres(dsn, zap.NewNop(), "warn")
	if err != nil {
		testContext.Fatalf("failed to open postgres: %v", err)
	}

	for _, table := range []string{"users", "questions", "tags", "question_tag_relationship", "votes", "user_collection"} {
		if !database.Migrator().HasTable(table) {
			testContext.Fatalf("expected table %s to exist", table)
		}
	}

	vote := model.Vote{UserID: 1, TargetID: 1, TargetVote: model.TargetQuestion, VoteType: model.VoteUp}
	if err := database.WithContext(ctx).Create(&vote).Error; err != nil {
		testContext.Fatalf("failed to insert vote: %v", err)
	}
	duplicate := model.Vote{UserID: 1, TargetID: 1, TargetVote: model.TargetQuestion, VoteType: model.VoteDown}
	if err := database.WithContext(ctx).Create(&duplicate).Error; err == nil {
		testContext.Fatalf("expected duplicate vote to violate the unique index")
	}

	// Reopening must not reapply recorded migrations.
	if _, err := OpenPostgres(dsn, nil, ""); err != nil {
		testContext.Fatalf("failed to reopen postgres: %v", err)
	}
	var count int64
	if err := database.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count migrations: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected one migration record, got %d", count)
	}
}
