package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
	"github.com/buswatch/buswatch-api/internal/domain/model"
	"github.com/buswatch/buswatch-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	auditActorID1 = "550e8400-e29b-41d4-a716-446655440001"
	auditActorID2 = "550e8400-e29b-41d4-a716-446655440002"
)

func recordAuditEntry(t *testing.T, repo *AuditRepo, userID, action string, entity model.AuditEntityType) *model.AuditLog {
	t.Helper()
	entry, err := repo.Record(context.Background(), &model.RecordAuditRequest{
		UserID:     userID,
		UserName:   "Audit Actor",
		UserRole:   domainauth.RoleSuperAdmin,
		Action:     action,
		EntityType: entity,
		EntityID:   "entity-1",
		Details:    json.RawMessage(`{"from":"pending","to":"reviewed"}`),
	})
	require.NoError(t, err)
	return entry
}

func TestAuditRepo_Record_Success(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewAuditRepo(db)
		entry := recordAuditEntry(t, repo, auditActorID1, "report.status_changed", model.AuditEntityReport)

		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, auditActorID1, entry.UserID)
		assert.Equal(t, "report.status_changed", entry.Action)
		assert.Equal(t, model.AuditEntityReport, entry.EntityType)
		assert.JSONEq(t, `{"from":"pending","to":"reviewed"}`, string(entry.Details))
		assert.False(t, entry.CreatedAt.IsZero())
	})
}

func TestAuditRepo_Record_DefaultsEmptyDetails(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewAuditRepo(db)
		entry, err := repo.Record(context.Background(), &model.RecordAuditRequest{
			UserID:     auditActorID1,
			UserName:   "Audit Actor",
			UserRole:   domainauth.RoleSuperAdmin,
			Action:     "user.deleted",
			EntityType: model.AuditEntityUser,
			EntityID:   "entity-2",
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(entry.Details))
	})
}

func TestAuditRepo_List_Filters(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewAuditRepo(db)
		recordAuditEntry(t, repo, auditActorID1, "report.created", model.AuditEntityReport)
		recordAuditEntry(t, repo, auditActorID1, "report.status_changed", model.AuditEntityReport)
		recordAuditEntry(t, repo, auditActorID2, "school.created", model.AuditEntitySchool)

		byUser, err := repo.List(ctx, model.AuditListOptions{UserID: testutil.StringPtr(auditActorID2)})
		require.NoError(t, err)
		require.Len(t, byUser, 1)
		assert.Equal(t, "school.created", byUser[0].Action)

		action := "report.status_changed"
		byAction, err := repo.List(ctx, model.AuditListOptions{Action: &action})
		require.NoError(t, err)
		require.Len(t, byAction, 1)

		entity := model.AuditEntityReport
		byEntity, err := repo.List(ctx, model.AuditListOptions{EntityType: &entity})
		require.NoError(t, err)
		assert.Len(t, byEntity, 2)
	})
}

func TestAuditRepo_List_PagingAndOrder(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewAuditRepo(db)
		for i := 0; i < 3; i++ {
			recordAuditEntry(t, repo, auditActorID1, "report.created", model.AuditEntityReport)
		}

		page, err := repo.List(ctx, model.AuditListOptions{Limit: 2, Dir: "desc"})
		require.NoError(t, err)
		assert.Len(t, page, 2)

		rest, err := repo.List(ctx, model.AuditListOptions{Limit: 2, Offset: 2, Dir: "desc"})
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})
}
