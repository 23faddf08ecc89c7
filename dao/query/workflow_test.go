package query

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"k8s.io/utils/ptr"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/workflow"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

// fragments builds a pattern matching the given SQL pieces in order
func fragments(parts ...string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = regexp.QuoteMeta(p)
	}
	pattern := quoted[0]
	for _, q := range quoted[1:] {
		pattern += ".*" + q
	}
	return pattern
}

func TestFindCancellationDocuments(t *testing.T) {
	Convey("cancellation documents are found by the schedule id in their metadata", t, func() {
		db, mock := newMockDB(t)
		store := NewWorkflowStore(db)

		mock.ExpectQuery(fragments(
			`SELECT * FROM "documents"`,
			`json_extract_path_text("metadata"::json,$1) = $2`,
			`"documents"."deleted_at" IS NULL`,
			`ORDER BY id DESC`,
		)).
			WithArgs("originalScheduleId", "5").
			WillReturnRows(sqlmock.NewRows([]string{"id", "type", "author_id", "title", "status", "metadata"}).
				AddRow(9, "LEAVE", 1, "[취소] 연차", "PENDING", `{"originalScheduleId":5}`))

		docs, err := store.FindCancellationDocuments(context.Background(), 5)
		So(err, ShouldBeNil)
		So(docs, ShouldHaveLength, 1)
		So(docs[0].ID, ShouldEqual, 9)
		So(docs[0].Status, ShouldEqual, model.DocumentStatusPending)
		scheduleID, ok := docs[0].OriginalScheduleID()
		So(ok, ShouldBeTrue)
		So(scheduleID, ShouldEqual, 5)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})
}

func TestListApprovalLinesByApprover(t *testing.T) {
	Convey("pending lines are joined with their live pending documents", t, func() {
		db, mock := newMockDB(t)
		store := NewWorkflowStore(db)

		mock.ExpectQuery(fragments(
			`FROM "approval_lines"`,
			`LEFT JOIN "documents" "Document" ON "approval_lines"."document_id" = "Document"."id"`,
			`approval_lines.approver_id = $1`,
			`"Document"."id" IS NOT NULL`,
			`approval_lines.decision IN ($2)`,
			`"Document"."status" = $3`,
			`"Document"."title" LIKE $4`,
			`ORDER BY approval_lines.id DESC`,
		)).
			WithArgs(int64(2), "PENDING", "PENDING", "%연차%").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "document_id", "step_order", "approver_id", "decision",
				"Document__id", "Document__title", "Document__status", "Document__author_id",
			}).AddRow(31, 9, 1, 2, "PENDING", 9, "연차 신청", "PENDING", 1))

		lines, err := store.ListApprovalLinesByApprover(context.Background(), workflow.ApprovalFilter{
			ApproverID:     2,
			Decisions:      []model.ApprovalDecision{model.ApprovalDecisionPending},
			DocumentStatus: ptr.To(model.DocumentStatusPending),
			Title:          "연차",
		})
		So(err, ShouldBeNil)
		So(lines, ShouldHaveLength, 1)
		So(lines[0].ID, ShouldEqual, 31)
		So(lines[0].Document, ShouldNotBeNil)
		So(lines[0].Document.Title, ShouldEqual, "연차 신청")
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})

	Convey("recently decided lines order by decision time", t, func() {
		db, mock := newMockDB(t)
		store := NewWorkflowStore(db)

		mock.ExpectQuery(fragments(
			`approval_lines.approver_id = $1`,
			`ORDER BY approval_lines.decided_at DESC NULLS LAST`,
			`LIMIT $2`,
		)).
			WithArgs(int64(2), int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		lines, err := store.ListApprovalLinesByApprover(context.Background(), workflow.ApprovalFilter{
			ApproverID:      2,
			RecentlyDecided: true,
			Limit:           5,
		})
		So(err, ShouldBeNil)
		So(lines, ShouldBeEmpty)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})
}
