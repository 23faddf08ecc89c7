package workflow

import (
	"errors"
	"testing"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/ync-lab/intranet/dao/model"
)

const leaveContent = `휴가 사유: 가족 행사
[일정정보:{"scheduleType":"VACATION","startDate":"2025-03-20","endDate":"2025-03-21","daysUsed":"2"}]`

func TestSubmitDocument(t *testing.T) {
	t.Run("approval chain", func(t *testing.T) {
		PatchConvey("submit creates one pending line per approver", t, func() {
			fx := newFixture()
			doc := fx.submittedDocument(model.DocumentTypeGeneral, "본문", leaderID, directorID)

			So(doc.Status, ShouldEqual, model.DocumentStatusPending)
			So(doc.SubmittedAt, ShouldNotBeNil)
			So(doc.ApprovalLines, ShouldHaveLength, 2)
			So(doc.ApprovalLines[0].StepOrder, ShouldEqual, 1)
			So(doc.ApprovalLines[0].ApproverName, ShouldEqual, "이팀장")
			So(doc.ApprovalLines[1].ApproverPosition, ShouldEqual, "본부장")
			So(fx.notifier.last(), ShouldResemble, notifyEvent{kind: "requested", memberID: leaderID, documentID: doc.ID})
		})
	})

	t.Run("invalid approvers", func(t *testing.T) {
		PatchConvey("approvers are validated", t, func() {
			fx := newFixture()
			doc, err := fx.svc.CreateDocument(fx.ctx, authorID, DocumentInput{Type: model.DocumentTypeGeneral, Title: "보고"})
			So(err, ShouldBeNil)

			_, err = fx.svc.SubmitDocument(fx.ctx, doc.ID, authorID, nil)
			So(errors.Is(err, ErrInvalidInput), ShouldBeTrue)
			_, err = fx.svc.SubmitDocument(fx.ctx, doc.ID, authorID, []uint{authorID})
			So(errors.Is(err, ErrInvalidInput), ShouldBeTrue)
			_, err = fx.svc.SubmitDocument(fx.ctx, doc.ID, authorID, []uint{999})
			So(errors.Is(err, ErrInvalidInput), ShouldBeTrue)
			_, err = fx.svc.SubmitDocument(fx.ctx, doc.ID, colleagueID, []uint{leaderID})
			So(errors.Is(err, ErrForbidden), ShouldBeTrue)
		})
	})

	t.Run("leave document", func(t *testing.T) {
		PatchConvey("leave info creates a submitted schedule", t, func() {
			fx := newFixture()
			doc := fx.submittedDocument(model.DocumentTypeLeave, leaveContent, leaderID)

			schedules, err := fx.store.ListSchedulesByDocument(fx.ctx, doc.ID)
			So(err, ShouldBeNil)
			So(schedules, ShouldHaveLength, 1)
			So(schedules[0].Status, ShouldEqual, model.ScheduleStatusSubmitted)
			So(schedules[0].Type, ShouldEqual, model.ScheduleTypeVacation)
			So(schedules[0].MemberID, ShouldEqual, authorID)
			So(schedules[0].DaysUsed, ShouldEqual, 2.0)
			So(schedules[0].Description, ShouldEqual, "휴가 사유: 가족 행사")
			So(schedules[0].StartDate.Equal(day(2025, 3, 20)), ShouldBeTrue)
		})

		PatchConvey("malformed leave info rolls the submission back", t, func() {
			fx := newFixture()
			doc, err := fx.svc.CreateDocument(fx.ctx, authorID, DocumentInput{
				Type:    model.DocumentTypeLeave,
				Title:   "연차",
				Content: `[일정정보:{"scheduleType":"VACATION"}]`,
			})
			So(err, ShouldBeNil)

			_, err = fx.svc.SubmitDocument(fx.ctx, doc.ID, authorID, []uint{leaderID})
			So(errors.Is(err, ErrInvalidInput), ShouldBeTrue)

			stored, _ := fx.store.GetDocument(fx.ctx, doc.ID)
			So(stored.Status, ShouldEqual, model.DocumentStatusDraft)
			lines, _ := fx.store.ListApprovalLines(fx.ctx, doc.ID)
			So(lines, ShouldBeEmpty)
			So(fx.notifier.count(), ShouldEqual, 0)
		})
	})
}

func TestApprove(t *testing.T) {
	t.Run("sequential approval", func(t *testing.T) {
		PatchConvey("document is approved after the last line", t, func() {
			fx := newFixture()
			doc := fx.submittedDocument(model.DocumentTypeLeave, leaveContent, leaderID, directorID)
			first := fx.lineOf(doc.ID, leaderID)
			second := fx.lineOf(doc.ID, directorID)

			_, err := fx.svc.Approve(fx.ctx, first.ID, directorID, "")
			So(errors.Is(err, ErrForbidden), ShouldBeTrue)

			line, err := fx.svc.Approve(fx.ctx, first.ID, leaderID, "확인")
			So(err, ShouldBeNil)
			So(line.Decision, ShouldEqual, model.ApprovalDecisionApproved)
			So(line.Comment, ShouldEqual, "확인")
			So(line.DecidedAt, ShouldNotBeNil)

			stored, _ := fx.store.GetDocument(fx.ctx, doc.ID)
			So(stored.Status, ShouldEqual, model.DocumentStatusPending)
			So(fx.notifier.last(), ShouldResemble, notifyEvent{kind: "requested", memberID: directorID, documentID: doc.ID})

			_, err = fx.svc.Approve(fx.ctx, first.ID, leaderID, "")
			So(errors.Is(err, ErrInvalidState), ShouldBeTrue)

			_, err = fx.svc.Approve(fx.ctx, second.ID, directorID, "")
			So(err, ShouldBeNil)
			stored, _ = fx.store.GetDocument(fx.ctx, doc.ID)
			So(stored.Status, ShouldEqual, model.DocumentStatusApproved)
			So(stored.CompletedAt, ShouldNotBeNil)
			So(fx.notifier.last(), ShouldResemble, notifyEvent{
				kind: "approved", memberID: authorID, documentID: doc.ID, name: "박본부장",
			})

			schedules, _ := fx.store.ListSchedulesByDocument(fx.ctx, doc.ID)
			So(schedules[0].Status, ShouldEqual, model.ScheduleStatusApproved)
		})
	})

	t.Run("approver fallback name", func(t *testing.T) {
		PatchConvey("a deleted approver account falls back to the snapshot", t, func() {
			fx := newFixture()
			doc := fx.submittedDocument(model.DocumentTypeGeneral, "", leaderID)
			line := fx.lineOf(doc.ID, leaderID)
			delete(fx.store.members, leaderID)

			_, err := fx.svc.Approve(fx.ctx, line.ID, leaderID, "")
			So(err, ShouldBeNil)
			So(fx.notifier.last().name, ShouldEqual, "이팀장")
		})
	})

	t.Run("missing line", func(t *testing.T) {
		fx := newFixture()
		_, err := fx.svc.Approve(fx.ctx, 12345, leaderID, "")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReject(t *testing.T) {
	PatchConvey("rejecting one line rejects the document", t, func() {
		fx := newFixture()
		doc := fx.submittedDocument(model.DocumentTypeLeave, leaveContent, leaderID, directorID)
		line := fx.lineOf(doc.ID, leaderID)

		rejected, err := fx.svc.Reject(fx.ctx, line.ID, leaderID, nil)
		So(err, ShouldBeNil)
		So(rejected.Decision, ShouldEqual, model.ApprovalDecisionRejected)
		So(rejected.Comment, ShouldEqual, "")

		stored, _ := fx.store.GetDocument(fx.ctx, doc.ID)
		So(stored.Status, ShouldEqual, model.DocumentStatusRejected)
		schedules, _ := fx.store.ListSchedulesByDocument(fx.ctx, doc.ID)
		So(schedules[0].Status, ShouldEqual, model.ScheduleStatusRejected)

		_, err = fx.svc.Approve(fx.ctx, fx.lineOf(doc.ID, directorID).ID, directorID, "")
		So(errors.Is(err, ErrInvalidState), ShouldBeTrue)
	})

	PatchConvey("the reason reaches the author", t, func() {
		fx := newFixture()
		doc := fx.submittedDocument(model.DocumentTypeGeneral, "", leaderID)
		_, err := fx.svc.Reject(fx.ctx, fx.lineOf(doc.ID, leaderID).ID, leaderID, ptr.To("기간 조정 필요"))
		So(err, ShouldBeNil)
		So(fx.notifier.last(), ShouldResemble, notifyEvent{
			kind: "rejected", memberID: authorID, documentID: doc.ID, name: "이팀장", reason: "기간 조정 필요",
		})
	})

	PatchConvey("a rejected document can be resubmitted", t, func() {
		fx := newFixture()
		doc := fx.submittedDocument(model.DocumentTypeGeneral, "", leaderID)
		_, err := fx.svc.Reject(fx.ctx, fx.lineOf(doc.ID, leaderID).ID, leaderID, nil)
		So(err, ShouldBeNil)

		_, err = fx.svc.UpdateDraft(fx.ctx, doc.ID, authorID, DocumentInput{Title: "수정본", Content: "보완"})
		So(err, ShouldBeNil)
		resubmitted, err := fx.svc.SubmitDocument(fx.ctx, doc.ID, authorID, []uint{directorID})
		So(err, ShouldBeNil)
		So(resubmitted.Status, ShouldEqual, model.DocumentStatusPending)
		So(resubmitted.CompletedAt, ShouldBeNil)

		lines, _ := fx.store.ListApprovalLines(fx.ctx, doc.ID)
		So(lines, ShouldHaveLength, 1)
		So(lines[0].ApproverID, ShouldEqual, directorID)
	})
}

func TestCancelApproval(t *testing.T) {
	PatchConvey("withdrawing an untouched submission", t, func() {
		fx := newFixture()
		doc := fx.submittedDocument(model.DocumentTypeLeave, leaveContent, leaderID)

		So(errors.Is(fx.svc.CancelApproval(fx.ctx, doc.ID, leaderID), ErrForbidden), ShouldBeTrue)
		So(fx.svc.CancelApproval(fx.ctx, doc.ID, authorID), ShouldBeNil)

		stored, _ := fx.store.GetDocument(fx.ctx, doc.ID)
		So(stored.Status, ShouldEqual, model.DocumentStatusDraft)
		So(stored.SubmittedAt, ShouldBeNil)
		lines, _ := fx.store.ListApprovalLines(fx.ctx, doc.ID)
		So(lines, ShouldBeEmpty)
		schedules, _ := fx.store.ListSchedulesByDocument(fx.ctx, doc.ID)
		So(schedules[0].Status, ShouldEqual, model.ScheduleStatusDraft)
	})

	PatchConvey("partially approved documents cannot be withdrawn", t, func() {
		fx := newFixture()
		doc := fx.submittedDocument(model.DocumentTypeGeneral, "", leaderID, directorID)
		_, err := fx.svc.Approve(fx.ctx, fx.lineOf(doc.ID, leaderID).ID, leaderID, "")
		So(err, ShouldBeNil)

		So(errors.Is(fx.svc.CancelApproval(fx.ctx, doc.ID, authorID), ErrInvalidState), ShouldBeTrue)
	})

	PatchConvey("drafts cannot be withdrawn", t, func() {
		fx := newFixture()
		doc, err := fx.svc.CreateDocument(fx.ctx, authorID, DocumentInput{Type: model.DocumentTypeGeneral, Title: "초안"})
		So(err, ShouldBeNil)
		So(errors.Is(fx.svc.CancelApproval(fx.ctx, doc.ID, authorID), ErrInvalidState), ShouldBeTrue)
	})
}

func TestApprovalQueries(t *testing.T) {
	PatchConvey("pending, completed and visibility", t, func() {
		fx := newFixture()
		first := fx.submittedDocument(model.DocumentTypeGeneral, "", leaderID)
		second := fx.submittedDocument(model.DocumentTypeGeneral, "", leaderID)

		pending, err := fx.svc.PendingApprovals(fx.ctx, leaderID)
		So(err, ShouldBeNil)
		So(pending, ShouldHaveLength, 2)
		So(pending[0].DocumentID, ShouldEqual, second.ID)
		So(pending[0].Document, ShouldNotBeNil)

		_, err = fx.svc.Approve(fx.ctx, fx.lineOf(first.ID, leaderID).ID, leaderID, "")
		So(err, ShouldBeNil)

		pending, _ = fx.svc.PendingApprovals(fx.ctx, leaderID)
		So(pending, ShouldHaveLength, 1)

		completed, err := fx.svc.CompletedApprovals(fx.ctx, leaderID, "연차", ptr.To(day(2025, 3, 10)), ptr.To(day(2025, 3, 10)))
		So(err, ShouldBeNil)
		So(completed, ShouldHaveLength, 1)
		So(completed[0].DocumentID, ShouldEqual, first.ID)

		completed, _ = fx.svc.CompletedApprovals(fx.ctx, leaderID, "", ptr.To(day(2025, 3, 11)), nil)
		So(completed, ShouldBeEmpty)

		all, _ := fx.svc.ApprovalsByApprover(fx.ctx, leaderID)
		So(all, ShouldHaveLength, 2)

		line := fx.lineOf(first.ID, leaderID)
		_, err = fx.svc.ApprovalByID(fx.ctx, line.ID, authorID)
		So(err, ShouldBeNil)
		_, err = fx.svc.ApprovalByID(fx.ctx, line.ID, colleagueID)
		So(errors.Is(err, ErrForbidden), ShouldBeTrue)

		_, err = fx.svc.GetDocument(fx.ctx, first.ID, leaderID)
		So(err, ShouldBeNil)
		_, err = fx.svc.GetDocument(fx.ctx, first.ID, colleagueID)
		So(errors.Is(err, ErrForbidden), ShouldBeTrue)

		chain, err := fx.svc.DocumentApprovals(fx.ctx, first.ID, authorID)
		So(err, ShouldBeNil)
		So(chain, ShouldHaveLength, 1)
		So(chain[0].Decision, ShouldEqual, model.ApprovalDecisionApproved)
		_, err = fx.svc.DocumentApprovals(fx.ctx, first.ID, colleagueID)
		So(errors.Is(err, ErrForbidden), ShouldBeTrue)
	})
}

func TestRecentActivity(t *testing.T) {
	fx := newFixture()
	for i := 0; i < 6; i++ {
		fx.submittedDocument(model.DocumentTypeGeneral, "", leaderID)
	}
	activity, err := fx.svc.RecentActivity(fx.ctx, authorID)
	require.NoError(t, err)
	require.Len(t, activity.Documents, recentActivityLimit)
	require.Empty(t, activity.Approvals)
	require.Empty(t, activity.Schedules)

	activity, err = fx.svc.RecentActivity(fx.ctx, leaderID)
	require.NoError(t, err)
	require.Empty(t, activity.Documents)
}
