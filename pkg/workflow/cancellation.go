package workflow

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"k8s.io/utils/ptr"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/logutils"
)

const cancellationContentPrefix = "원본 일정 취소 요청\n\n"

// RequestCancellation asks the approvers of an approved schedule to cancel it. A cancellation
// document copying the original approval chain is created and the schedule waits in PENDING.
func (s *Service) RequestCancellation(ctx context.Context, scheduleID, memberID uint) (*model.Document, error) {
	var cancellation *model.Document
	err := s.transaction(ctx, func(tx Store, after *hooks) error {
		schedule, err := s.ownedSchedule(ctx, tx, scheduleID, memberID)
		if err != nil {
			return err
		}
		if !schedule.Type.RequiresApproval() {
			return fmt.Errorf("%s schedule %d does not need approval to cancel: %w", schedule.Type, scheduleID, ErrInvalidState)
		}
		if schedule.Status != model.ScheduleStatusApproved {
			return fmt.Errorf("schedule %d is %s: %w", scheduleID, schedule.Status, ErrInvalidState)
		}
		if schedule.DocumentID == nil {
			return fmt.Errorf("schedule %d has no approval document: %w", scheduleID, ErrInvalidState)
		}
		original, err := tx.GetDocument(ctx, *schedule.DocumentID)
		if err != nil {
			return lookupError(err, "document", *schedule.DocumentID)
		}
		originalLines, err := tx.ListApprovalLines(ctx, original.ID)
		if err != nil {
			return fmt.Errorf("list approval lines of document %d: %w", original.ID, err)
		}
		if len(originalLines) == 0 {
			return fmt.Errorf("document %d has no approval lines: %w", original.ID, ErrInvalidState)
		}

		cancellation = &model.Document{
			Type:        original.Type,
			AuthorID:    memberID,
			Title:       model.CancellationTitlePrefix + schedule.Title,
			Content:     cancellationContentPrefix + schedule.Description,
			Status:      model.DocumentStatusPending,
			Metadata:    datatypes.NewJSONType(model.DocumentMetadata{OriginalScheduleID: ptr.To(schedule.ID)}),
			SubmittedAt: ptr.To(s.now()),
		}
		if err := tx.CreateDocument(ctx, cancellation); err != nil {
			return fmt.Errorf("create cancellation document: %w", err)
		}

		lines := lo.Map(originalLines, func(l *model.ApprovalLine, _ int) *model.ApprovalLine {
			return &model.ApprovalLine{
				DocumentID:       cancellation.ID,
				StepOrder:        l.StepOrder,
				ApproverID:       l.ApproverID,
				ApproverName:     l.ApproverName,
				ApproverPosition: l.ApproverPosition,
				Decision:         model.ApprovalDecisionPending,
			}
		})
		if err := tx.CreateApprovalLines(ctx, lines); err != nil {
			return fmt.Errorf("create approval lines of cancellation document %d: %w", cancellation.ID, err)
		}

		schedule.Status = model.ScheduleStatusCancelPending
		if err := tx.SaveSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("mark schedule %d cancel pending: %w", scheduleID, err)
		}

		first := lo.MinBy(lines, func(a, b *model.ApprovalLine) bool { return a.StepOrder < b.StepOrder })
		doc := cancellation
		after.add(func(ctx context.Context) { s.notifier.ApprovalRequested(ctx, first.ApproverID, doc) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	logutils.Log.WithFields(logutils.Fields{
		"scheduleID": scheduleID,
		"documentID": cancellation.ID,
	}).Info("schedule cancellation requested")
	return cancellation, nil
}

// WithdrawCancellation takes back a pending cancellation request. The cancellation document
// is deleted and the schedule is APPROVED again.
func (s *Service) WithdrawCancellation(ctx context.Context, scheduleID, memberID uint) error {
	return s.transaction(ctx, func(tx Store, _ *hooks) error {
		schedule, err := s.ownedSchedule(ctx, tx, scheduleID, memberID)
		if err != nil {
			return err
		}
		if schedule.Status != model.ScheduleStatusCancelPending {
			return fmt.Errorf("schedule %d is %s: %w", scheduleID, schedule.Status, ErrInvalidState)
		}
		docs, err := tx.FindCancellationDocuments(ctx, scheduleID)
		if err != nil {
			return fmt.Errorf("find cancellation documents of schedule %d: %w", scheduleID, err)
		}
		if len(docs) == 0 {
			return fmt.Errorf("no cancellation document for schedule %d: %w", scheduleID, ErrNotFound)
		}
		cancellation := docs[0]
		if cancellation.Status == model.DocumentStatusApproved {
			return fmt.Errorf("cancellation document %d is already approved: %w", cancellation.ID, ErrInvalidState)
		}

		if err := tx.DeleteApprovalLines(ctx, cancellation.ID); err != nil {
			return fmt.Errorf("delete approval lines of document %d: %w", cancellation.ID, err)
		}
		if err := tx.DeleteDocument(ctx, cancellation.ID); err != nil {
			return fmt.Errorf("delete cancellation document %d: %w", cancellation.ID, err)
		}
		schedule.Status = model.ScheduleStatusApproved
		if err := tx.SaveSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("restore schedule %d: %w", scheduleID, err)
		}
		logutils.Log.WithFields(logutils.Fields{
			"scheduleID": scheduleID,
			"documentID": cancellation.ID,
		}).Info("schedule cancellation withdrawn")
		return nil
	})
}
