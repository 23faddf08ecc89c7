package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"k8s.io/utils/ptr"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/logutils"
)

// fallbackApproverName is shown when the approver account no longer resolves
const fallbackApproverName = "관리자"

// PendingApprovals returns the lines waiting for the approver's decision
func (s *Service) PendingApprovals(ctx context.Context, approverID uint) ([]*model.ApprovalLine, error) {
	return s.store.ListApprovalLinesByApprover(ctx, ApprovalFilter{
		ApproverID:     approverID,
		Decisions:      []model.ApprovalDecision{model.ApprovalDecisionPending},
		DocumentStatus: ptr.To(model.DocumentStatusPending),
	})
}

// ApprovalsByApprover returns every line assigned to the approver
func (s *Service) ApprovalsByApprover(ctx context.Context, approverID uint) ([]*model.ApprovalLine, error) {
	return s.store.ListApprovalLinesByApprover(ctx, ApprovalFilter{ApproverID: approverID})
}

// DocumentApprovals returns the approval chain of a document visible to the viewer
func (s *Service) DocumentApprovals(ctx context.Context, documentID, viewerID uint) ([]*model.ApprovalLine, error) {
	doc, err := s.GetDocument(ctx, documentID, viewerID)
	if err != nil {
		return nil, err
	}
	return lo.ToSlicePtr(doc.ApprovalLines), nil
}

// ApprovalByID returns a line visible to its approver and the document author
func (s *Service) ApprovalByID(ctx context.Context, lineID, viewerID uint) (*model.ApprovalLine, error) {
	line, err := s.store.GetApprovalLine(ctx, lineID)
	if err != nil {
		return nil, lookupError(err, "approval line", lineID)
	}
	if line.ApproverID == viewerID {
		return line, nil
	}
	doc, err := s.store.GetDocument(ctx, line.DocumentID)
	if err != nil {
		return nil, lookupError(err, "document", line.DocumentID)
	}
	if doc.AuthorID != viewerID {
		return nil, fmt.Errorf("member %d cannot view approval line %d: %w", viewerID, lineID, ErrForbidden)
	}
	line.Document = doc
	return line, nil
}

// CompletedApprovals returns decided lines of the approver. Dates bound the decision day inclusively.
func (s *Service) CompletedApprovals(
	ctx context.Context,
	approverID uint,
	title string,
	startDate, endDate *time.Time,
) ([]*model.ApprovalLine, error) {
	filter := ApprovalFilter{
		ApproverID:      approverID,
		Decisions:       []model.ApprovalDecision{model.ApprovalDecisionApproved, model.ApprovalDecisionRejected},
		Title:           title,
		RecentlyDecided: true,
	}
	if startDate != nil {
		filter.DecidedFrom = ptr.To(startOfDay(*startDate, s.loc))
	}
	if endDate != nil {
		filter.DecidedTo = ptr.To(startOfDay(*endDate, s.loc).AddDate(0, 0, 1).Add(-time.Nanosecond))
	}
	return s.store.ListApprovalLinesByApprover(ctx, filter)
}

// loadDecidableLine checks that the approver may decide the line now
func (s *Service) loadDecidableLine(ctx context.Context, tx Store, lineID, approverID uint) (
	*model.ApprovalLine, *model.Document, error) {
	line, err := tx.GetApprovalLine(ctx, lineID)
	if err != nil {
		return nil, nil, lookupError(err, "approval line", lineID)
	}
	if line.ApproverID != approverID {
		return nil, nil, fmt.Errorf("member %d is not the approver of line %d: %w", approverID, lineID, ErrForbidden)
	}
	if line.Decision != model.ApprovalDecisionPending {
		return nil, nil, fmt.Errorf("approval line %d already %s: %w", lineID, line.Decision, ErrInvalidState)
	}
	doc, err := tx.GetDocument(ctx, line.DocumentID)
	if err != nil {
		return nil, nil, lookupError(err, "document", line.DocumentID)
	}
	if doc.Status != model.DocumentStatusPending {
		return nil, nil, fmt.Errorf("document %d is %s: %w", doc.ID, doc.Status, ErrInvalidState)
	}
	return line, doc, nil
}

func (s *Service) approverName(ctx context.Context, tx Store, line *model.ApprovalLine) string {
	if member, err := tx.GetMember(ctx, line.ApproverID); err == nil && member.Name != "" {
		return member.Name
	}
	if line.ApproverName != "" {
		return line.ApproverName
	}
	return fallbackApproverName
}

// Approve records an approval. The document is approved once every line is approved,
// which cancels the original schedule of a cancellation document or approves the
// schedules linked to a regular one.
func (s *Service) Approve(ctx context.Context, lineID, approverID uint, comment string) (*model.ApprovalLine, error) {
	var result *model.ApprovalLine
	err := s.transaction(ctx, func(tx Store, after *hooks) error {
		line, doc, err := s.loadDecidableLine(ctx, tx, lineID, approverID)
		if err != nil {
			return err
		}

		now := s.now()
		line.Decision = model.ApprovalDecisionApproved
		line.Comment = comment
		line.DecidedAt = ptr.To(now)
		if err := tx.SaveApprovalLine(ctx, line); err != nil {
			return fmt.Errorf("save approval line %d: %w", line.ID, err)
		}
		result = line

		lines, err := tx.ListApprovalLines(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("list approval lines of document %d: %w", doc.ID, err)
		}
		pending := lo.Filter(lines, func(l *model.ApprovalLine, _ int) bool {
			return l.Decision != model.ApprovalDecisionApproved
		})
		if len(pending) > 0 {
			next := lo.MinBy(pending, func(a, b *model.ApprovalLine) bool { return a.StepOrder < b.StepOrder })
			if next.Decision == model.ApprovalDecisionPending {
				after.add(func(ctx context.Context) { s.notifier.ApprovalRequested(ctx, next.ApproverID, doc) })
			}
			return nil
		}

		doc.Status = model.DocumentStatusApproved
		doc.CompletedAt = ptr.To(now)
		if err := tx.SaveDocument(ctx, doc); err != nil {
			return fmt.Errorf("approve document %d: %w", doc.ID, err)
		}
		if doc.IsCancellation() {
			if err := s.setOriginalScheduleStatus(ctx, tx, doc, model.ScheduleStatusCancelled); err != nil {
				return err
			}
		} else if err := s.syncLinkedSchedules(ctx, tx, doc.ID, model.ScheduleStatusApproved); err != nil {
			return err
		}

		name := s.approverName(ctx, tx, line)
		after.add(func(ctx context.Context) { s.notifier.ApprovalApproved(ctx, doc, name) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	logutils.Log.WithFields(logutils.Fields{
		"lineID":     lineID,
		"approverID": approverID,
	}).Info("approval line approved")
	return result, nil
}

// Reject records a rejection, which rejects the whole document. A rejected cancellation
// restores its original schedule to APPROVED.
func (s *Service) Reject(ctx context.Context, lineID, approverID uint, comment *string) (*model.ApprovalLine, error) {
	reason := ptr.Deref(comment, "")
	var result *model.ApprovalLine
	err := s.transaction(ctx, func(tx Store, after *hooks) error {
		line, doc, err := s.loadDecidableLine(ctx, tx, lineID, approverID)
		if err != nil {
			return err
		}

		now := s.now()
		line.Decision = model.ApprovalDecisionRejected
		line.Comment = reason
		line.DecidedAt = ptr.To(now)
		if err := tx.SaveApprovalLine(ctx, line); err != nil {
			return fmt.Errorf("save approval line %d: %w", line.ID, err)
		}
		result = line

		doc.Status = model.DocumentStatusRejected
		doc.CompletedAt = ptr.To(now)
		if err := tx.SaveDocument(ctx, doc); err != nil {
			return fmt.Errorf("reject document %d: %w", doc.ID, err)
		}
		if doc.IsCancellation() {
			if err := s.setOriginalScheduleStatus(ctx, tx, doc, model.ScheduleStatusApproved); err != nil {
				return err
			}
		} else if err := s.syncLinkedSchedules(ctx, tx, doc.ID, model.ScheduleStatusRejected); err != nil {
			return err
		}

		name := s.approverName(ctx, tx, line)
		after.add(func(ctx context.Context) { s.notifier.ApprovalRejected(ctx, doc, name, reason) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	logutils.Log.WithFields(logutils.Fields{
		"lineID":     lineID,
		"approverID": approverID,
	}).Info("approval line rejected")
	return result, nil
}

// CancelApproval lets the author take back a submitted document before anyone approved it.
// The document returns to DRAFT without approval lines. Withdrawing a cancellation document
// deletes it and restores the original schedule.
func (s *Service) CancelApproval(ctx context.Context, documentID, authorID uint) error {
	return s.transaction(ctx, func(tx Store, _ *hooks) error {
		doc, err := tx.GetDocument(ctx, documentID)
		if err != nil {
			return lookupError(err, "document", documentID)
		}
		if doc.AuthorID != authorID {
			return fmt.Errorf("member %d is not the author of document %d: %w", authorID, documentID, ErrForbidden)
		}
		if doc.Status != model.DocumentStatusPending {
			return fmt.Errorf("document %d is %s: %w", documentID, doc.Status, ErrInvalidState)
		}
		lines, err := tx.ListApprovalLines(ctx, documentID)
		if err != nil {
			return fmt.Errorf("list approval lines of document %d: %w", documentID, err)
		}
		if lo.ContainsBy(lines, func(l *model.ApprovalLine) bool { return l.Decision == model.ApprovalDecisionApproved }) {
			return fmt.Errorf("document %d already has approvals: %w", documentID, ErrInvalidState)
		}

		if err := tx.DeleteApprovalLines(ctx, documentID); err != nil {
			return fmt.Errorf("delete approval lines of document %d: %w", documentID, err)
		}

		if doc.IsCancellation() {
			if err := s.setOriginalScheduleStatus(ctx, tx, doc, model.ScheduleStatusApproved); err != nil {
				return err
			}
			if err := tx.DeleteDocument(ctx, documentID); err != nil {
				return fmt.Errorf("delete cancellation document %d: %w", documentID, err)
			}
			return nil
		}

		doc.Status = model.DocumentStatusDraft
		doc.SubmittedAt = nil
		if err := tx.SaveDocument(ctx, doc); err != nil {
			return fmt.Errorf("reset document %d to draft: %w", documentID, err)
		}
		return s.syncLinkedSchedules(ctx, tx, documentID, model.ScheduleStatusDraft)
	})
}
