package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"k8s.io/utils/ptr"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/logutils"
)

// DocumentInput is the editable part of a document
type DocumentInput struct {
	Type    model.DocumentType
	Title   string
	Content string
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("document title is required: %w", ErrInvalidInput)
	}
	return nil
}

// CreateDocument stores a new draft
func (s *Service) CreateDocument(ctx context.Context, authorID uint, in DocumentInput) (*model.Document, error) {
	if in.Type == "" {
		return nil, fmt.Errorf("document type is required: %w", ErrInvalidInput)
	}
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	doc := &model.Document{
		Type:     in.Type,
		AuthorID: authorID,
		Title:    strings.TrimSpace(in.Title),
		Content:  in.Content,
		Status:   model.DocumentStatusDraft,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// UpdateDraft changes title and content of a draft or rejected document of the author.
// The document type never changes.
func (s *Service) UpdateDraft(ctx context.Context, documentID, authorID uint, in DocumentInput) (*model.Document, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	doc, err := s.authoredDocument(ctx, s.store, documentID, authorID)
	if err != nil {
		return nil, err
	}
	if !doc.Status.Editable() {
		return nil, fmt.Errorf("document %d is %s: %w", documentID, doc.Status, ErrInvalidState)
	}
	if doc.IsCancellation() {
		return nil, fmt.Errorf("cancellation document %d cannot be edited: %w", documentID, ErrInvalidState)
	}
	doc.Title = strings.TrimSpace(in.Title)
	doc.Content = in.Content
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document %d: %w", documentID, err)
	}
	return doc, nil
}

func (s *Service) authoredDocument(ctx context.Context, st Store, documentID, authorID uint) (*model.Document, error) {
	doc, err := st.GetDocument(ctx, documentID)
	if err != nil {
		return nil, lookupError(err, "document", documentID)
	}
	if doc.AuthorID != authorID {
		return nil, fmt.Errorf("member %d is not the author of document %d: %w", authorID, documentID, ErrForbidden)
	}
	return doc, nil
}

// newApprovalLines builds one pending line per approver in the given order
func newApprovalLines(ctx context.Context, tx Store, documentID, authorID uint, approverIDs []uint) ([]*model.ApprovalLine, error) {
	approverIDs = lo.Uniq(approverIDs)
	if len(approverIDs) == 0 {
		return nil, fmt.Errorf("at least one approver is required: %w", ErrInvalidInput)
	}
	lines := make([]*model.ApprovalLine, 0, len(approverIDs))
	for i, approverID := range approverIDs {
		if approverID == authorID {
			return nil, fmt.Errorf("author cannot approve own document: %w", ErrInvalidInput)
		}
		approver, err := tx.GetMember(ctx, approverID)
		if isNotFound(err) {
			return nil, fmt.Errorf("approver %d not found: %w", approverID, ErrInvalidInput)
		}
		if err != nil {
			return nil, fmt.Errorf("get approver %d: %w", approverID, err)
		}
		lines = append(lines, &model.ApprovalLine{
			DocumentID:       documentID,
			StepOrder:        i + 1,
			ApproverID:       approver.ID,
			ApproverName:     approver.Name,
			ApproverPosition: approver.Position,
			Decision:         model.ApprovalDecisionPending,
		})
	}
	return lines, nil
}

// SubmitDocument sends a draft or rejected document to the approvers, in order.
// A leave document carrying schedule information gets its schedule created.
func (s *Service) SubmitDocument(ctx context.Context, documentID, authorID uint, approverIDs []uint) (*model.Document, error) {
	var doc *model.Document
	err := s.transaction(ctx, func(tx Store, after *hooks) error {
		var err error
		doc, err = s.authoredDocument(ctx, tx, documentID, authorID)
		if err != nil {
			return err
		}
		if !doc.Status.Editable() {
			return fmt.Errorf("document %d is %s: %w", documentID, doc.Status, ErrInvalidState)
		}
		if doc.IsCancellation() {
			return fmt.Errorf("cancellation document %d cannot be resubmitted: %w", documentID, ErrInvalidState)
		}

		lines, err := newApprovalLines(ctx, tx, doc.ID, authorID, approverIDs)
		if err != nil {
			return err
		}
		if err := tx.DeleteApprovalLines(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete previous approval lines of document %d: %w", doc.ID, err)
		}
		if err := tx.CreateApprovalLines(ctx, lines); err != nil {
			return fmt.Errorf("create approval lines of document %d: %w", doc.ID, err)
		}

		doc.Status = model.DocumentStatusPending
		doc.SubmittedAt = ptr.To(s.now())
		doc.CompletedAt = nil
		if err := tx.SaveDocument(ctx, doc); err != nil {
			return fmt.Errorf("submit document %d: %w", doc.ID, err)
		}

		linked, err := tx.ListSchedulesByDocument(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("list schedules of document %d: %w", doc.ID, err)
		}
		if len(linked) > 0 {
			if err := s.syncLinkedSchedules(ctx, tx, doc.ID, model.ScheduleStatusSubmitted); err != nil {
				return err
			}
		} else if doc.Type.IsLeave() && HasLeaveInfo(doc.Content) {
			if _, err := s.scheduleFromLeaveDocument(ctx, tx, doc); err != nil {
				return err
			}
		}

		doc.ApprovalLines = lo.Map(lines, func(l *model.ApprovalLine, _ int) model.ApprovalLine { return *l })
		first := lines[0].ApproverID
		after.add(func(ctx context.Context) { s.notifier.ApprovalRequested(ctx, first, doc) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	logutils.Log.WithFields(logutils.Fields{
		"documentID": documentID,
		"approvers":  len(doc.ApprovalLines),
	}).Info("document submitted")
	return doc, nil
}

// scheduleFromLeaveDocument creates the SUBMITTED schedule described by a leave document
func (s *Service) scheduleFromLeaveDocument(ctx context.Context, tx Store, doc *model.Document) (*model.Schedule, error) {
	if !doc.Type.IsLeave() {
		return nil, fmt.Errorf("document %d of type %s is not a leave document: %w", doc.ID, doc.Type, ErrInvalidInput)
	}
	info, err := ParseLeaveInfo(doc.Content, s.loc)
	if err != nil {
		return nil, err
	}
	if !info.ScheduleType.Valid() {
		return nil, fmt.Errorf("unknown schedule type %q: %w", info.ScheduleType, ErrInvalidInput)
	}
	if !info.ScheduleType.RequiresApproval() {
		return nil, fmt.Errorf("leave document %d cannot carry a %s schedule: %w", doc.ID, info.ScheduleType, ErrInvalidInput)
	}
	schedule := &model.Schedule{
		MemberID:    doc.AuthorID,
		DocumentID:  ptr.To(doc.ID),
		Type:        info.ScheduleType,
		Title:       doc.Title,
		Description: StripLeaveInfo(doc.Content),
		StartDate:   info.StartDate,
		EndDate:     info.EndDate,
		DaysUsed:    info.DaysUsed,
		Status:      model.ScheduleStatusSubmitted,
	}
	if err := tx.CreateSchedule(ctx, schedule); err != nil {
		return nil, fmt.Errorf("create schedule from document %d: %w", doc.ID, err)
	}
	return schedule, nil
}

// GetDocument returns a document with its approval chain to the author or an approver
func (s *Service) GetDocument(ctx context.Context, documentID, viewerID uint) (*model.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, lookupError(err, "document", documentID)
	}
	lines, err := s.store.ListApprovalLines(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list approval lines of document %d: %w", documentID, err)
	}
	isApprover := lo.ContainsBy(lines, func(l *model.ApprovalLine) bool { return l.ApproverID == viewerID })
	if doc.AuthorID != viewerID && !isApprover {
		return nil, fmt.Errorf("member %d cannot view document %d: %w", viewerID, documentID, ErrForbidden)
	}
	doc.ApprovalLines = lo.Map(lines, func(l *model.ApprovalLine, _ int) model.ApprovalLine { return *l })
	return doc, nil
}

// MyDocuments returns the documents written by the author, newest first
func (s *Service) MyDocuments(ctx context.Context, authorID uint) ([]*model.Document, error) {
	return s.store.ListDocumentsByAuthor(ctx, authorID, 0)
}

// DeleteDocument removes a draft or rejected document and unlinks its schedules
func (s *Service) DeleteDocument(ctx context.Context, documentID, authorID uint) error {
	return s.transaction(ctx, func(tx Store, _ *hooks) error {
		doc, err := s.authoredDocument(ctx, tx, documentID, authorID)
		if err != nil {
			return err
		}
		if !doc.Status.Editable() {
			return fmt.Errorf("document %d is %s: %w", documentID, doc.Status, ErrInvalidState)
		}
		schedules, err := tx.ListSchedulesByDocument(ctx, documentID)
		if err != nil {
			return fmt.Errorf("list schedules of document %d: %w", documentID, err)
		}
		for _, schedule := range schedules {
			schedule.DocumentID = nil
			if err := tx.SaveSchedule(ctx, schedule); err != nil {
				return fmt.Errorf("unlink schedule %d: %w", schedule.ID, err)
			}
		}
		if err := tx.DeleteApprovalLines(ctx, documentID); err != nil {
			return fmt.Errorf("delete approval lines of document %d: %w", documentID, err)
		}
		return tx.DeleteDocument(ctx, documentID)
	})
}
