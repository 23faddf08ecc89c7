package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"k8s.io/utils/ptr"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/logutils"
)

// ScheduleInput describes a schedule to create or the new values of an existing one
type ScheduleInput struct {
	Type        model.ScheduleType
	Title       string
	Description string
	Location    string
	StartDate   time.Time
	EndDate     time.Time
	StartTime   string
	EndTime     string
	DaysUsed    *float64
	// Status is honoured only for schedules that neither need approval nor follow the clock.
	// Approval-gated schedules without an approver start as drafts.
	Status model.ScheduleStatus
	// ApproverID requests approval for approval-gated types
	ApproverID *uint
}

func (in *ScheduleInput) validate() error {
	if !in.Type.Valid() {
		return fmt.Errorf("unknown schedule type %q: %w", in.Type, ErrInvalidInput)
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("schedule title is required: %w", ErrInvalidInput)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return fmt.Errorf("start and end date are required: %w", ErrInvalidInput)
	}
	if in.EndDate.Before(in.StartDate) {
		return fmt.Errorf("end date before start date: %w", ErrInvalidInput)
	}
	for _, clock := range []string{in.StartTime, in.EndTime} {
		if clock == "" {
			continue
		}
		if _, _, _, err := parseClock(clock); err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidInput)
		}
	}
	return nil
}

// ScheduleQuery filters listed schedules. The first applicable filter wins:
// member, department with dates, division with dates, dates, everything.
type ScheduleQuery struct {
	MemberID     *uint
	DepartmentID *uint
	DivisionID   *uint
	StartDate    *time.Time
	EndDate      *time.Time
}

// lockedStatuses returns the statuses in which a schedule can no longer be edited or deleted
func lockedStatuses(t model.ScheduleType) []model.ScheduleStatus {
	switch {
	case t.RequiresApproval():
		return []model.ScheduleStatus{
			model.ScheduleStatusCancelled,
			model.ScheduleStatusSubmitted,
			model.ScheduleStatusCancelPending,
			model.ScheduleStatusApproved,
		}
	case t.IsTimeWindow():
		return []model.ScheduleStatus{
			model.ScheduleStatusCancelled,
			model.ScheduleStatusCompleted,
		}
	default:
		return nil
	}
}

// checkConflicts rejects overlapping schedules of the member and double-booked security requests.
// Meetings and business trips only overlap when their time slots do.
func (s *Service) checkConflicts(ctx context.Context, tx Store, memberID uint, candidate *model.Schedule) error {
	from, to := candidate.StartDate, candidate.EndDate
	duplicates, err := tx.ListSchedules(ctx, ScheduleFilter{
		MemberID: ptr.To(memberID),
		From:     &from,
		To:       &to,
		Types:    []model.ScheduleType{candidate.Type},
		ExcludeStatuses: []model.ScheduleStatus{
			model.ScheduleStatusCancelled,
			model.ScheduleStatusRejected,
		},
		ExcludeID: candidate.ID,
	})
	if err != nil {
		return fmt.Errorf("list overlapping schedules: %w", err)
	}
	if candidate.Type.IsTimeWindow() {
		duplicates = lo.Filter(duplicates, func(other *model.Schedule, _ int) bool {
			return s.windowsOverlap(candidate, other)
		})
	}
	if len(duplicates) > 0 {
		return fmt.Errorf("member %d already has a %s schedule (%d) in this period: %w",
			memberID, candidate.Type, duplicates[0].ID, ErrDuplicate)
	}

	if candidate.Type != model.ScheduleTypeSecurityRequest {
		return nil
	}
	approved, err := tx.ListSchedules(ctx, ScheduleFilter{
		From:      &from,
		To:        &to,
		Types:     []model.ScheduleType{model.ScheduleTypeSecurityRequest},
		Statuses:  []model.ScheduleStatus{model.ScheduleStatusApproved},
		ExcludeID: candidate.ID,
	})
	if err != nil {
		return fmt.Errorf("list approved security requests: %w", err)
	}
	for _, other := range approved {
		if s.windowsOverlap(candidate, other) {
			return fmt.Errorf("security request %d already holds this time slot: %w", other.ID, ErrDuplicate)
		}
	}
	return nil
}

func (s *Service) windowsOverlap(a, b *model.Schedule) bool {
	aStart, aEnd, err := scheduleWindow(a, s.loc)
	if err != nil {
		return false
	}
	bStart, bEnd, err := scheduleWindow(b, s.loc)
	if err != nil {
		return false
	}
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// CreateSchedule stores a schedule of the member. Approval-gated schedules with an approver
// get a PENDING document with a single approval line; meetings and business trips get the
// status of their time window.
func (s *Service) CreateSchedule(ctx context.Context, memberID uint, in ScheduleInput) (*model.Schedule, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	schedule := &model.Schedule{
		MemberID:    memberID,
		Type:        in.Type,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Location:    in.Location,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		DaysUsed:    ptr.Deref(in.DaysUsed, 0),
	}

	err := s.transaction(ctx, func(tx Store, after *hooks) error {
		if err := s.checkConflicts(ctx, tx, memberID, schedule); err != nil {
			return err
		}

		switch {
		case in.Type.IsTimeWindow():
			schedule.Status = TimeWindowStatus(schedule, s.now(), s.loc)
		case in.Type.RequiresApproval() && in.ApproverID != nil:
			doc, err := s.requestScheduleApproval(ctx, tx, memberID, *in.ApproverID, schedule)
			if err != nil {
				return err
			}
			schedule.DocumentID = ptr.To(doc.ID)
			schedule.Status = model.ScheduleStatusSubmitted
			approverID := *in.ApproverID
			after.add(func(ctx context.Context) { s.notifier.ApprovalRequested(ctx, approverID, doc) })
		case !in.Type.RequiresApproval() && in.Status != "":
			schedule.Status = in.Status
		default:
			schedule.Status = model.ScheduleStatusDraft
		}

		if err := tx.CreateSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("create schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logutils.Log.WithFields(logutils.Fields{
		"scheduleID": schedule.ID,
		"memberID":   memberID,
		"type":       schedule.Type,
		"status":     schedule.Status,
	}).Info("schedule created")
	return schedule, nil
}

// requestScheduleApproval creates the document and approval line for a new schedule
func (s *Service) requestScheduleApproval(
	ctx context.Context,
	tx Store,
	memberID, approverID uint,
	schedule *model.Schedule,
) (*model.Document, error) {
	doc := &model.Document{
		Type:        schedule.Type.DocumentType(),
		AuthorID:    memberID,
		Title:       schedule.Title,
		Content:     schedule.Description,
		Status:      model.DocumentStatusPending,
		SubmittedAt: ptr.To(s.now()),
	}
	if err := tx.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create approval document: %w", err)
	}
	lines, err := newApprovalLines(ctx, tx, doc.ID, memberID, []uint{approverID})
	if err != nil {
		return nil, err
	}
	if err := tx.CreateApprovalLines(ctx, lines); err != nil {
		return nil, fmt.Errorf("create approval line of document %d: %w", doc.ID, err)
	}
	return doc, nil
}

func (s *Service) ownedSchedule(ctx context.Context, tx Store, scheduleID, memberID uint) (*model.Schedule, error) {
	schedule, err := tx.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, lookupError(err, "schedule", scheduleID)
	}
	if schedule.MemberID != memberID {
		return nil, fmt.Errorf("member %d does not own schedule %d: %w", memberID, scheduleID, ErrForbidden)
	}
	return schedule, nil
}

func checkEditable(schedule *model.Schedule) error {
	if lo.Contains(lockedStatuses(schedule.Type), schedule.Status) {
		return fmt.Errorf("%s schedule %d is %s: %w", schedule.Type, schedule.ID, schedule.Status, ErrInvalidState)
	}
	return nil
}

// UpdateSchedule changes a schedule of the member. The type is kept.
func (s *Service) UpdateSchedule(ctx context.Context, scheduleID, memberID uint, in ScheduleInput) (*model.Schedule, error) {
	var schedule *model.Schedule
	err := s.transaction(ctx, func(tx Store, _ *hooks) error {
		var err error
		schedule, err = s.ownedSchedule(ctx, tx, scheduleID, memberID)
		if err != nil {
			return err
		}
		if err := checkEditable(schedule); err != nil {
			return err
		}
		in.Type = schedule.Type
		if err := in.validate(); err != nil {
			return err
		}

		schedule.Title = strings.TrimSpace(in.Title)
		schedule.Description = in.Description
		schedule.Location = in.Location
		schedule.StartDate = in.StartDate
		schedule.EndDate = in.EndDate
		schedule.StartTime = in.StartTime
		schedule.EndTime = in.EndTime
		if in.DaysUsed != nil {
			schedule.DaysUsed = *in.DaysUsed
		}
		switch {
		case schedule.Type.IsTimeWindow():
			schedule.Status = TimeWindowStatus(schedule, s.now(), s.loc)
		case !schedule.Type.RequiresApproval() && in.Status != "":
			schedule.Status = in.Status
		}

		if err := s.checkConflicts(ctx, tx, memberID, schedule); err != nil {
			return err
		}
		if err := tx.SaveSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("update schedule %d: %w", scheduleID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// DeleteSchedule removes a schedule of the member. Schedules under or after approval must be
// withdrawn or cancelled instead.
func (s *Service) DeleteSchedule(ctx context.Context, scheduleID, memberID uint) error {
	return s.transaction(ctx, func(tx Store, _ *hooks) error {
		schedule, err := s.ownedSchedule(ctx, tx, scheduleID, memberID)
		if err != nil {
			return err
		}
		if schedule.Type.RequiresApproval() {
			if err := checkEditable(schedule); err != nil {
				return err
			}
		}
		return tx.DeleteSchedule(ctx, scheduleID)
	})
}

// GetSchedule returns a schedule. An approval-gated schedule takes over the status of its
// document, and the correction is saved.
func (s *Service) GetSchedule(ctx context.Context, scheduleID uint) (*model.Schedule, error) {
	var schedule *model.Schedule
	err := s.transaction(ctx, func(tx Store, _ *hooks) error {
		var err error
		schedule, err = tx.GetSchedule(ctx, scheduleID)
		if err != nil {
			return lookupError(err, "schedule", scheduleID)
		}
		if schedule.Status == model.ScheduleStatusCancelled || schedule.Status == model.ScheduleStatusCancelPending {
			return nil
		}
		if !schedule.Type.RequiresApproval() || schedule.DocumentID == nil {
			return nil
		}
		doc, err := tx.GetDocument(ctx, *schedule.DocumentID)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return lookupError(err, "document", *schedule.DocumentID)
		}
		status := model.ScheduleStatusFromDocument(doc.Status)
		if status == schedule.Status {
			return nil
		}
		schedule.Status = status
		if err := tx.SaveSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("sync schedule %d: %w", scheduleID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// ListSchedules returns schedules matching the first applicable filter of the query
func (s *Service) ListSchedules(ctx context.Context, q ScheduleQuery) ([]*model.Schedule, error) {
	hasRange := q.StartDate != nil && q.EndDate != nil
	filter := ScheduleFilter{}
	switch {
	case q.MemberID != nil:
		filter.MemberID = q.MemberID
	case q.DepartmentID != nil && hasRange:
		filter.DepartmentID = q.DepartmentID
		filter.From, filter.To = q.StartDate, q.EndDate
	case q.DivisionID != nil && hasRange:
		filter.DivisionID = q.DivisionID
		filter.From, filter.To = q.StartDate, q.EndDate
	case hasRange:
		filter.From, filter.To = q.StartDate, q.EndDate
	}
	return s.store.ListSchedules(ctx, filter)
}
