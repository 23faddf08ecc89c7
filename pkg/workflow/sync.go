package workflow

import (
	"context"
	"fmt"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/logutils"
)

// syncLinkedSchedules moves every approval-gated schedule linked to the document to status
func (s *Service) syncLinkedSchedules(ctx context.Context, tx Store, documentID uint, status model.ScheduleStatus) error {
	schedules, err := tx.ListSchedulesByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list schedules of document %d: %w", documentID, err)
	}
	for _, schedule := range schedules {
		if !schedule.Type.RequiresApproval() || schedule.Status == model.ScheduleStatusCancelled {
			continue
		}
		if schedule.Status == status {
			continue
		}
		schedule.Status = status
		if err := tx.SaveSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("sync schedule %d to %s: %w", schedule.ID, status, err)
		}
		logutils.Log.WithFields(logutils.Fields{
			"scheduleID": schedule.ID,
			"documentID": documentID,
			"status":     status,
		}).Debug("schedule synced with document")
	}
	return nil
}

// setOriginalScheduleStatus updates the schedule a cancellation document refers to.
// A schedule deleted in the meantime is skipped.
func (s *Service) setOriginalScheduleStatus(ctx context.Context, tx Store, doc *model.Document, status model.ScheduleStatus) error {
	scheduleID, ok := doc.OriginalScheduleID()
	if !ok {
		return nil
	}
	schedule, err := tx.GetSchedule(ctx, scheduleID)
	if isNotFound(err) {
		logutils.Log.WithFields(logutils.Fields{
			"scheduleID": scheduleID,
			"documentID": doc.ID,
		}).Warn("original schedule of cancellation document not found")
		return nil
	}
	if err != nil {
		return lookupError(err, "schedule", scheduleID)
	}
	schedule.Status = status
	if err := tx.SaveSchedule(ctx, schedule); err != nil {
		return fmt.Errorf("set schedule %d to %s: %w", scheduleID, status, err)
	}
	return nil
}
