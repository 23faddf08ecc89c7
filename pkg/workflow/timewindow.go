package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/logutils"
)

var clockLayouts = []string{"15:04", "15:04:05"}

// parseClock parses HH:MM (or HH:MM:SS) into hour, minute and second
func parseClock(value string) (h, m, sec int, err error) {
	for _, layout := range clockLayouts {
		t, parseErr := time.Parse(layout, value)
		if parseErr == nil {
			return t.Hour(), t.Minute(), t.Second(), nil
		}
		err = parseErr
	}
	return 0, 0, 0, fmt.Errorf("invalid time %q: %w", value, err)
}

// atClock combines the calendar day of date with a wall clock in loc
func atClock(date time.Time, h, m, sec int, loc *time.Location) time.Time {
	y, mo, d := date.Date()
	return time.Date(y, mo, d, h, m, sec, 0, loc)
}

func startOfDay(date time.Time, loc *time.Location) time.Time {
	return atClock(date, 0, 0, 0, loc)
}

// scheduleWindow returns the instants a schedule starts and ends at
func scheduleWindow(schedule *model.Schedule, loc *time.Location) (start, end time.Time, err error) {
	start = startOfDay(schedule.StartDate, loc)
	if schedule.StartTime != "" {
		h, m, sec, err := parseClock(schedule.StartTime)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = atClock(schedule.StartDate, h, m, sec, loc)
	}
	end = atClock(schedule.EndDate, 23, 59, 59, loc)
	if schedule.EndTime != "" {
		h, m, sec, err := parseClock(schedule.EndTime)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = atClock(schedule.EndDate, h, m, sec, loc)
	}
	return start, end, nil
}

// TimeWindowStatus derives the status of a meeting or business trip from the clock.
// Schedules with unreadable times stay RESERVED.
func TimeWindowStatus(schedule *model.Schedule, now time.Time, loc *time.Location) model.ScheduleStatus {
	start, end, err := scheduleWindow(schedule, loc)
	if err != nil {
		return model.ScheduleStatusReserved
	}
	switch {
	case now.Before(start):
		return model.ScheduleStatusReserved
	case now.After(end):
		return model.ScheduleStatusCompleted
	default:
		return model.ScheduleStatusInProgress
	}
}

// RefreshTimeWindowStatuses recomputes the status of open meetings and business trips
// and returns how many schedules changed.
func (s *Service) RefreshTimeWindowStatuses(ctx context.Context) (int, error) {
	now := s.now()
	updated := 0
	err := s.transaction(ctx, func(tx Store, _ *hooks) error {
		schedules, err := tx.ListSchedules(ctx, ScheduleFilter{
			Types: []model.ScheduleType{model.ScheduleTypeMeeting, model.ScheduleTypeBusinessTrip},
			ExcludeStatuses: []model.ScheduleStatus{
				model.ScheduleStatusCompleted,
				model.ScheduleStatusCancelled,
			},
		})
		if err != nil {
			return fmt.Errorf("list time window schedules: %w", err)
		}
		for _, schedule := range schedules {
			status := TimeWindowStatus(schedule, now, s.loc)
			if status == schedule.Status {
				continue
			}
			schedule.Status = status
			if err := tx.SaveSchedule(ctx, schedule); err != nil {
				return fmt.Errorf("update status of schedule %d: %w", schedule.ID, err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		logutils.Log.WithFields(logutils.Fields{"updated": updated}).Info("time window statuses refreshed")
	}
	return updated, nil
}
