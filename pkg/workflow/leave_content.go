package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ync-lab/intranet/dao/model"
)

// leaveInfoPattern finds the schedule block the leave form embeds in the document body,
// e.g. [일정정보:{"scheduleType":"VACATION","startDate":"2025-03-03","endDate":"2025-03-04"}]
var leaveInfoPattern = regexp.MustCompile(`\[일정정보:(\{.*?\})\]`)

const dateLayout = "2006-01-02"

// defaultDaysUsed applies when daysUsed is present but unreadable
const defaultDaysUsed = 1.0

// LeaveInfo is the schedule described by a leave document
type LeaveInfo struct {
	ScheduleType model.ScheduleType
	StartDate    time.Time
	EndDate      time.Time
	DaysUsed     float64
}

type rawLeaveInfo struct {
	ScheduleType string          `json:"scheduleType"`
	StartDate    string          `json:"startDate"`
	EndDate      string          `json:"endDate"`
	DaysUsed     json.RawMessage `json:"daysUsed"`
}

// HasLeaveInfo reports whether the content embeds a schedule block
func HasLeaveInfo(content string) bool {
	return leaveInfoPattern.MatchString(content)
}

// StripLeaveInfo removes the schedule block from the content
func StripLeaveInfo(content string) string {
	return strings.TrimSpace(leaveInfoPattern.ReplaceAllString(content, ""))
}

// ParseLeaveInfo extracts the schedule block of a leave document. Dates are read in loc.
func ParseLeaveInfo(content string, loc *time.Location) (*LeaveInfo, error) {
	match := leaveInfoPattern.FindStringSubmatch(content)
	if match == nil {
		return nil, fmt.Errorf("content has no schedule information: %w", ErrInvalidInput)
	}
	var raw rawLeaveInfo
	if err := json.Unmarshal([]byte(match[1]), &raw); err != nil {
		return nil, fmt.Errorf("decode schedule information: %v: %w", err, ErrInvalidInput)
	}
	if raw.ScheduleType == "" || raw.StartDate == "" || raw.EndDate == "" {
		return nil, fmt.Errorf("scheduleType, startDate and endDate are required: %w", ErrInvalidInput)
	}

	info := &LeaveInfo{ScheduleType: model.ScheduleType(raw.ScheduleType)}
	var err error
	if info.StartDate, err = time.ParseInLocation(dateLayout, raw.StartDate, loc); err != nil {
		return nil, fmt.Errorf("startDate %q: %w", raw.StartDate, ErrInvalidInput)
	}
	if info.EndDate, err = time.ParseInLocation(dateLayout, raw.EndDate, loc); err != nil {
		return nil, fmt.Errorf("endDate %q: %w", raw.EndDate, ErrInvalidInput)
	}
	if info.EndDate.Before(info.StartDate) {
		return nil, fmt.Errorf("endDate before startDate: %w", ErrInvalidInput)
	}
	info.DaysUsed = parseDaysUsed(raw.DaysUsed)
	return info, nil
}

// parseDaysUsed accepts a JSON number or a numeric string
func parseDaysUsed(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return v
		}
	}
	return defaultDaysUsed
}
