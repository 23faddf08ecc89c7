package handler

import (
	"time"

	"github.com/samber/lo"

	"github.com/ync-lab/intranet/dao/model"
)

const dateLayout = "2006-01-02"

type (
	DocumentResp struct {
		ID                 uint                 `json:"id"`
		Type               model.DocumentType   `json:"type"`
		Title              string               `json:"title"`
		Content            string               `json:"content"`
		Status             model.DocumentStatus `json:"status"`
		Author             model.MemberInfo     `json:"author"`
		OriginalScheduleID *uint                `json:"originalScheduleId,omitempty"`
		SubmittedAt        *time.Time           `json:"submittedAt"`
		CompletedAt        *time.Time           `json:"completedAt"`
		CreatedAt          time.Time            `json:"createdAt"`
		UpdatedAt          time.Time            `json:"updatedAt"`
		ApprovalLines      []ApprovalLineResp   `json:"approvalLines,omitempty"`
	}

	ApprovalLineResp struct {
		ID               uint                   `json:"id"`
		DocumentID       uint                   `json:"documentId"`
		StepOrder        int                    `json:"stepOrder"`
		ApproverID       uint                   `json:"approverId"`
		ApproverName     string                 `json:"approverName"`
		ApproverPosition string                 `json:"approverPosition"`
		Decision         model.ApprovalDecision `json:"decision"`
		Comment          string                 `json:"comment"`
		DecidedAt        *time.Time             `json:"decidedAt"`
		Document         *DocumentResp          `json:"document,omitempty"`
	}

	ScheduleResp struct {
		ID          uint                 `json:"id"`
		Member      model.MemberInfo     `json:"member"`
		DocumentID  *uint                `json:"documentId"`
		Type        model.ScheduleType   `json:"type"`
		Title       string               `json:"title"`
		Description string               `json:"description"`
		Location    string               `json:"location"`
		StartDate   string               `json:"startDate"`
		EndDate     string               `json:"endDate"`
		StartTime   string               `json:"startTime"`
		EndTime     string               `json:"endTime"`
		DaysUsed    float64              `json:"daysUsed"`
		Status      model.ScheduleStatus `json:"status"`
		CreatedAt   time.Time            `json:"createdAt"`
	}
)

func newDocumentResp(doc *model.Document) *DocumentResp {
	if doc == nil {
		return nil
	}
	resp := &DocumentResp{
		ID:          doc.ID,
		Type:        doc.Type,
		Title:       doc.Title,
		Content:     doc.Content,
		Status:      doc.Status,
		Author:      doc.Author.Info(),
		SubmittedAt: doc.SubmittedAt,
		CompletedAt: doc.CompletedAt,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if id, ok := doc.OriginalScheduleID(); ok {
		resp.OriginalScheduleID = &id
	}
	for i := range doc.ApprovalLines {
		resp.ApprovalLines = append(resp.ApprovalLines, *newApprovalLineResp(&doc.ApprovalLines[i]))
	}
	return resp
}

func newApprovalLineResp(line *model.ApprovalLine) *ApprovalLineResp {
	return &ApprovalLineResp{
		ID:               line.ID,
		DocumentID:       line.DocumentID,
		StepOrder:        line.StepOrder,
		ApproverID:       line.ApproverID,
		ApproverName:     line.ApproverName,
		ApproverPosition: line.ApproverPosition,
		Decision:         line.Decision,
		Comment:          line.Comment,
		DecidedAt:        line.DecidedAt,
		Document:         newDocumentResp(line.Document),
	}
}

func newScheduleResp(schedule *model.Schedule) *ScheduleResp {
	return &ScheduleResp{
		ID:          schedule.ID,
		Member:      schedule.Member.Info(),
		DocumentID:  schedule.DocumentID,
		Type:        schedule.Type,
		Title:       schedule.Title,
		Description: schedule.Description,
		Location:    schedule.Location,
		StartDate:   schedule.StartDate.Format(dateLayout),
		EndDate:     schedule.EndDate.Format(dateLayout),
		StartTime:   schedule.StartTime,
		EndTime:     schedule.EndTime,
		DaysUsed:    schedule.DaysUsed,
		Status:      schedule.Status,
		CreatedAt:   schedule.CreatedAt,
	}
}

func newDocumentResps(docs []*model.Document) []*DocumentResp {
	return lo.Map(docs, func(d *model.Document, _ int) *DocumentResp { return newDocumentResp(d) })
}

func newApprovalLineResps(lines []*model.ApprovalLine) []*ApprovalLineResp {
	return lo.Map(lines, func(l *model.ApprovalLine, _ int) *ApprovalLineResp { return newApprovalLineResp(l) })
}

func newScheduleResps(schedules []*model.Schedule) []*ScheduleResp {
	return lo.Map(schedules, func(s *model.Schedule, _ int) *ScheduleResp { return newScheduleResp(s) })
}
