package workflow

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"k8s.io/utils/ptr"

	"github.com/ync-lab/intranet/dao/model"
)

// fakeStore keeps rows in memory. Transactions restore a snapshot on error.
type fakeStore struct {
	mu          sync.Mutex
	nextID      uint
	clock       time.Time
	documents   map[uint]*model.Document
	lines       map[uint]*model.ApprovalLine
	schedules   map[uint]*model.Schedule
	members     map[uint]*model.Member
	departments map[uint]*model.Department
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:      100,
		clock:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		documents:   map[uint]*model.Document{},
		lines:       map[uint]*model.ApprovalLine{},
		schedules:   map[uint]*model.Schedule{},
		members:     map[uint]*model.Member{},
		departments: map[uint]*model.Department{},
	}
}

func cloneMap[T any](m map[uint]*T) map[uint]*T {
	out := make(map[uint]*T, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

type fakeSnapshot struct {
	nextID    uint
	documents map[uint]*model.Document
	lines     map[uint]*model.ApprovalLine
	schedules map[uint]*model.Schedule
}

func (f *fakeStore) Transaction(_ context.Context, fn func(tx Store) error) error {
	f.mu.Lock()
	snap := fakeSnapshot{
		nextID:    f.nextID,
		documents: cloneMap(f.documents),
		lines:     cloneMap(f.lines),
		schedules: cloneMap(f.schedules),
	}
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.nextID = snap.nextID
		f.documents = snap.documents
		f.lines = snap.lines
		f.schedules = snap.schedules
		f.mu.Unlock()
		return err
	}
	return nil
}

// stamp assigns an ID and a strictly increasing creation time
func (f *fakeStore) stamp(m *gorm.Model) {
	f.nextID++
	f.clock = f.clock.Add(time.Minute)
	m.ID = f.nextID
	m.CreatedAt = f.clock
	m.UpdatedAt = f.clock
}

func (f *fakeStore) addMember(member *model.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *member
	f.members[member.ID] = &c
}

func (f *fakeStore) addDepartment(dept *model.Department) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *dept
	f.departments[dept.ID] = &c
}

func (f *fakeStore) GetDocument(_ context.Context, id uint) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *doc
	return &c, nil
}

func (f *fakeStore) CreateDocument(_ context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stamp(&doc.Model)
	c := *doc
	c.ApprovalLines = nil
	f.documents[doc.ID] = &c
	return nil
}

func (f *fakeStore) SaveDocument(_ context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *doc
	c.ApprovalLines = nil
	f.documents[doc.ID] = &c
	return nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.documents, id)
	return nil
}

func (f *fakeStore) ListDocumentsByAuthor(_ context.Context, authorID uint, limit int) ([]*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Document
	for _, doc := range f.documents {
		if doc.AuthorID == authorID {
			c := *doc
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return truncate(out, limit), nil
}

func (f *fakeStore) FindCancellationDocuments(_ context.Context, scheduleID uint) ([]*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Document
	for _, doc := range f.documents {
		if id, ok := doc.OriginalScheduleID(); ok && id == scheduleID {
			c := *doc
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) GetApprovalLine(_ context.Context, id uint) (*model.ApprovalLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line, ok := f.lines[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *line
	return &c, nil
}

func (f *fakeStore) ListApprovalLines(_ context.Context, documentID uint) ([]*model.ApprovalLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ApprovalLine
	for _, line := range f.lines {
		if line.DocumentID == documentID {
			c := *line
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
	return out, nil
}

func (f *fakeStore) ListApprovalLinesByApprover(_ context.Context, filter ApprovalFilter) ([]*model.ApprovalLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ApprovalLine
	for _, line := range f.lines {
		if line.ApproverID != filter.ApproverID {
			continue
		}
		if len(filter.Decisions) > 0 && !containsValue(filter.Decisions, line.Decision) {
			continue
		}
		doc, ok := f.documents[line.DocumentID]
		if !ok {
			continue
		}
		if filter.DocumentStatus != nil && doc.Status != *filter.DocumentStatus {
			continue
		}
		if filter.Title != "" && !strings.Contains(doc.Title, filter.Title) {
			continue
		}
		if filter.DecidedFrom != nil && (line.DecidedAt == nil || line.DecidedAt.Before(*filter.DecidedFrom)) {
			continue
		}
		if filter.DecidedTo != nil && (line.DecidedAt == nil || line.DecidedAt.After(*filter.DecidedTo)) {
			continue
		}
		c := *line
		d := *doc
		c.Document = &d
		out = append(out, &c)
	}
	if filter.RecentlyDecided {
		sort.Slice(out, func(i, j int) bool {
			a, b := ptr.Deref(out[i].DecidedAt, time.Time{}), ptr.Deref(out[j].DecidedAt, time.Time{})
			if a.Equal(b) {
				return out[i].ID > out[j].ID
			}
			return a.After(b)
		})
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	}
	return truncate(out, filter.Limit), nil
}

func (f *fakeStore) CreateApprovalLines(_ context.Context, lines []*model.ApprovalLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, line := range lines {
		f.stamp(&line.Model)
		c := *line
		c.Document = nil
		f.lines[line.ID] = &c
	}
	return nil
}

func (f *fakeStore) SaveApprovalLine(_ context.Context, line *model.ApprovalLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *line
	c.Document = nil
	f.lines[line.ID] = &c
	return nil
}

func (f *fakeStore) DeleteApprovalLines(_ context.Context, documentID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, line := range f.lines {
		if line.DocumentID == documentID {
			delete(f.lines, id)
		}
	}
	return nil
}

func (f *fakeStore) GetSchedule(_ context.Context, id uint) (*model.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	schedule, ok := f.schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *schedule
	return &c, nil
}

func (f *fakeStore) CreateSchedule(_ context.Context, schedule *model.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stamp(&schedule.Model)
	c := *schedule
	f.schedules[schedule.ID] = &c
	return nil
}

func (f *fakeStore) SaveSchedule(_ context.Context, schedule *model.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *schedule
	f.schedules[schedule.ID] = &c
	return nil
}

func (f *fakeStore) DeleteSchedule(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.schedules, id)
	return nil
}

func (f *fakeStore) ListSchedulesByDocument(_ context.Context, documentID uint) ([]*model.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Schedule
	for _, schedule := range f.schedules {
		if schedule.DocumentID != nil && *schedule.DocumentID == documentID {
			c := *schedule
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListSchedules(_ context.Context, filter ScheduleFilter) ([]*model.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Schedule
	for _, schedule := range f.schedules {
		if !f.matchSchedule(schedule, &filter) {
			continue
		}
		c := *schedule
		out = append(out, &c)
	}
	if filter.NewestFirst {
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	} else {
		sort.Slice(out, func(i, j int) bool {
			if out[i].StartDate.Equal(out[j].StartDate) {
				return out[i].ID < out[j].ID
			}
			return out[i].StartDate.Before(out[j].StartDate)
		})
	}
	return truncate(out, filter.Limit), nil
}

func (f *fakeStore) matchSchedule(schedule *model.Schedule, filter *ScheduleFilter) bool {
	if filter.MemberID != nil && schedule.MemberID != *filter.MemberID {
		return false
	}
	if filter.DepartmentID != nil || filter.DivisionID != nil {
		member, ok := f.members[schedule.MemberID]
		if !ok || member.DepartmentID == nil {
			return false
		}
		if filter.DepartmentID != nil && *member.DepartmentID != *filter.DepartmentID {
			return false
		}
		if filter.DivisionID != nil {
			dept, ok := f.departments[*member.DepartmentID]
			if !ok || dept.ParentID == nil || *dept.ParentID != *filter.DivisionID {
				return false
			}
		}
	}
	if filter.From != nil && schedule.EndDate.Before(*filter.From) {
		return false
	}
	if filter.To != nil && schedule.StartDate.After(*filter.To) {
		return false
	}
	if len(filter.Types) > 0 && !containsValue(filter.Types, schedule.Type) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsValue(filter.Statuses, schedule.Status) {
		return false
	}
	if containsValue(filter.ExcludeStatuses, schedule.Status) {
		return false
	}
	if filter.ExcludeID != 0 && schedule.ID == filter.ExcludeID {
		return false
	}
	return true
}

func (f *fakeStore) GetMember(_ context.Context, id uint) (*model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *member
	return &c, nil
}

func containsValue[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func truncate[T any](values []T, limit int) []T {
	if limit > 0 && len(values) > limit {
		return values[:limit]
	}
	return values
}

type notifyEvent struct {
	kind       string
	memberID   uint
	documentID uint
	name       string
	reason     string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifyEvent
}

func (n *recordingNotifier) ApprovalRequested(_ context.Context, approverID uint, doc *model.Document) {
	n.record(notifyEvent{kind: "requested", memberID: approverID, documentID: doc.ID})
}

func (n *recordingNotifier) ApprovalApproved(_ context.Context, doc *model.Document, approverName string) {
	n.record(notifyEvent{kind: "approved", memberID: doc.AuthorID, documentID: doc.ID, name: approverName})
}

func (n *recordingNotifier) ApprovalRejected(_ context.Context, doc *model.Document, approverName, reason string) {
	n.record(notifyEvent{kind: "rejected", memberID: doc.AuthorID, documentID: doc.ID, name: approverName, reason: reason})
}

func (n *recordingNotifier) record(e notifyEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) last() notifyEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return notifyEvent{}
	}
	return n.events[len(n.events)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

const (
	authorID    uint = 1
	leaderID    uint = 2
	directorID  uint = 3
	colleagueID uint = 4
)

var testLoc = time.FixedZone("KST", 9*60*60)

// testNow is Monday 2025-03-10 10:00 KST
var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, testLoc)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, testLoc)
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	notifier *recordingNotifier
	ctx      context.Context
}

func newFixture() *fixture {
	store := newFakeStore()
	store.addDepartment(&model.Department{Model: gorm.Model{ID: 10}, Name: "경영본부"})
	store.addDepartment(&model.Department{Model: gorm.Model{ID: 11}, Name: "경영관리 Unit", ParentID: ptr.To(uint(10))})
	store.addDepartment(&model.Department{Model: gorm.Model{ID: 12}, Name: "개발 Unit", ParentID: ptr.To(uint(20))})
	store.addMember(&model.Member{Model: gorm.Model{ID: authorID}, Name: "김작성", Position: "사원", DepartmentID: ptr.To(uint(11))})
	store.addMember(&model.Member{Model: gorm.Model{ID: leaderID}, Name: "이팀장", Position: "팀장", DepartmentID: ptr.To(uint(11))})
	store.addMember(&model.Member{Model: gorm.Model{ID: directorID}, Name: "박본부장", Position: "본부장", DepartmentID: ptr.To(uint(11))})
	store.addMember(&model.Member{Model: gorm.Model{ID: colleagueID}, Name: "최동료", Position: "사원", DepartmentID: ptr.To(uint(12))})

	notifier := &recordingNotifier{}
	svc := NewService(store, notifier, testLoc)
	svc.now = func() time.Time { return testNow }
	return &fixture{svc: svc, store: store, notifier: notifier, ctx: context.Background()}
}

// submittedDocument creates and submits a document of the author to the approvers
func (fx *fixture) submittedDocument(docType model.DocumentType, content string, approverIDs ...uint) *model.Document {
	doc, err := fx.svc.CreateDocument(fx.ctx, authorID, DocumentInput{Type: docType, Title: "연차 신청", Content: content})
	if err != nil {
		panic(err)
	}
	doc, err = fx.svc.SubmitDocument(fx.ctx, doc.ID, authorID, approverIDs)
	if err != nil {
		panic(err)
	}
	return doc
}

func (fx *fixture) lineOf(documentID, approverID uint) *model.ApprovalLine {
	lines, _ := fx.store.ListApprovalLines(fx.ctx, documentID)
	for _, line := range lines {
		if line.ApproverID == approverID {
			return line
		}
	}
	return nil
}

// approvedVacation returns an APPROVED vacation schedule of the author approved by the leader
func (fx *fixture) approvedVacation() *model.Schedule {
	schedule, err := fx.svc.CreateSchedule(fx.ctx, authorID, ScheduleInput{
		Type:        model.ScheduleTypeVacation,
		Title:       "여름 휴가",
		Description: "가족 여행",
		StartDate:   day(2025, 3, 20),
		EndDate:     day(2025, 3, 21),
		DaysUsed:    ptr.To(2.0),
		ApproverID:  ptr.To(leaderID),
	})
	if err != nil {
		panic(err)
	}
	line := fx.lineOf(*schedule.DocumentID, leaderID)
	if _, err := fx.svc.Approve(fx.ctx, line.ID, leaderID, ""); err != nil {
		panic(err)
	}
	schedule, _ = fx.store.GetSchedule(fx.ctx, schedule.ID)
	return schedule
}
