package expense

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"k8s.io/utils/ptr"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/workflow"
)

const (
	developerID  = 1
	managerID    = 2
	accountantID = 3
	juniorID     = 4
)

var testLoc = time.FixedZone("KST", 9*3600)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, testLoc)
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	store.departments[10] = model.Department{Model: gorm.Model{ID: 10}, Name: "경영본부"}
	store.departments[11] = model.Department{Model: gorm.Model{ID: 11}, Name: "경영관리 Unit", ParentID: ptr.To[uint](10)}
	store.departments[20] = model.Department{Model: gorm.Model{ID: 20}, Name: "기술본부"}
	store.departments[12] = model.Department{Model: gorm.Model{ID: 12}, Name: "개발 Unit", ParentID: ptr.To[uint](20)}

	hired := day(2023, 1, 2)
	recent := day(2024, 12, 1)
	store.members[developerID] = model.Member{Model: gorm.Model{ID: developerID}, Name: "김개발", DepartmentID: ptr.To[uint](12), HireDate: &hired}
	store.members[managerID] = model.Member{Model: gorm.Model{ID: managerID}, Name: "이경영", DepartmentID: ptr.To[uint](11), IsActive: true}
	store.members[accountantID] = model.Member{Model: gorm.Model{ID: accountantID}, Name: "박회계", DepartmentID: ptr.To[uint](11), IsActive: true}
	store.members[juniorID] = model.Member{Model: gorm.Model{ID: juniorID}, Name: "최신입", DepartmentID: ptr.To[uint](12), HireDate: &recent}

	svc := NewService(store, "", testLoc)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 10, 0, 0, 0, testLoc) }
	return svc, store
}

func item(usage time.Time, account string, amount int64, welfare bool) ItemInput {
	return ItemInput{UsageDate: usage, Account: account, Amount: amount, WelfareFlag: welfare}
}

func TestReportTotals(t *testing.T) {
	PatchConvey("item mutations keep the report total", t, func() {
		svc, _ := newTestService()
		ctx := context.Background()

		report, err := svc.CreateReport(ctx, developerID, "3월 경비")
		So(err, ShouldBeNil)

		first := item(day(2025, 3, 3), "식대", 12_000, false)
		first.ReportID = &report.ID
		second := item(day(2025, 3, 4), "교통비", 8_000, false)
		second.ReportID = &report.ID
		items, err := svc.CreateItems(ctx, developerID, []ItemInput{first, second})
		So(err, ShouldBeNil)
		So(items, ShouldHaveLength, 2)

		got, err := svc.GetReport(ctx, report.ID)
		So(err, ShouldBeNil)
		So(got.TotalAmount, ShouldEqual, 20_000)
		So(got.Items, ShouldHaveLength, 2)

		first.Amount = 15_000
		_, err = svc.UpdateItem(ctx, items[0].ID, developerID, first)
		So(err, ShouldBeNil)
		got, _ = svc.GetReport(ctx, report.ID)
		So(got.TotalAmount, ShouldEqual, 23_000)

		So(svc.DeleteItem(ctx, items[1].ID, developerID), ShouldBeNil)
		got, _ = svc.GetReport(ctx, report.ID)
		So(got.TotalAmount, ShouldEqual, 15_000)

		So(svc.DeleteReportItems(ctx, report.ID, developerID), ShouldBeNil)
		got, _ = svc.GetReport(ctx, report.ID)
		So(got.TotalAmount, ShouldEqual, 0)
		So(got.Items, ShouldBeEmpty)
	})

	PatchConvey("only the owner changes items and reports", t, func() {
		svc, _ := newTestService()
		ctx := context.Background()

		report, _ := svc.CreateReport(ctx, developerID, "3월 경비")
		in := item(day(2025, 3, 3), "식대", 12_000, false)
		in.ReportID = &report.ID
		_, err := svc.CreateItem(ctx, juniorID, in)
		So(errors.Is(err, workflow.ErrForbidden), ShouldBeTrue)

		created, err := svc.CreateItem(ctx, developerID, in)
		So(err, ShouldBeNil)
		So(errors.Is(svc.DeleteItem(ctx, created.ID, juniorID), workflow.ErrForbidden), ShouldBeTrue)
		So(errors.Is(svc.DeleteReportItems(ctx, report.ID, juniorID), workflow.ErrForbidden), ShouldBeTrue)
		So(errors.Is(svc.DeleteItem(ctx, 999, developerID), workflow.ErrNotFound), ShouldBeTrue)
	})
}

func TestItemValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for name, in := range map[string]ItemInput{
		"no date":     item(time.Time{}, "식대", 1000, false),
		"no account":  item(day(2025, 3, 3), " ", 1000, false),
		"negative":    item(day(2025, 3, 3), "식대", -1, false),
		"unknown ref": {ReportID: ptr.To[uint](999), UsageDate: day(2025, 3, 3), Account: "식대"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateItem(ctx, developerID, in)
			assert.Error(t, err)
		})
	}
	_, err := svc.CreateItems(ctx, developerID, nil)
	assert.ErrorIs(t, err, workflow.ErrInvalidInput)
}

func TestWelfareSummary(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateItems(ctx, developerID, []ItemInput{
		item(day(2025, 1, 10), "복지비", 350_000, true),
		item(day(2025, 2, 10), "복지비", 200_000, true),
		item(day(2025, 2, 11), "식대", 90_000, false),
		item(day(2024, 12, 30), "복지비", 100_000, true),
	})
	require.NoError(t, err)

	summary, err := svc.WelfareSummary(ctx, developerID, 2025)
	require.NoError(t, err)
	assert.Equal(t, "김개발", summary.MemberName)
	assert.EqualValues(t, 1_600_000, summary.AnnualBudget)
	assert.EqualValues(t, 550_000, summary.AnnualUsed)
	assert.EqualValues(t, 1_050_000, summary.AnnualRemaining)
	require.Len(t, summary.Quarters, 4)
	assert.Equal(t, QuarterUsage{Year: 2025, Quarter: 1, Budget: 400_000, Used: 400_000, Remaining: 0}, summary.Quarters[0])
	assert.Equal(t, QuarterUsage{Year: 2025, Quarter: 2, Budget: 400_000, Used: 150_000, Remaining: 250_000}, summary.Quarters[1])
	assert.EqualValues(t, 0, summary.Quarters[3].Used)

	junior, err := svc.WelfareSummary(ctx, juniorID, 2025)
	require.NoError(t, err)
	assert.EqualValues(t, 1_200_000, junior.AnnualBudget)
	assert.EqualValues(t, 300_000, junior.Quarters[0].Remaining)

	_, err = svc.WelfareSummary(ctx, 999, 2025)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestQuarterBudget(t *testing.T) {
	today := day(2025, 3, 10)
	assert.Equal(t, JuniorQuarterBudget, quarterBudget(nil, today))
	assert.Equal(t, SeniorQuarterBudget, quarterBudget(ptr.To(day(2024, 3, 10)), today))
	assert.Equal(t, JuniorQuarterBudget, quarterBudget(ptr.To(day(2024, 3, 11)), today))
}

func TestSubmit(t *testing.T) {
	PatchConvey("submission reaches every management member", t, func() {
		svc, store := newTestService()
		ctx := context.Background()

		items, err := svc.CreateItems(ctx, developerID, []ItemInput{
			item(day(2025, 3, 3), "식대", 12_000, false),
			item(day(2025, 3, 4), "복지비", 50_000, true),
		})
		So(err, ShouldBeNil)

		submission, err := svc.Submit(ctx, []uint{items[0].ID, items[1].ID, 999}, developerID, "2025", "03")
		So(err, ShouldBeNil)
		So(submission, ShouldNotBeNil)
		So(submission.RepresentativeItemID, ShouldEqual, items[0].ID)

		So(store.ledger, ShouldHaveLength, 2)
		So(store.ledger[items[1].ID].WelfareFlag, ShouldEqual, "Y")
		So(store.ledger[items[1].ID].Month, ShouldEqual, "03")
		So(*store.items[items[0].ID].SubmissionID, ShouldEqual, submission.ID)

		for _, reader := range []uint{managerID, accountantID} {
			count, err := svc.UnreadCount(ctx, reader)
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 1)
		}
		count, _ := svc.UnreadCount(ctx, juniorID)
		So(count, ShouldEqual, 0)

		unread, err := svc.UnreadSubmissions(ctx, managerID)
		So(err, ShouldBeNil)
		So(unread, ShouldHaveLength, 1)
		So(unread[0].SubmitterName, ShouldEqual, "김개발")
		So(unread[0].SubmitterDepartment, ShouldEqual, "개발 Unit")
		So(unread[0].ItemCount, ShouldEqual, 2)

		So(svc.MarkRead(ctx, submission.ID, managerID), ShouldBeNil)
		count, _ = svc.UnreadCount(ctx, managerID)
		So(count, ShouldEqual, 0)
		So(errors.Is(svc.MarkRead(ctx, submission.ID, juniorID), workflow.ErrNotFound), ShouldBeTrue)

		_, err = svc.Submit(ctx, []uint{items[0].ID}, developerID, "2025", "04")
		So(errors.Is(err, workflow.ErrInvalidState), ShouldBeTrue)
		_, err = svc.UpdateItem(ctx, items[0].ID, developerID, item(day(2025, 3, 3), "식대", 1, false))
		So(errors.Is(err, workflow.ErrInvalidState), ShouldBeTrue)
	})

	PatchConvey("without management department only the ledger is written", t, func() {
		svc, store := newTestService()
		svc.managementDept = "없는 부서"
		ctx := context.Background()

		created, _ := svc.CreateItem(ctx, developerID, item(day(2025, 3, 3), "식대", 12_000, false))
		submission, err := svc.Submit(ctx, []uint{created.ID}, developerID, "2025", "03")
		So(err, ShouldBeNil)
		So(submission, ShouldBeNil)
		So(store.ledger, ShouldHaveLength, 1)
		So(store.submissions, ShouldBeEmpty)

		_, err = svc.Submit(ctx, []uint{created.ID}, developerID, "2025", "03")
		So(errors.Is(err, workflow.ErrInvalidState), ShouldBeTrue)
	})

	PatchConvey("malformed submissions are rejected", t, func() {
		svc, store := newTestService()
		ctx := context.Background()

		_, err := svc.Submit(ctx, nil, developerID, "2025", "03")
		So(errors.Is(err, workflow.ErrInvalidInput), ShouldBeTrue)
		_, err = svc.Submit(ctx, []uint{999}, developerID, "2025", "03")
		So(errors.Is(err, workflow.ErrInvalidInput), ShouldBeTrue)
		_, err = svc.Submit(ctx, []uint{1}, developerID, "25", "3")
		So(errors.Is(err, workflow.ErrInvalidInput), ShouldBeTrue)
		So(store.ledger, ShouldBeEmpty)
	})
}

func TestStats(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	for id, e := range map[uint]model.ExpenseLedgerEntry{
		1: {MemberID: developerID, UsageDate: day(2025, 3, 2), Account: "식대", Amount: 10_000, WelfareFlag: "N"},
		2: {MemberID: developerID, UsageDate: day(2025, 3, 5), Account: "식대", Amount: 20_000, WelfareFlag: "N"},
		3: {MemberID: juniorID, UsageDate: day(2025, 3, 6), Account: "복지비", Amount: 30_000, WelfareFlag: "Y"},
		4: {MemberID: managerID, UsageDate: day(2025, 1, 6), Account: "도서", Amount: 40_000, WelfareFlag: "N"},
		5: {MemberID: managerID, UsageDate: day(2024, 12, 6), Account: "도서", Amount: 99_000, WelfareFlag: "N"},
	} {
		e.ID = id
		store.ledger[id] = e
	}

	month, err := svc.Stats(ctx, StatsQuery{Period: PeriodMonth})
	require.NoError(t, err)
	assert.Equal(t, 2, month.TotalCount)
	assert.EqualValues(t, 60_000, month.TotalAmount)
	assert.Equal(t, []CategoryStats{
		{Category: "복지비", WelfareFlag: "Y", Count: 1, Amount: 30_000, Percentage: 50},
		{Category: "식대", WelfareFlag: "N", Count: 2, Amount: 30_000, Percentage: 50},
	}, month.CategoryStats)

	year, err := svc.Stats(ctx, StatsQuery{Period: PeriodYear, ParentDeptID: ptr.To[uint](10)})
	require.NoError(t, err)
	assert.Equal(t, 1, year.TotalCount)
	assert.EqualValues(t, 40_000, year.TotalAmount)

	dept, err := svc.Stats(ctx, StatsQuery{Period: PeriodYear, DeptID: ptr.To[uint](12), ParentDeptID: ptr.To[uint](10)})
	require.NoError(t, err)
	assert.EqualValues(t, 60_000, dept.TotalAmount)

	member, err := svc.Stats(ctx, StatsQuery{Period: PeriodYear, MemberID: ptr.To[uint](juniorID), DeptID: ptr.To[uint](11)})
	require.NoError(t, err)
	assert.EqualValues(t, 30_000, member.TotalAmount)

	empty, err := svc.Stats(ctx, StatsQuery{Period: PeriodYear, ParentDeptID: ptr.To[uint](99)})
	require.NoError(t, err)
	assert.Zero(t, empty.TotalAmount)
	assert.Empty(t, empty.CategoryStats)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 33.33, percentage(1, 3))
	assert.Equal(t, 66.67, percentage(2, 3))
	assert.Equal(t, 0.01, percentage(1, 20_000))
	assert.Equal(t, 0.0, percentage(1, 20_001))
	assert.Equal(t, 100.0, percentage(5, 5))
	assert.Equal(t, 0.0, percentage(5, 0))
}
