package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/internal/resputil"
	"github.com/ync-lab/intranet/internal/util"
	"github.com/ync-lab/intranet/pkg/expense"
	"github.com/ync-lab/intranet/pkg/logutils"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewExpenseMgr)
}

type ExpenseMgr struct {
	name     string
	expenses *expense.Service
	loc      *time.Location
}

func NewExpenseMgr(conf *RegisterConfig) Manager {
	return &ExpenseMgr{
		name:     "expenses",
		expenses: conf.Expenses,
		loc:      conf.Config.Location(),
	}
}

func (mgr *ExpenseMgr) GetName() string { return mgr.name }

func (mgr *ExpenseMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ExpenseMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/items", mgr.ListItems)
	g.POST("/items", mgr.CreateItem)
	g.POST("/items/batch", mgr.CreateItems)
	g.GET("/items/:id", mgr.GetItem)
	g.PUT("/items/:id", mgr.UpdateItem)
	g.DELETE("/items/:id", mgr.DeleteItem)

	g.POST("/reports", mgr.CreateReport)
	g.GET("/reports/mine", mgr.ListMyReports)
	g.GET("/reports/:id", mgr.GetReport)
	g.DELETE("/reports/:id/items", mgr.DeleteReportItems)

	g.GET("/welfare", mgr.GetWelfareSummary)
	g.POST("/submit", mgr.Submit)
	g.GET("/unread", mgr.ListUnread)
	g.GET("/unread-count", mgr.GetUnreadCount)
	g.POST("/unread/:submissionId/read", mgr.MarkRead)
	g.GET("/stats", mgr.GetStats)
}

func (mgr *ExpenseMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	ExpenseIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	SubmissionIDReq struct {
		SubmissionID uint `uri:"submissionId" binding:"required"`
	}

	ListItemsReq struct {
		ReportID *uint  `form:"reportId"`
		Account  string `form:"account"`
	}

	ExpenseItemReq struct {
		ReportID    *uint  `json:"reportId"`
		UsageDate   string `json:"usageDate" binding:"required"` // yyyy-MM-dd
		Description string `json:"description"`
		Account     string `json:"account" binding:"required"`
		Amount      int64  `json:"amount" binding:"min=0"`
		Vendor      string `json:"vendor"`
		CostCode    string `json:"costCode"`
		ProjectCode string `json:"projectCode"`
		Note        string `json:"note"`
		WelfareFlag bool   `json:"welfareFlag"`
	}

	CreateItemsReq struct {
		Items []ExpenseItemReq `json:"items" binding:"required,min=1,dive"`
	}

	CreateReportReq struct {
		Title string `json:"title" binding:"required"`
	}

	WelfareReq struct {
		Year int `form:"year"`
	}

	SubmitExpenseReq struct {
		ItemIDs []uint `json:"itemIds" binding:"required,min=1"`
		Year    string `json:"year" binding:"required"`  // yyyy
		Month   string `json:"month" binding:"required"` // mm
	}

	StatsReq struct {
		Period       expense.Period `form:"period"`
		ParentDeptID *uint          `form:"parentDeptId"`
		DeptID       *uint          `form:"deptId"`
		MemberID     *uint          `form:"memberId"`
	}

	ExpenseItemResp struct {
		ID          uint      `json:"id"`
		ReportID    *uint     `json:"reportId"`
		MemberID    uint      `json:"memberId"`
		UsageDate   string    `json:"usageDate"`
		Description string    `json:"description"`
		Account     string    `json:"account"`
		Amount      int64     `json:"amount"`
		Vendor      string    `json:"vendor"`
		CostCode    string    `json:"costCode"`
		ProjectCode string    `json:"projectCode"`
		Note        string    `json:"note"`
		WelfareFlag bool      `json:"welfareFlag"`
		Submitted   bool      `json:"submitted"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	ExpenseReportResp struct {
		ID          uint              `json:"id"`
		MemberID    uint              `json:"memberId"`
		Title       string            `json:"title"`
		TotalAmount int64             `json:"totalAmount"`
		Items       []ExpenseItemResp `json:"items,omitempty"`
		CreatedAt   time.Time         `json:"createdAt"`
	}

	SubmissionResp struct {
		ID                   uint      `json:"id"`
		SubmitterID          uint      `json:"submitterId"`
		RepresentativeItemID uint      `json:"representativeItemId"`
		Year                 string    `json:"year"`
		Month                string    `json:"month"`
		CreatedAt            time.Time `json:"createdAt"`
	}

	UnreadSubmissionResp struct {
		SubmissionID        uint              `json:"submissionId"`
		SubmitterName       string            `json:"submitterName"`
		SubmitterDepartment string            `json:"submitterDepartment"`
		SubmittedAt         time.Time         `json:"submittedAt"`
		Items               []ExpenseItemResp `json:"items"`
		ItemCount           int               `json:"itemCount"`
	}
)

func newExpenseItemResp(item *model.ExpenseItem) ExpenseItemResp {
	return ExpenseItemResp{
		ID:          item.ID,
		ReportID:    item.ExpenseReportID,
		MemberID:    item.MemberID,
		UsageDate:   item.UsageDate.Format(dateLayout),
		Description: item.Description,
		Account:     item.Account,
		Amount:      item.Amount,
		Vendor:      item.Vendor,
		CostCode:    item.CostCode,
		ProjectCode: item.ProjectCode,
		Note:        item.Note,
		WelfareFlag: item.WelfareFlag,
		Submitted:   item.SubmissionID != nil,
		CreatedAt:   item.CreatedAt,
	}
}

func newExpenseItemResps(items []*model.ExpenseItem) []ExpenseItemResp {
	return lo.Map(items, func(item *model.ExpenseItem, _ int) ExpenseItemResp { return newExpenseItemResp(item) })
}

func newExpenseReportResp(report *model.ExpenseReport) ExpenseReportResp {
	return ExpenseReportResp{
		ID:          report.ID,
		MemberID:    report.MemberID,
		Title:       report.Title,
		TotalAmount: report.TotalAmount,
		Items:       newExpenseItemResps(lo.ToSlicePtr(report.Items)),
		CreatedAt:   report.CreatedAt,
	}
}

func (mgr *ExpenseMgr) itemInput(req *ExpenseItemReq) (expense.ItemInput, error) {
	usage, err := parseDate(req.UsageDate, mgr.loc)
	if err != nil {
		return expense.ItemInput{}, err
	}
	return expense.ItemInput{
		ReportID:    req.ReportID,
		UsageDate:   *usage,
		Description: req.Description,
		Account:     req.Account,
		Amount:      req.Amount,
		Vendor:      req.Vendor,
		CostCode:    req.CostCode,
		ProjectCode: req.ProjectCode,
		Note:        req.Note,
		WelfareFlag: req.WelfareFlag,
	}, nil
}

// ListItems godoc
// @Summary List expense items
// @Description Items of a report when reportId is given, of an account when account is given, otherwise all items
// @Tags Expense
// @Produce json
// @Security Bearer
// @Param query query ListItemsReq false "filters"
// @Success 200 {object} resputil.Response[[]ExpenseItemResp] "Success"
// @Router /v1/expenses/items [get]
func (mgr *ExpenseMgr) ListItems(c *gin.Context) {
	var req ListItemsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var (
		items []*model.ExpenseItem
		err   error
	)
	switch {
	case req.ReportID != nil:
		items, err = mgr.expenses.ItemsByReport(c, *req.ReportID)
	case req.Account != "":
		items, err = mgr.expenses.ItemsByCategory(c, req.Account)
	default:
		items, err = mgr.expenses.AllItems(c)
	}
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newExpenseItemResps(items))
}

// GetItem godoc
// @Summary Get an expense item
// @Tags Expense
// @Produce json
// @Security Bearer
// @Param id path int true "item ID"
// @Success 200 {object} resputil.Response[ExpenseItemResp] "Success"
// @Failure 404 {object} resputil.Response[any] "Not found"
// @Router /v1/expenses/items/{id} [get]
func (mgr *ExpenseMgr) GetItem(c *gin.Context) {
	var uri ExpenseIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	item, err := mgr.expenses.GetItem(c, uri.ID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newExpenseItemResp(item))
}

// CreateItem godoc
// @Summary Create an expense item
// @Tags Expense
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body ExpenseItemReq true "item"
// @Success 200 {object} resputil.Response[ExpenseItemResp] "Success"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Failure 403 {object} resputil.Response[any] "Report of another member"
// @Router /v1/expenses/items [post]
func (mgr *ExpenseMgr) CreateItem(c *gin.Context) {
	var req ExpenseItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	in, err := mgr.itemInput(&req)
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	item, err := mgr.expenses.CreateItem(c, util.GetToken(c).UserID, in)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newExpenseItemResp(item))
}

// CreateItems godoc
// @Summary Create expense items in one batch
// @Tags Expense
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreateItemsReq true "items"
// @Success 200 {object} resputil.Response[[]ExpenseItemResp] "Success"
// @Failure 400 {object} resputil.Response[any] "Request parameter error"
// @Router /v1/expenses/items/batch [post]
func (mgr *ExpenseMgr) CreateItems(c *gin.Context) {
	var req CreateItemsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	ins := make([]expense.ItemInput, 0, len(req.Items))
	for i := range req.Items {
		in, err := mgr.itemInput(&req.Items[i])
		if err != nil {
			resputil.BadRequestError(c, err.Error())
			return
		}
		ins = append(ins, in)
	}
	items, err := mgr.expenses.CreateItems(c, util.GetToken(c).UserID, ins)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newExpenseItemResps(items))
}

// UpdateItem godoc
// @Summary Update an expense item
// @Description Only the spender may change an item that has not been submitted
// @Tags Expense
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "item ID"
// @Param data body ExpenseItemReq true "new values"
// @Success 200 {object} resputil.Response[ExpenseItemResp] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the spender"
// @Failure 409 {object} resputil.Response[any] "Item already submitted"
// @Router /v1/expenses/items/{id} [put]
func (mgr *ExpenseMgr) UpdateItem(c *gin.Context) {
	var uri ExpenseIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req ExpenseItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	in, err := mgr.itemInput(&req)
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	item, err := mgr.expenses.UpdateItem(c, uri.ID, util.GetToken(c).UserID, in)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newExpenseItemResp(item))
}

// DeleteItem godoc
// @Summary Delete an expense item
// @Tags Expense
// @Produce json
// @Security Bearer
// @Param id path int true "item ID"
// @Success 200 {object} resputil.Response[any] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the spender"
// @Failure 409 {object} resputil.Response[any] "Item already submitted"
// @Router /v1/expenses/items/{id} [delete]
func (mgr *ExpenseMgr) DeleteItem(c *gin.Context) {
	var uri ExpenseIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if err := mgr.expenses.DeleteItem(c, uri.ID, util.GetToken(c).UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, nil)
}

// CreateReport godoc
// @Summary Create an expense report
// @Tags Expense
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CreateReportReq true "report"
// @Success 200 {object} resputil.Response[ExpenseReportResp] "Success"
// @Router /v1/expenses/reports [post]
func (mgr *ExpenseMgr) CreateReport(c *gin.Context) {
	var req CreateReportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	report, err := mgr.expenses.CreateReport(c, util.GetToken(c).UserID, req.Title)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newExpenseReportResp(report))
}

// ListMyReports godoc
// @Summary List my expense reports
// @Tags Expense
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]ExpenseReportResp] "Success"
// @Router /v1/expenses/reports/mine [get]
func (mgr *ExpenseMgr) ListMyReports(c *gin.Context) {
	reports, err := mgr.expenses.ReportsByMember(c, util.GetToken(c).UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, lo.Map(reports, func(r *model.ExpenseReport, _ int) ExpenseReportResp {
		return newExpenseReportResp(r)
	}))
}

// GetReport godoc
// @Summary Get an expense report with its items
// @Tags Expense
// @Produce json
// @Security Bearer
// @Param id path int true "report ID"
// @Success 200 {object} resputil.Response[ExpenseReportResp] "Success"
// @Failure 404 {object} resputil.Response[any] "Not found"
// @Router /v1/expenses/reports/{id} [get]
func (mgr *ExpenseMgr) GetReport(c *gin.Context) {
	var uri ExpenseIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	report, err := mgr.expenses.GetReport(c, uri.ID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, newExpenseReportResp(report))
}

// DeleteReportItems godoc
// @Summary Delete every item of a report
// @Tags Expense
// @Produce json
// @Security Bearer
// @Param id path int true "report ID"
// @Success 200 {object} resputil.Response[any] "Success"
// @Failure 403 {object} resputil.Response[any] "Not the owner"
// @Router /v1/expenses/reports/{id}/items [delete]
func (mgr *ExpenseMgr) DeleteReportItems(c *gin.Context) {
	var uri ExpenseIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if err := mgr.expenses.DeleteReportItems(c, uri.ID, util.GetToken(c).UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, nil)
}

// GetWelfareSummary godoc
// @Summary Welfare budget usage
// @Description Quarterly welfare budget, usage and remainder of the current member. The year defaults to the current one.
// @Tags Expense
// @Produce json
// @Security Bearer
// @Param year query int false "year"
// @Success 200 {object} resputil.Response[expense.WelfareSummary] "Success"
// @Router /v1/expenses/welfare [get]
func (mgr *ExpenseMgr) GetWelfareSummary(c *gin.Context) {
	var req WelfareReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if req.Year == 0 {
		req.Year = time.Now().In(mgr.loc).Year()
	}
	summary, err := mgr.expenses.WelfareSummary(c, util.GetToken(c).UserID, req.Year)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, summary)
}

// Submit godoc
// @Summary Submit expense items to the management department
// @Description Settles the items into the ledger for yyyy/mm. Returns null when no management member exists.
// @Tags Expense
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body SubmitExpenseReq true "items and settlement month"
// @Success 200 {object} resputil.Response[SubmissionResp] "Success"
// @Failure 400 {object} resputil.Response[any] "No items or malformed month"
// @Failure 409 {object} resputil.Response[any] "Item already submitted"
// @Router /v1/expenses/submit [post]
func (mgr *ExpenseMgr) Submit(c *gin.Context) {
	var req SubmitExpenseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	submission, err := mgr.expenses.Submit(c, req.ItemIDs, token.UserID, req.Year, req.Month)
	if err != nil {
		logutils.Log.WithFields(logutils.Fields{"member": token.UserID, "items": req.ItemIDs}).Info("submit expenses: ", err)
		resputil.DomainError(c, err)
		return
	}
	if submission == nil {
		resputil.Success(c, nil)
		return
	}
	resputil.Success(c, SubmissionResp{
		ID:                   submission.ID,
		SubmitterID:          submission.SubmitterID,
		RepresentativeItemID: submission.RepresentativeItemID,
		Year:                 submission.Year,
		Month:                submission.Month,
		CreatedAt:            submission.CreatedAt,
	})
}

// ListUnread godoc
// @Summary Unread expense submissions
// @Description Submissions the current management member has not read yet
// @Tags Expense
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]UnreadSubmissionResp] "Success"
// @Router /v1/expenses/unread [get]
func (mgr *ExpenseMgr) ListUnread(c *gin.Context) {
	rows, err := mgr.expenses.UnreadSubmissions(c, util.GetToken(c).UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, lo.Map(rows, func(s expense.UnreadSubmission, _ int) UnreadSubmissionResp {
		return UnreadSubmissionResp{
			SubmissionID:        s.SubmissionID,
			SubmitterName:       s.SubmitterName,
			SubmitterDepartment: s.SubmitterDepartment,
			SubmittedAt:         s.SubmittedAt,
			Items:               newExpenseItemResps(lo.ToSlicePtr(s.Items)),
			ItemCount:           s.ItemCount,
		}
	}))
}

// GetUnreadCount godoc
// @Summary Unread expense submission count
// @Tags Expense
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[UnreadCountResp] "Success"
// @Router /v1/expenses/unread-count [get]
func (mgr *ExpenseMgr) GetUnreadCount(c *gin.Context) {
	count, err := mgr.expenses.UnreadCount(c, util.GetToken(c).UserID)
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, UnreadCountResp{UnreadCount: count})
}

// MarkRead godoc
// @Summary Mark an expense submission as read
// @Tags Expense
// @Produce json
// @Security Bearer
// @Param submissionId path int true "submission ID"
// @Success 200 {object} resputil.Response[any] "Success"
// @Failure 404 {object} resputil.Response[any] "No read status for the member"
// @Router /v1/expenses/unread/{submissionId}/read [post]
func (mgr *ExpenseMgr) MarkRead(c *gin.Context) {
	var uri SubmissionIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if err := mgr.expenses.MarkRead(c, uri.SubmissionID, util.GetToken(c).UserID); err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, nil)
}

// GetStats godoc
// @Summary Expense statistics
// @Description Settled amounts of the current year or month by account. memberId wins over deptId, deptId over parentDeptId.
// @Tags Expense
// @Produce json
// @Security Bearer
// @Param query query StatsReq false "filters"
// @Success 200 {object} resputil.Response[expense.Stats] "Success"
// @Failure 400 {object} resputil.Response[any] "Unknown period"
// @Router /v1/expenses/stats [get]
func (mgr *ExpenseMgr) GetStats(c *gin.Context) {
	var req StatsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	switch req.Period {
	case "":
		req.Period = expense.PeriodMonth
	case expense.PeriodYear, expense.PeriodMonth:
	default:
		resputil.BadRequestError(c, "period must be year or month")
		return
	}
	stats, err := mgr.expenses.Stats(c, expense.StatsQuery{
		Period:       req.Period,
		ParentDeptID: req.ParentDeptID,
		DeptID:       req.DeptID,
		MemberID:     req.MemberID,
	})
	if err != nil {
		resputil.DomainError(c, err)
		return
	}
	resputil.Success(c, stats)
}
