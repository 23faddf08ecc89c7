package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/internal/resputil"
)

type MetricsMgr struct {
	name string
	db   *gorm.DB
}

func NewMetricsMgr(conf *RegisterConfig) Manager {
	return &MetricsMgr{
		name: "metrics",
		db:   conf.DB,
	}
}

func (mgr *MetricsMgr) GetName() string { return mgr.name }

func (mgr *MetricsMgr) RegisterPublic(metrics *gin.RouterGroup) {
	metrics.GET("", mgr.GetMetrics)
}

func (mgr *MetricsMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *MetricsMgr) RegisterAdmin(_ *gin.RouterGroup) {}

// A dedicated registry keeps the go runtime collectors out of the output
var registry *prometheus.Registry

var promHTTPHandler http.Handler

var documentsGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "intranet_documents_total",
		Help: "Number of approval documents by status",
	},
	[]string{"status"},
)

var pendingApprovalsGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "intranet_pending_approvals_total",
		Help: "Number of approval lines waiting for a decision",
	},
)

var unreadNotificationsGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "intranet_unread_notifications_total",
		Help: "Number of unread notifications",
	},
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewMetricsMgr)
	registry = prometheus.NewRegistry()
	promHTTPHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	registry.MustRegister(documentsGauge)
	registry.MustRegister(pendingApprovalsGauge)
	registry.MustRegister(unreadNotificationsGauge)
}

type statusCount struct {
	Status model.DocumentStatus
	Count  int64
}

// GetMetrics godoc
// @Summary Workflow metrics
// @Description Document, approval and notification counts in the Prometheus text format
// @Tags Metrics
// @Produce plain
// @Success 200 {string} string "Prometheus metrics"
// @Failure 500 {object} resputil.Response[any] "Other errors"
// @Router /v1/metrics [get]
func (mgr *MetricsMgr) GetMetrics(c *gin.Context) {
	if err := mgr.collect(c); err != nil {
		resputil.Error(c, err.Error(), resputil.ServiceError)
		return
	}
	promHTTPHandler.ServeHTTP(c.Writer, c.Request)
}

func (mgr *MetricsMgr) collect(c *gin.Context) error {
	db := mgr.db.WithContext(c)

	var counts []statusCount
	if err := db.Model(&model.Document{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&counts).Error; err != nil {
		return err
	}
	setDocumentCounts(counts)

	var pending int64
	if err := db.Model(&model.ApprovalLine{}).
		Where("decision = ?", model.ApprovalDecisionPending).
		Count(&pending).Error; err != nil {
		return err
	}
	pendingApprovalsGauge.Set(float64(pending))

	var unread int64
	if err := db.Model(&model.Notification{}).
		Where("is_read = ?", false).
		Count(&unread).Error; err != nil {
		return err
	}
	unreadNotificationsGauge.Set(float64(unread))
	return nil
}

// setDocumentCounts reports every known status, zero when absent
func setDocumentCounts(counts []statusCount) {
	for _, status := range []model.DocumentStatus{
		model.DocumentStatusDraft,
		model.DocumentStatusPending,
		model.DocumentStatusApproved,
		model.DocumentStatusRejected,
	} {
		documentsGauge.WithLabelValues(string(status)).Set(0)
	}
	for _, sc := range counts {
		documentsGauge.WithLabelValues(string(sc.Status)).Set(float64(sc.Count))
	}
}
