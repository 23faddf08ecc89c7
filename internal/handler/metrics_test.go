package handler

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/ync-lab/intranet/dao/model"
)

func documentGauge(status model.DocumentStatus) float64 {
	m := &dto.Metric{}
	if err := documentsGauge.WithLabelValues(string(status)).Write(m); err != nil {
		return -1
	}
	return m.GetGauge().GetValue()
}

func TestSetDocumentCounts(t *testing.T) {
	Convey("document gauges", t, func() {
		setDocumentCounts([]statusCount{
			{Status: model.DocumentStatusPending, Count: 3},
			{Status: model.DocumentStatusApproved, Count: 7},
		})
		So(documentGauge(model.DocumentStatusPending), ShouldEqual, 3)
		So(documentGauge(model.DocumentStatusApproved), ShouldEqual, 7)
		So(documentGauge(model.DocumentStatusRejected), ShouldEqual, 0)

		Convey("absent statuses drop to zero", func() {
			setDocumentCounts([]statusCount{{Status: model.DocumentStatusDraft, Count: 1}})
			So(documentGauge(model.DocumentStatusPending), ShouldEqual, 0)
			So(documentGauge(model.DocumentStatusDraft), ShouldEqual, 1)
		})
	})
}
