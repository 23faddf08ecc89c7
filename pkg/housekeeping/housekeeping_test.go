package housekeeping

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/ync-lab/intranet/dao/model"
)

type stubRefresher struct {
	updated int
	err     error
}

func (s *stubRefresher) RefreshTimeWindowStatuses(context.Context) (int, error) {
	return s.updated, s.err
}

type stubPurger struct {
	retention time.Duration
}

func (s *stubPurger) PurgeRead(_ context.Context, retention time.Duration) (int64, error) {
	s.retention = retention
	return 3, nil
}

type memoryRecords struct {
	records []*model.CronJobRecord
}

func (m *memoryRecords) CreateRecord(_ context.Context, rec *model.CronJobRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func TestRegistry(t *testing.T) {
	PatchConvey("both jobs are registered with their defaults", t, func() {
		So(Jobs(), ShouldHaveLength, 2)

		refresh, err := Lookup(REFRESH_SCHEDULE_STATUS_JOB)
		So(err, ShouldBeNil)
		So(refresh.DefaultSpec, ShouldEqual, "*/5 * * * *")
		So(string(refresh.DefaultConfig()), ShouldEqual, `{}`)

		purge, err := Lookup(PURGE_READ_NOTIFICATIONS_JOB)
		So(err, ShouldBeNil)
		So(purge.DefaultSpec, ShouldEqual, "0 3 * * *")
		So(string(purge.DefaultConfig()), ShouldEqual, `{"retentionDays":7}`)

		_, err = Lookup("clean-gpu")
		So(errors.Is(err, ErrUnknownJob), ShouldBeTrue)
	})

	PatchConvey("configs are validated against the job type", t, func() {
		purge, _ := Lookup(PURGE_READ_NOTIFICATIONS_JOB)

		normalized, err := purge.NormalizeConfig([]byte(`{"retentionDays": 14}`))
		So(err, ShouldBeNil)
		So(string(normalized), ShouldEqual, `{"retentionDays":14}`)

		normalized, err = purge.NormalizeConfig(nil)
		So(err, ShouldBeNil)
		So(string(normalized), ShouldEqual, `{"retentionDays":7}`)

		for _, raw := range []string{
			`{"retentionDays": "x"}`,
			`{"retentionDays": 0}`,
			`{"retentionDays": 400}`,
			`{"retentionDays": 7, "lowGPU": true}`,
		} {
			_, err = purge.NormalizeConfig([]byte(raw))
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		}

		refresh, _ := Lookup(REFRESH_SCHEDULE_STATUS_JOB)
		_, err = refresh.NormalizeConfig([]byte(`{"retentionDays": 7}`))
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
	})
}

func TestRun(t *testing.T) {
	PatchConvey("the configured retention reaches the purger", t, func() {
		purger := &stubPurger{}
		records := &memoryRecords{}
		clients := &Clients{Notifications: purger, Records: records}
		purge, _ := Lookup(PURGE_READ_NOTIFICATIONS_JOB)

		job, err := purge.Bind(clients, []byte(`{"retentionDays": 14}`))
		So(err, ShouldBeNil)
		job()

		So(purger.retention, ShouldEqual, 14*24*time.Hour)
		So(records.records, ShouldHaveLength, 1)
		var data PurgeReadNotificationsResult
		So(json.Unmarshal(records.records[0].JobData, &data), ShouldBeNil)
		So(data.Deleted, ShouldEqual, 3)

		_, err = purge.Bind(clients, []byte(`{"retentionDays": -1}`))
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
	})

	PatchConvey("outcomes are recorded", t, func() {
		records := &memoryRecords{}
		refresher := &stubRefresher{updated: 1}
		clients := &Clients{Schedules: refresher, Records: records}
		refresh, _ := Lookup(REFRESH_SCHEDULE_STATUS_JOB)

		rec := refresh.Run(context.Background(), clients, &RefreshScheduleStatusConfig{})
		So(rec.Name, ShouldEqual, REFRESH_SCHEDULE_STATUS_JOB)
		So(rec.Status, ShouldEqual, model.CronJobRecordStatusSuccess)
		var data RefreshScheduleStatusResult
		So(json.Unmarshal(rec.JobData, &data), ShouldBeNil)
		So(data.Updated, ShouldEqual, 1)

		refresher.err = errors.New("database unavailable")
		rec = refresh.Run(context.Background(), clients, &RefreshScheduleStatusConfig{})
		So(rec.Status, ShouldEqual, model.CronJobRecordStatusFailed)
		So(rec.Message, ShouldEqual, "database unavailable")
		So(rec.JobData, ShouldBeNil)
		So(records.records, ShouldHaveLength, 2)
	})
}
