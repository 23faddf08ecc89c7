package cronjob

import (
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/ync-lab/intranet/pkg/housekeeping"
)

type CronJobManager struct {
	db                  *gorm.DB
	housekeepingClients *housekeeping.Clients
	cron                *cron.Cron
	cronMutex           sync.RWMutex
}

// NewCronJobManager creates a scheduler using standard 5-field specs evaluated in loc
func NewCronJobManager(db *gorm.DB, clients *housekeeping.Clients, loc *time.Location, logger logr.Logger) *CronJobManager {
	if loc == nil {
		loc = time.Local
	}
	return &CronJobManager{
		db:                  db,
		housekeepingClients: clients,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}
