package helper

import (
	"errors"
	"io/fs"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"k8s.io/klog/v2"

	"github.com/ync-lab/intranet/dao/migrate"
	"github.com/ync-lab/intranet/dao/query"
	"github.com/ync-lab/intranet/internal/handler"
	"github.com/ync-lab/intranet/internal/util"
	"github.com/ync-lab/intranet/pkg/alert"
	"github.com/ync-lab/intranet/pkg/attachment"
	"github.com/ync-lab/intranet/pkg/config"
	"github.com/ync-lab/intranet/pkg/cronjob"
	"github.com/ync-lab/intranet/pkg/expense"
	"github.com/ync-lab/intranet/pkg/housekeeping"
	"github.com/ync-lab/intranet/pkg/naverworks"
	"github.com/ync-lab/intranet/pkg/notification"
	"github.com/ync-lab/intranet/pkg/workflow"
)

// LoadDebugEnvironment reads .debug.env in debug mode. It must run before the
// configuration is loaded so the environment overrides see the values.
func LoadDebugEnvironment() error {
	if gin.Mode() != gin.DebugMode {
		return nil
	}
	if err := godotenv.Load(".debug.env"); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			klog.Info(".debug.env not found, using the process environment")
			return nil
		}
		return err
	}
	return nil
}

// ConfigInitializer 封装配置初始化逻辑
type ConfigInitializer struct {
	backendConfig *config.Config
}

func NewConfigInitializer() *ConfigInitializer {
	backendConfig := config.GetConfig()
	if be := os.Getenv("INTRANET_BE_PORT"); be != "" && config.IsDebugMode() {
		backendConfig.ServerAddr = ":" + be
	}
	return &ConfigInitializer{
		backendConfig: backendConfig,
	}
}

func (ci *ConfigInitializer) GetBackendConfig() *config.Config {
	return ci.backendConfig
}

// InitializeRegisterConfig opens the database, applies migrations and builds the services
func (ci *ConfigInitializer) InitializeRegisterConfig() (*handler.RegisterConfig, error) {
	conf := ci.backendConfig
	loc := conf.Location()

	db := query.GetDB()
	if err := migrate.Run(db); err != nil {
		return nil, err
	}

	notifications := notification.NewService(query.NewNotificationStore(db), alert.GetAlertMgr())
	workflowSvc := workflow.NewService(query.NewWorkflowStore(db), notifications, loc)

	cronJobManager := cronjob.NewCronJobManager(db, &housekeeping.Clients{
		Schedules:     workflowSvc,
		Notifications: notifications,
		Records:       query.NewCronJobRecordStore(db),
	}, loc, klog.NewKlogr().WithName("cron"))

	return &handler.RegisterConfig{
		Config:        conf,
		DB:            db,
		TokenMgr:      util.GetTokenMgr(),
		Members:       query.NewMemberStore(db),
		Workflow:      workflowSvc,
		Notifications: notifications,
		Expenses:      expense.NewService(query.NewExpenseStore(db), conf.Expense.ManagementDepartment, loc),
		Attachments:   attachment.NewService(query.NewAttachmentStore(db), conf.Storage.UploadDir),
		NaverWorks: naverworks.NewClient(naverworks.Options{
			ClientID:     conf.NaverWorks.ClientID,
			ClientSecret: conf.NaverWorks.ClientSecret,
			RedirectURI:  conf.NaverWorks.RedirectURI,
			AuthURL:      conf.NaverWorks.AuthURL,
			TokenURL:     conf.NaverWorks.TokenURL,
			UserInfoURL:  conf.NaverWorks.UserInfoURL,
		}),
		CronJobManager: cronJobManager,
	}, nil
}
