package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ync-lab/intranet/dao/query"
	"github.com/ync-lab/intranet/internal/util"
	"github.com/ync-lab/intranet/pkg/attachment"
	"github.com/ync-lab/intranet/pkg/config"
	"github.com/ync-lab/intranet/pkg/cronjob"
	"github.com/ync-lab/intranet/pkg/expense"
	"github.com/ync-lab/intranet/pkg/naverworks"
	"github.com/ync-lab/intranet/pkg/notification"
	"github.com/ync-lab/intranet/pkg/workflow"
)

// Manager owns the routes of one resource. The router mounts every group under the manager name.
type Manager interface {
	GetName() string
	RegisterPublic(group *gin.RouterGroup)
	RegisterProtected(group *gin.RouterGroup)
	RegisterAdmin(group *gin.RouterGroup)
}

// RegisterConfig carries the shared services handed to every manager
type RegisterConfig struct {
	Config         *config.Config
	DB             *gorm.DB
	TokenMgr       *util.TokenManager
	Members        *query.MemberStore
	Workflow       *workflow.Service
	Notifications  *notification.Service
	Expenses       *expense.Service
	Attachments    *attachment.Service
	NaverWorks     *naverworks.Client
	CronJobManager *cronjob.CronJobManager
}

// Registers holds the constructors of all managers, appended from init functions
var Registers []func(conf *RegisterConfig) Manager
