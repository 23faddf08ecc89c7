package internal

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	docs "github.com/ync-lab/intranet/docs"
	"github.com/ync-lab/intranet/internal/handler"
	"github.com/ync-lab/intranet/internal/middleware"
	"github.com/ync-lab/intranet/pkg/config"
)

const (
	apiPrefix   = "/api/v1"
	adminPrefix = apiPrefix + "/admin"
)

// Register builds the gin engine with every registered manager mounted under its name
func Register(conf *handler.RegisterConfig) *gin.Engine {
	r := gin.Default()

	// Enable CORS for http://localhost:XXXX in debug mode
	if config.IsDebugMode() {
		if fe := os.Getenv("INTRANET_FE_PORT"); fe != "" {
			corsConf := cors.DefaultConfig()
			corsConf.AllowOrigins = []string{"http://localhost:" + fe}
			corsConf.AddAllowHeaders("Authorization")
			r.Use(cors.New(corsConf))
		}
	}

	// Kubernetes health check
	r.GET("/v1/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "ok",
		})
	})

	managers := registerManagers(conf)

	///////////////////////////////////////
	//// Public routers, no need login ////
	///////////////////////////////////////

	publicRouter := r.Group(apiPrefix)

	///////////////////////////////////////
	//// Protected routers, need login ////
	///////////////////////////////////////

	protectedRouter := r.Group(apiPrefix)
	protectedRouter.Use(middleware.AuthProtected(conf.TokenMgr, conf.Members))

	///////////////////////////////////////
	//// Admin routers, need admin role ///
	///////////////////////////////////////

	adminRouter := r.Group(adminPrefix)
	adminRouter.Use(middleware.AuthProtected(conf.TokenMgr, conf.Members), middleware.AuthAdmin())

	for _, mgr := range managers {
		mgr.RegisterPublic(publicRouter.Group("/" + mgr.GetName()))
		mgr.RegisterProtected(protectedRouter.Group("/" + mgr.GetName()))
		mgr.RegisterAdmin(adminRouter.Group("/" + mgr.GetName()))
	}

	// Swagger
	docs.SwaggerInfo.BasePath = "/api"
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
