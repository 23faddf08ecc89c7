package helper

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"k8s.io/klog/v2"

	"github.com/ync-lab/intranet/internal"
	"github.com/ync-lab/intranet/internal/handler"
	"github.com/ync-lab/intranet/pkg/config"
	"github.com/ync-lab/intranet/pkg/logutils"
)

// ServerRunner 封装服务器运行逻辑
type ServerRunner struct {
	backendConfig *config.Config
	logFile       io.Closer
}

func NewServerRunner(backendConfig *config.Config) *ServerRunner {
	return &ServerRunner{
		backendConfig: backendConfig,
	}
}

// SetupLogger applies the configured level and optional rotating log file
func (sr *ServerRunner) SetupLogger() {
	logutils.SetLevel(sr.backendConfig.Log.Level)
	sr.logFile = logutils.EnableFileOutput(sr.backendConfig.Log.FileOptions)
}

// StartCronJobs loads the housekeeping jobs from the database and starts the scheduler
func (sr *ServerRunner) StartCronJobs(ctx context.Context, registerConfig *handler.RegisterConfig) {
	klog.Info("starting cron jobs")
	registerConfig.CronJobManager.SyncCronJob(ctx)
}

var (
	readHeaderTimeout = 10 * time.Second
	cancelTimeout     = 10 * time.Second
)

// StartServer serves until SIGINT or SIGTERM, then shuts down the server and the scheduler
func (sr *ServerRunner) StartServer(registerConfig *handler.RegisterConfig) {
	klog.Info("starting server")
	backend := internal.Register(registerConfig)

	// reference: https://gin-gonic.com/en/docs/examples/graceful-restart-or-stop
	srv := &http.Server{
		Addr:              sr.backendConfig.ServerAddr,
		Handler:           backend,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no params) by default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need add it
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	klog.Info("Shutdown Gin Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		klog.Info("Gin Server Shutdown:", err)
	}
	registerConfig.CronJobManager.StopCron()
	if sr.logFile != nil {
		_ = sr.logFile.Close()
	}
	klog.Info("Gin Server exiting")
}
