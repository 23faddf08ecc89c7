package main

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/ync-lab/intranet/cmd/intranet/helper"
)

// @title						Intranet API
// @version						1.0.0
// @description					Approval workflow, schedules, notifications and expenses of the company intranet.
// @securityDefinitions.apikey	Bearer
// @in							header
// @name						Authorization
// @description					Sign in at /v1/auth/login and fill in 'Bearer ${TOKEN}' to call protected endpoints
func main() {
	// Load debug environment before the configuration reads it
	if err := helper.LoadDebugEnvironment(); err != nil {
		klog.Fatalf("Failed to load env: %s", err)
	}

	configInit := helper.NewConfigInitializer()
	backendConfig := configInit.GetBackendConfig()

	serverRunner := helper.NewServerRunner(backendConfig)
	serverRunner.SetupLogger()

	registerConfig, err := configInit.InitializeRegisterConfig()
	if err != nil {
		klog.Fatalf("Failed to register config: %s\n", err)
	}

	serverRunner.StartCronJobs(context.Background(), registerConfig)

	serverRunner.StartServer(registerConfig)
}
