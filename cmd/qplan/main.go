package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"

	"github.com/tigerroll/qplan/pkg/batch/support/util/logger"

	_ "github.com/tigerroll/qplan/pkg/batch/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/qplan/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/qplan/pkg/batch/adapter/database/gorm/sqlite"
)

// embeddedConfig is the default configuration compiled into the binary.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.Errorf("%v", err)
		stop()
		os.Exit(1)
	}
}
