// Package app wires the plan capture pipeline with uber-fx and runs a single job.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/qplan/internal/job"
	"github.com/tigerroll/qplan/internal/step/processor"
	"github.com/tigerroll/qplan/internal/step/reader"
	"github.com/tigerroll/qplan/internal/step/writer"
	gormadapter "github.com/tigerroll/qplan/pkg/batch/adapter/database/gorm"
	config "github.com/tigerroll/qplan/pkg/batch/core/config"
	infraMetrics "github.com/tigerroll/qplan/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/qplan/pkg/batch/support/util/logger"
)

const stopTimeout = 30 * time.Second

// runResult carries the job outcome out of the Fx container.
type runResult struct {
	err error
}

// RunApplication builds the container for cfg, runs the job once with params and tears
// the container down again. The returned error is the job's error, or the container's
// when it failed to start.
func RunApplication(appCtx context.Context, cfg *config.Config, params job.RunParameters) error {
	result := &runResult{}

	app := fx.New(newOptions(appCtx, cfg, params, result))

	if err := app.Start(appCtx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	sig := <-app.Wait()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(appCtx), stopTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Warnf("Application stop reported an error: %v", err)
	}

	if result.err != nil {
		return result.err
	}
	if sig.ExitCode != 0 {
		return fmt.Errorf("application stopped with exit code %d", sig.ExitCode)
	}
	return nil
}

// newOptions assembles the container for one run.
func newOptions(appCtx context.Context, cfg *config.Config, params job.RunParameters, result *runResult) fx.Option {
	return fx.Options(
		fx.Supply(
			cfg,
			params,
			result,
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),
		logger.Module,
		config.Module,
		infraMetrics.Module,
		gormadapter.Module,

		reader.Module,
		processor.Module,
		writer.Module,
		job.Module,

		fx.Invoke(configureLogging),
		fx.Invoke(fx.Annotate(startJobExecution, fx.ParamTags(
			"",              // lc fx.Lifecycle
			"",              // shutdowner fx.Shutdowner
			"",              // captureJob *job.PlanCaptureJob
			"",              // params job.RunParameters
			"",              // result *runResult
			`name:"appCtx"`, // appCtx context.Context
		))),
	)
}

func configureLogging(cfg *config.LoggingConfig) {
	logger.Configure(logger.Options{Level: cfg.Level, Format: cfg.Format})
}

// startJobExecution runs the job in the background once the container has started
// and asks Fx to shut down when it returns.
func startJobExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	captureJob *job.PlanCaptureJob,
	params job.RunParameters,
	result *runResult,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				exitCode := 0
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in job execution: %v", r)
						result.err = fmt.Errorf("job panicked: %v", r)
						exitCode = 1
					}
					if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				logger.Infof("Starting")
				if _, err := captureJob.Run(appCtx, params); err != nil {
					logger.Errorf("Run %s failed: %v", params.RunID, err)
					result.err = err
					exitCode = 1
					return
				}
				logger.Infof("Complete")
			}()
			return nil
		},
	})
}
