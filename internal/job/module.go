package job

import "go.uber.org/fx"

// Module provides the PlanCaptureJob.
var Module = fx.Provide(NewPlanCaptureJob)
