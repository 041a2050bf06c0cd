package processor

import "go.uber.org/fx"

// Module provides the plan executor and cost extractor.
var Module = fx.Provide(
	NewPlanExecutor,
	NewCostExtractor,
)
