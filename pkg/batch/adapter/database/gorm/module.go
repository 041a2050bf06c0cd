package gorm

import (
	"go.uber.org/fx"

	"github.com/tigerroll/qplan/pkg/batch/adapter/database"
)

// Module provides the gorm-backed database.DBProvider.
// Dialects become available by importing their packages (postgres, mysql, sqlite).
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.As(new(database.DBProvider)),
	)),
)
