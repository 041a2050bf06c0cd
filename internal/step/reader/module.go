package reader

import "go.uber.org/fx"

// Module provides the QuerySourceReaderFactory.
var Module = fx.Provide(NewQuerySourceReaderFactory)
