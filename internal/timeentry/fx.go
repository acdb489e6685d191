package timeentry

import (
	"go.uber.org/fx"

	"github.com/tracklane/tracklane/internal/timeentry/service"
)

var Module = fx.Module("timeentry.service",
	fx.Provide(service.NewService),
)
