package notification

import (
	"go.uber.org/fx"

	"github.com/tracklane/tracklane/internal/notification/service"
)

var Module = fx.Module("notification.service",
	fx.Provide(service.NewService),
)
