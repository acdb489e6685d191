package user

import (
	"go.uber.org/fx"

	"github.com/tracklane/tracklane/internal/user/service"
)

var Module = fx.Module("user.service",
	fx.Provide(service.NewService),
)
