package project

import (
	"go.uber.org/fx"

	"github.com/tracklane/tracklane/internal/project/service"
)

var Module = fx.Module("project.service",
	fx.Provide(service.NewService),
)
