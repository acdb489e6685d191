package issue

import (
	"go.uber.org/fx"

	"github.com/tracklane/tracklane/internal/issue/service"
)

var Module = fx.Module("issue.service",
	fx.Provide(service.NewService),
)
