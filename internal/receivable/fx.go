package receivable

import (
	"github.com/Girosmedia/tendo-app-sub002/internal/receivable/service"
	"go.uber.org/fx"
)

var Module = fx.Module("receivable.service",
	fx.Provide(service.NewService),
)
