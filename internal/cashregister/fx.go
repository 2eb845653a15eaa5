package cashregister

import (
	"github.com/Girosmedia/tendo-app-sub002/internal/cashregister/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cashregister.service",
	fx.Provide(
		service.NewService,
	),
)
