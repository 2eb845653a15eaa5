package payable

import (
	"github.com/Girosmedia/tendo-app-sub002/internal/payable/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payable.service",
	fx.Provide(
		service.NewService,
	),
)
