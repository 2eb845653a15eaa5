package document

import (
	"github.com/Girosmedia/tendo-app-sub002/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(service.NewService),
)
