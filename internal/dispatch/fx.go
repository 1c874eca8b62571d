package dispatch

import (
	"github.com/smallbiznis/printfan/internal/dispatch/service"
	"github.com/smallbiznis/printfan/internal/dispatch/transport"
	"go.uber.org/fx"
)

var Module = fx.Module("dispatch.service",
	fx.Provide(service.ProvideConfig),
	fx.Provide(transport.Provide),
	fx.Provide(service.New),
)
