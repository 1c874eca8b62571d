package printer

import (
	"github.com/smallbiznis/printfan/internal/printer/repository"
	"github.com/smallbiznis/printfan/internal/printer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("printer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
