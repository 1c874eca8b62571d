package healthmon

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("healthmon",
	fx.Provide(ProvideConfig),
	fx.Provide(func() Prober { return NewTCPProber() }),
	fx.Provide(New),
	fx.Invoke(StartMonitor),
)

func StartMonitor(lc fx.Lifecycle, monitor *Monitor) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go monitor.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
