package segregate

import "go.uber.org/fx"

var Module = fx.Module("segregate.service",
	fx.Provide(New),
	fx.Provide(func(s *Service) Segregator { return s }),
)
