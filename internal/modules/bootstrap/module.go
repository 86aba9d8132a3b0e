package bootstrap

import (
	"context"

	"go.uber.org/fx"

	"mt4_gateway/internal/modules/bootstrap/service"
	"mt4_gateway/internal/modules/config"
	healthservice "mt4_gateway/internal/modules/health/service"
	"mt4_gateway/pkg/logger"
)

// Module runs the warm-up in the background and flips the readiness probe
// when it finishes. A failed warm-up leaves the gateway not ready but alive;
// commands still work for callers who can live without the warm caches.
func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			service.NewWarmuper,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, wu *service.Warmuper, state *healthservice.State) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						if err := wu.Warmup(context.Background(), cfg.WatchSymbols); err != nil {
							logger.Error("warmup failed: %v", err)
							return
						}
						state.SetReady(true)
					}()
					return nil
				},
			})
		}),
	)
}
