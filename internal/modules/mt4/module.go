package mt4

import (
	"context"

	"go.uber.org/fx"

	"mt4_gateway/internal/exchange"
	"mt4_gateway/internal/modules/config"
	"mt4_gateway/internal/modules/mt4/service"
)

// Module connects the terminal gateway and exposes it as the Exchange
// implementation of the app.
func Module() fx.Option {
	return fx.Module("mt4",
		fx.Provide(
			NewGateway,
			func(m *service.MetaTrader4) exchange.Exchange { return m },
		),
		fx.Invoke(func(lc fx.Lifecycle, m *service.MetaTrader4) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return m.Close()
				},
			})
		}),
	)
}

// NewGateway dials both terminal channels eagerly; a gateway that cannot
// reach its terminal has nothing to offer, so construction fails instead.
func NewGateway(cfg *config.Config) (*service.MetaTrader4, error) {
	return service.Connect(context.Background(), service.Options{
		ReqAddr:        cfg.ReqAddr(),
		SubAddr:        cfg.SubAddr(),
		RequestTimeout: cfg.Terminal.RequestTimeout.Std(),
		EventQueueSize: cfg.Terminal.EventQueueSize,
	})
}
