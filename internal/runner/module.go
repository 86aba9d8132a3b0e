package runner

import (
	"context"

	"go.uber.org/fx"

	"mt4_gateway/internal/exchange"
	"mt4_gateway/internal/modules/config"
	mt4service "mt4_gateway/internal/modules/mt4/service"
	"mt4_gateway/internal/notify"
	"mt4_gateway/pkg/logger"
)

func NewNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Telegram.Token == "" {
		return notify.Stdout{}
	}
	t, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		logger.Warn("telegram notifier unavailable, falling back to stdout: %v", err)
		return notify.Stdout{}
	}
	return t
}

func NewRunner(cfg *config.Config, ex exchange.Exchange) *Runner {
	return New(ex, cfg.ProcessInterval.Std())
}

// Module starts the event loop and hooks up order notifications.
func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewNotifier,
			NewRunner,
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner, gw *mt4service.MetaTrader4, ex exchange.Exchange, n notify.Notifier) {
			gw.AddHandler(newOrderNotifier(ex, n))

			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					r.Start(context.Background())
					return nil
				},
				OnStop: func(ctx context.Context) error {
					r.Stop()
					return nil
				},
			})
		}),
	)
}
