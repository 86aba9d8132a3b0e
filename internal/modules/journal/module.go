package journal

import (
	"context"

	"go.uber.org/fx"

	"mt4_gateway/internal/exchange"
	"mt4_gateway/internal/modules/config"
	"mt4_gateway/internal/modules/journal/service"
	mt4service "mt4_gateway/internal/modules/mt4/service"
	"mt4_gateway/pkg/db"
	"mt4_gateway/pkg/logger"
)

// Module wires the order-event journal. Without a DSN in the config the
// module is a no-op; the gateway runs fine without persistence.
func Module() fx.Option {
	return fx.Module("journal",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, gw *mt4service.MetaTrader4, ex exchange.Exchange) {
			if cfg.JournalDSN == "" {
				logger.Info("order journal disabled, no DSN configured")
				return
			}

			var (
				manager *db.PgTxManager
				jrnl    *service.Journal
			)

			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.JournalDSN})
					if err != nil {
						return err
					}
					if err := pool.Ping(ctx); err != nil {
						pool.Close()
						return err
					}

					manager = db.NewPgTxManager(pool)
					jrnl = service.NewJournal(manager, ex)
					if err := jrnl.Start(ctx); err != nil {
						manager.Close()
						return err
					}

					gw.AddHandler(jrnl)
					logger.Info("order journal enabled")
					return nil
				},
				OnStop: func(ctx context.Context) error {
					if jrnl != nil {
						jrnl.Stop()
					}
					if manager != nil {
						manager.Close()
					}
					return nil
				},
			})
		}),
	)
}
