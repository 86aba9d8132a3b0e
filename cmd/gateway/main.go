package main

import (
	"context"

	"go.uber.org/fx"

	"mt4_gateway/internal/modules/bootstrap"
	"mt4_gateway/internal/modules/config"
	"mt4_gateway/internal/modules/health"
	"mt4_gateway/internal/modules/journal"
	"mt4_gateway/internal/modules/mt4"
	"mt4_gateway/internal/runner"
	"mt4_gateway/pkg/logger"
	"mt4_gateway/pkg/tracing"
)

func main() {
	app := fx.New(
		config.Module(),
		mt4.Module(),
		health.Module(),
		journal.Module(),
		runner.Module(),
		bootstrap.Module(),
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config) error {
				if err := logger.Init(cfg.Debug); err != nil {
					return err
				}
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						logger.Sync()
						return nil
					},
				})

				if cfg.Jaeger.Host == "" {
					return nil
				}
				_, closeTracer, err := tracing.InitTracer(tracing.Config{
					Host: cfg.Jaeger.Host,
					Port: cfg.Jaeger.Port,
				})
				if err != nil {
					return err
				}
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						closeTracer()
						return nil
					},
				})
				return nil
			},
		),
	)
	app.Run()
}
