package health

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/fx"

	"mt4_gateway/internal/modules/config"
	"mt4_gateway/internal/modules/health/service"
	mt4service "mt4_gateway/internal/modules/mt4/service"
	"mt4_gateway/pkg/logger"
)

func NewMux(state *service.State, feed *service.Feed) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"ready":     state.Ready(),
			"uptimeSec": int64(state.Uptime().Seconds()),
			"lastEventUnix": func() int64 {
				t := state.LastEvent()
				if t.IsZero() {
					return 0
				}
				return t.Unix()
			}(),
		}
		w.Header().Set("Content-Type", "application/json")
		body, _ := sonic.Marshal(resp)
		_, _ = w.Write(body)
	})

	mux.Handle("/events", feed)

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Health.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Health.Addr)
			if err != nil {
				return err
			}
			logger.Info("health endpoints listening on %s", cfg.Health.Addr)
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			service.NewFeed,
			NewMux,
		),
		fx.Invoke(func(gw *mt4service.MetaTrader4, feed *service.Feed) {
			gw.AddHandler(feed)
		}),
		fx.Invoke(RunHTTP),
	)
}
