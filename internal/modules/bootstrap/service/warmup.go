package service

import (
	"context"

	"mt4_gateway/internal/exchange"
	"mt4_gateway/pkg/logger"
)

// Warmuper primes the gateway after startup: account, instrument metadata
// and the configured quote subscriptions. Everything it loads would also be
// fetched lazily; warming up just moves the latency to boot time.
type Warmuper struct {
	ex exchange.Exchange
}

func NewWarmuper(ex exchange.Exchange) *Warmuper {
	return &Warmuper{ex: ex}
}

func (w *Warmuper) Warmup(ctx context.Context, symbols []string) error {
	account, err := w.ex.Account(ctx)
	if err != nil {
		return err
	}
	logger.Info("connected to account %d (%s) at %s", account.Login, account.Currency, account.Server)

	instruments, err := w.ex.GetInstruments(ctx)
	if err != nil {
		return err
	}
	logger.Info("loaded %d instruments", len(instruments))

	for _, symbol := range symbols {
		if symbol == "*" {
			if err := w.ex.SubscribeAll(ctx); err != nil {
				return err
			}
			logger.Info("subscribed to all symbols")
			continue
		}
		if err := w.ex.Subscribe(ctx, symbol); err != nil {
			return err
		}
		logger.Info("subscribed to %s", symbol)
	}
	return nil
}
