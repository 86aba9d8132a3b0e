package runner

import (
	"mt4_gateway/internal/exchange"
	"mt4_gateway/internal/models"
	"mt4_gateway/internal/notify"
)

// orderNotifier pushes human-readable order lifecycle messages. Ticks, bars
// and account churn are too chatty for a notification channel and stay out.
type orderNotifier struct {
	exchange.NopHandler

	ex exchange.Exchange
	n  notify.Notifier
}

func newOrderNotifier(ex exchange.Exchange, n notify.Notifier) *orderNotifier {
	return &orderNotifier{ex: ex, n: n}
}

var _ exchange.EventHandler = (*orderNotifier)(nil)

func (h *orderNotifier) describe(ticket int, verb string) {
	order, ok := h.ex.Orders()[ticket]
	if !ok {
		h.n.Sendf("order #%d %s", ticket, verb)
		return
	}
	h.n.Sendf("order #%d %s: %s %s %.2f lots %s @ %.5f",
		ticket, verb, order.Side, order.Type, order.Lots, order.Symbol, price(order))
}

func price(o models.Order) float64 {
	if o.Status == models.Closed {
		return o.ClosePrice
	}
	return o.OpenPrice
}

func (h *orderNotifier) OnOrderOpened(ticket int)   { h.describe(ticket, "opened") }
func (h *orderNotifier) OnOrderFilled(ticket int)   { h.describe(ticket, "filled") }
func (h *orderNotifier) OnOrderClosed(ticket int)   { h.describe(ticket, "closed") }
func (h *orderNotifier) OnOrderCanceled(ticket int) { h.describe(ticket, "canceled") }
func (h *orderNotifier) OnOrderExpired(ticket int)  { h.describe(ticket, "expired") }
