package service

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"mt4_gateway/internal/exchange"
	"mt4_gateway/internal/models"
	"mt4_gateway/pkg/logger"
)

const feedSendBuffer = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Feed republishes gateway events to websocket subscribers as JSON lines.
// It is an observability surface for dashboards and debugging, not a second
// trading API: delivery is best effort and slow clients are dropped.
type Feed struct {
	exchange.NopHandler

	state *State

	mu    sync.Mutex
	conns map[*websocket.Conn]chan []byte
}

func NewFeed(state *State) *Feed {
	return &Feed{
		state: state,
		conns: make(map[*websocket.Conn]chan []byte),
	}
}

var _ exchange.EventHandler = (*Feed)(nil)

// ServeHTTP upgrades the connection and streams events until the client
// goes away.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("event feed upgrade failed: %v", err)
		return
	}

	send := make(chan []byte, feedSendBuffer)
	f.mu.Lock()
	f.conns[conn] = send
	f.mu.Unlock()

	go f.writeLoop(conn, send)
	go f.readLoop(conn)
}

func (f *Feed) writeLoop(conn *websocket.Conn, send chan []byte) {
	defer f.drop(conn)
	for msg := range send {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readLoop discards client frames; it exists to notice the close handshake.
func (f *Feed) readLoop(conn *websocket.Conn) {
	defer f.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) drop(conn *websocket.Conn) {
	f.mu.Lock()
	send, ok := f.conns[conn]
	delete(f.conns, conn)
	f.mu.Unlock()
	if ok {
		close(send)
	}
	_ = conn.Close()
}

func (f *Feed) broadcast(v interface{}) {
	f.state.TouchEvent()

	msg, err := sonic.Marshal(v)
	if err != nil {
		logger.Error("event feed marshal failed: %v", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn, send := range f.conns {
		select {
		case send <- msg:
		default:
			// Backpressure means a dead or hopeless client.
			delete(f.conns, conn)
			close(send)
			_ = conn.Close()
		}
	}
}

type feedMessage struct {
	Event  string      `json:"event"`
	Symbol string      `json:"symbol,omitempty"`
	Ticket int         `json:"ticket,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

func (f *Feed) OnTickReceived(symbol string, tick models.Tick) {
	f.broadcast(feedMessage{Event: "tick", Symbol: symbol, Data: map[string]interface{}{
		"time": tick.Time.Unix(),
		"bid":  tick.Bid,
		"ask":  tick.Ask,
	}})
}

func (f *Feed) OnBarClosed(symbol string, bar models.Bar) {
	f.broadcast(feedMessage{Event: "bar", Symbol: symbol, Data: map[string]interface{}{
		"time":   bar.Time.Unix(),
		"open":   bar.Open,
		"high":   bar.High,
		"low":    bar.Low,
		"close":  bar.Close,
		"volume": bar.Volume,
	}})
}

func (f *Feed) OnOrderOpened(ticket int)   { f.broadcast(feedMessage{Event: "orderOpened", Ticket: ticket}) }
func (f *Feed) OnOrderFilled(ticket int)   { f.broadcast(feedMessage{Event: "orderFilled", Ticket: ticket}) }
func (f *Feed) OnOrderClosed(ticket int)   { f.broadcast(feedMessage{Event: "orderClosed", Ticket: ticket}) }
func (f *Feed) OnOrderCanceled(ticket int) { f.broadcast(feedMessage{Event: "orderCanceled", Ticket: ticket}) }
func (f *Feed) OnOrderExpired(ticket int)  { f.broadcast(feedMessage{Event: "orderExpired", Ticket: ticket}) }
func (f *Feed) OnOrderModified(ticket int) { f.broadcast(feedMessage{Event: "orderModified", Ticket: ticket}) }
func (f *Feed) OnOrderUpdated(ticket int)  { f.broadcast(feedMessage{Event: "orderUpdated", Ticket: ticket}) }

func (f *Feed) OnAccountUpdated(account *models.Account) {
	f.broadcast(feedMessage{Event: "account", Data: map[string]interface{}{
		"equity":     account.Equity,
		"balance":    account.Balance,
		"margin":     account.Margin,
		"freeMargin": account.FreeMargin,
		"profit":     account.Profit,
	}})
}
