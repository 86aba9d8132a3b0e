package exchange

import (
	"fmt"

	"mt4_gateway/internal/models"
)

// RequestError means a request could not be built, sent, or its reply could
// not be parsed; also covers protocol-level rejections that are not
// execution failures.
type RequestError struct {
	Reason string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request error: %s: %v", e.Reason, e.Err)
	}
	return "request error: " + e.Reason
}

func (e *RequestError) Unwrap() error { return e.Err }

// RequestTimeoutError means no reply arrived within the caller's deadline.
// The command channel stays usable after it.
type RequestTimeoutError struct {
	Command string
}

func (e *RequestTimeoutError) Error() string {
	if e.Command == "" {
		return "request timed out"
	}
	return fmt.Sprintf("request '%s' timed out", e.Command)
}

// ExecutionError means the remote terminal rejected an execution attempt.
// Code carries the raw protocol result code; more specific rejections are
// surfaced as the dedicated types below.
type ExecutionError struct {
	Command string
	Code    int
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of command '%s' failed with code %d", e.Command, e.Code)
}

type InvalidSymbolError struct {
	Symbol string
}

func (e *InvalidSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol '%s'", e.Symbol)
}

type OffQuotesError struct {
	Symbol string
	Side   models.Side
	Type   models.OrderType
}

func (e *OffQuotesError) Error() string {
	return fmt.Sprintf("off quotes on %s %s %s order", e.Symbol, e.Side, e.Type)
}

type RequoteError struct {
	Symbol string
}

func (e *RequoteError) Error() string {
	return fmt.Sprintf("requote on symbol '%s'", e.Symbol)
}

type InvalidStopsError struct {
	Symbol string
}

func (e *InvalidStopsError) Error() string {
	return fmt.Sprintf("invalid stops for symbol '%s'", e.Symbol)
}

type InvalidTicketError struct {
	Ticket int
}

func (e *InvalidTicketError) Error() string {
	return fmt.Sprintf("no order with ticket %d", e.Ticket)
}

type InvalidOrderStatusError struct {
	Status string
}

func (e *InvalidOrderStatusError) Error() string {
	return fmt.Sprintf("operation not allowed for order status '%s'", e.Status)
}

type ExchangeRateError struct {
	BaseCurrency  string
	QuoteCurrency string
}

func (e *ExchangeRateError) Error() string {
	return fmt.Sprintf("no exchange rate for pair %s/%s", e.BaseCurrency, e.QuoteCurrency)
}

// UnsupportedOperationError is returned by Unimplemented for operations a
// concrete exchange does not provide, keeping the Exchange contract uniform
// across transports.
type UnsupportedOperationError struct {
	Op string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("operation '%s' is not supported by this exchange", e.Op)
}
