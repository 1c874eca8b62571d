package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	orderdomain "github.com/smallbiznis/printfan/internal/order/domain"
	printerdomain "github.com/smallbiznis/printfan/internal/printer/domain"
)

// OutcomeStatus is the final classification of one printer's send.
type OutcomeStatus string

const (
	StatusSuccess           OutcomeStatus = "success"
	StatusTimeout           OutcomeStatus = "timeout"
	StatusConnectionRefused OutcomeStatus = "connection_refused"
	StatusSendError         OutcomeStatus = "send_error"
	StatusRenderError       OutcomeStatus = "render_error"
	StatusUnknownPrinter    OutcomeStatus = "unknown_printer"
	StatusCanceled          OutcomeStatus = "canceled"
)

func (s OutcomeStatus) Success() bool {
	return s == StatusSuccess
}

// Outcome records how one printer's send finished.
type Outcome struct {
	PrinterID   snowflake.ID  `json:"printer_id"`
	PrinterName string        `json:"printer_name,omitempty"`
	Status      OutcomeStatus `json:"status"`
	Attempts    int           `json:"attempts"`
	LastError   string        `json:"last_error,omitempty"`
	Duration    time.Duration `json:"duration_ms"`
}

// Result is the full answer to one dispatch call: every target printer's
// outcome plus whatever lines no printer claimed.
type Result struct {
	RunID      uuid.UUID                     `json:"run_id"`
	Outcomes   map[snowflake.ID]Outcome      `json:"outcomes"`
	Unassigned []orderdomain.LineInstance    `json:"unassigned,omitempty"`
}

func (r Result) AllSucceeded() bool {
	for _, o := range r.Outcomes {
		if !o.Status.Success() {
			return false
		}
	}
	return len(r.Unassigned) == 0
}

// Options narrows a dispatch run. PrinterFilter, when non-empty, limits
// sends to that subset so a caller can retry only the printers that
// failed last time.
type Options struct {
	PrinterFilter []snowflake.ID
}

// Renderer turns an order slice into the byte payload one printer gets.
type Renderer interface {
	Render(order orderdomain.Order, lines []orderdomain.LineInstance, modelTag string) ([]byte, error)
}

// Transport delivers a rendered payload to a printer endpoint. The
// implementation owns connecting, writing, and closing within ctx.
type Transport interface {
	Send(ctx context.Context, endpoint printerdomain.PrinterEndpoint, payload []byte) error
}

type Service interface {
	// Dispatch segregates the order, sends one rendered ticket per target
	// printer, and returns only after every printer has a final outcome.
	Dispatch(ctx context.Context, order orderdomain.Order, opts Options) (Result, error)
}
