package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	dispatchdomain "github.com/smallbiznis/printfan/internal/dispatch/domain"
	orderdomain "github.com/smallbiznis/printfan/internal/order/domain"
)

const ticketWidth = 32

var ErrNoLines = errors.New("no_lines")

// TextRenderer produces a plain-text ticket. Vendor command sets can be
// layered on per model tag later; plain text prints on anything.
type TextRenderer struct{}

func NewText() *TextRenderer {
	return &TextRenderer{}
}

func Provide() dispatchdomain.Renderer {
	return NewText()
}

func (r *TextRenderer) Render(order orderdomain.Order, lines []orderdomain.LineInstance, modelTag string) ([]byte, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	var buf bytes.Buffer
	rule := strings.Repeat("-", ticketWidth)

	fmt.Fprintf(&buf, "ORDER %s\n", order.Number)
	if order.Label != "" {
		fmt.Fprintf(&buf, "%s\n", order.Label)
	}
	if !order.PlacedAt.IsZero() {
		fmt.Fprintf(&buf, "%s\n", order.PlacedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(&buf, rule)

	for _, line := range lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		fmt.Fprintf(&buf, "%dx %s\n", qty, line.Name)
		for _, mod := range line.Modifiers {
			fmt.Fprintf(&buf, "  + %s\n", mod)
		}
		if line.Instructions != "" {
			fmt.Fprintf(&buf, "  * %s\n", line.Instructions)
		}
	}

	fmt.Fprintln(&buf, rule)
	buf.WriteString("\n\n\n")
	return buf.Bytes(), nil
}
