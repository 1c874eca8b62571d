package render

import (
	"testing"
	"time"

	orderdomain "github.com/smallbiznis/printfan/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTicket(t *testing.T) {
	renderer := NewText()

	order := orderdomain.Order{
		Number:   "42",
		Label:    "Table 7",
		PlacedAt: time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC),
	}
	lines := []orderdomain.LineInstance{
		{InstanceID: "i1", Name: "Fries", Quantity: 2},
		{InstanceID: "i2", Name: "Burger", Quantity: 1, Modifiers: []string{"no onion"}, Instructions: "well done"},
	}

	payload, err := renderer.Render(order, lines, "")
	require.NoError(t, err)

	ticket := string(payload)
	assert.Contains(t, ticket, "ORDER 42")
	assert.Contains(t, ticket, "Table 7")
	assert.Contains(t, ticket, "2025-06-01 19:30")
	assert.Contains(t, ticket, "2x Fries")
	assert.Contains(t, ticket, "1x Burger")
	assert.Contains(t, ticket, "+ no onion")
	assert.Contains(t, ticket, "* well done")
}

func TestRenderRejectsEmptySubset(t *testing.T) {
	renderer := NewText()

	_, err := renderer.Render(orderdomain.Order{Number: "1"}, nil, "")
	assert.ErrorIs(t, err, ErrNoLines)
}

func TestRenderDefaultsQuantityToOne(t *testing.T) {
	renderer := NewText()

	payload, err := renderer.Render(orderdomain.Order{Number: "2"},
		[]orderdomain.LineInstance{{InstanceID: "i1", Name: "Soup"}}, "")
	require.NoError(t, err)
	assert.Contains(t, string(payload), "1x Soup")
}
