package domain

import "time"

// LineInstance is one expanded unit of an order line. Quantity survives on
// the instance so tickets can show "2x Fries" without re-grouping.
type LineInstance struct {
	InstanceID   string   `json:"instance_id"`
	MenuItemID   string   `json:"menu_item_id"`
	CategoryID   string   `json:"category_id"`
	Name         string   `json:"name"`
	Quantity     int      `json:"quantity"`
	Instructions string   `json:"instructions,omitempty"`
	Modifiers    []string `json:"modifiers,omitempty"`
}

type Order struct {
	Number   string         `json:"number"`
	Label    string         `json:"label,omitempty"`
	PlacedAt time.Time      `json:"placed_at"`
	Lines    []LineInstance `json:"lines"`
}
