package domain

import (
	"net"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
)

// TransportKind is how the host reaches the printer hardware.
type TransportKind string

const (
	TransportNetwork TransportKind = "network"
	TransportSerial  TransportKind = "serial"
)

func (k TransportKind) Valid() bool {
	switch k {
	case TransportNetwork, TransportSerial:
		return true
	default:
		return false
	}
}

// HealthState is the monitor's best-effort reachability classification.
type HealthState string

const (
	HealthUnknown  HealthState = "unknown"
	HealthOnline   HealthState = "online"
	HealthOffline  HealthState = "offline"
	HealthDegraded HealthState = "degraded"
)

type PrinterEndpoint struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name         string        `gorm:"not null" json:"name"`
	Address      string        `gorm:"not null" json:"address"`
	Port         int           `gorm:"not null" json:"port"`
	// No column defaults: gorm omits zero-valued fields that carry a
	// default tag on Create, which would silently rewrite Active=false
	// (and friends) on insert. The service fills defaults instead.
	Transport    TransportKind `gorm:"not null" json:"transport"`
	ModelTag     string        `json:"model_tag,omitempty"`
	Active       bool          `gorm:"not null" json:"active"`
	Health       HealthState   `gorm:"not null" json:"health"`
	LastProbedAt *time.Time    `json:"last_probed_at,omitempty"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`
}

func (PrinterEndpoint) TableName() string {
	return "printer_endpoints"
}

// HostPort returns the dialable address for network printers.
func (p PrinterEndpoint) HostPort() string {
	return net.JoinHostPort(p.Address, strconv.Itoa(p.Port))
}
