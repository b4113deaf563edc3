package interfaces

import (
	"context"

	"github.com/KevinKickass/OpenPowerCore/internal/config"
	"github.com/KevinKickass/OpenPowerCore/internal/power"
	"github.com/KevinKickass/OpenPowerCore/internal/storage"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State            string `json:"state"`
	Board            string `json:"board"`
	InterfaceCount   int    `json:"interface_count"`
	ModulePortCount  int    `json:"module_port_count"`
	PluggedCount     int    `json:"plugged_count"`
	PoweredCount     int    `json:"powered_count"`
	SamplerRunning   bool   `json:"sampler_running"`
	JournalEnabled   bool   `json:"journal_enabled"`
	WebsocketClients int    `json:"websocket_clients"`
}

// EventReader reads the persisted event journal.
type EventReader interface {
	ListEvents(ctx context.Context, iface string, limit int) ([]storage.EventRecord, error)
}

type LifecycleManager interface {
	Config() *config.Config
	PowerService() *power.Service
	// Events is nil when the journal is disabled.
	Events() EventReader
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
