// Package registry keeps the hub's catalog of registered tools.
//
// The registry owns tool records for the process lifetime: descriptor,
// instance, and health status. Lookups are frequent and cheap; registration
// and status updates are rare. A reader/writer lock covers both.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/uaesivakumar/agenthub/pkg/errors"
	"github.com/uaesivakumar/agenthub/pkg/tool"
)

// Status is a tool record's health state.
type Status string

const (
	// StatusHealthy means the last probe succeeded (or no probe ran yet).
	StatusHealthy Status = "healthy"

	// StatusDegraded means the tool responds but outside its SLA.
	StatusDegraded Status = "degraded"

	// StatusOffline means the last probe failed; lookups refuse the tool.
	StatusOffline Status = "offline"
)

// record is a live registry entry.
type record struct {
	descriptor   tool.Descriptor
	instance     tool.Tool
	status       Status
	lastHealthAt time.Time
	registeredAt time.Time
}

// Info is the status-bearing descriptor view returned by List.
type Info struct {
	Name           string              `json:"name"`
	DisplayName    string              `json:"display_name"`
	Version        string              `json:"version"`
	Classification tool.Classification `json:"classification"`
	Status         Status              `json:"status"`
	SLA            tool.SLA            `json:"sla"`
	LastHealthAt   time.Time           `json:"last_health_at,omitzero"`
	RegisteredAt   time.Time           `json:"registered_at"`
}

// Registry maps tool names to records.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*record
	logger  *slog.Logger
	now     func() time.Time

	probeMu     sync.Mutex
	probeCancel chan struct{}
	probeDone   sync.WaitGroup
	sweepMu     sync.RWMutex
	sweeps      int
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		records: make(map[string]*record),
		logger:  logger,
		now:     time.Now,
	}
}

// Register adds a tool under its descriptor's name.
// Fails with DUPLICATE_TOOL when the name is taken.
func (r *Registry) Register(desc tool.Descriptor, instance tool.Tool) error {
	if instance == nil {
		return fmt.Errorf("cannot register nil tool instance")
	}
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[desc.Name]; exists {
		return errors.Newf(errors.KindDuplicateTool, "tool already registered: %s", desc.Name)
	}

	r.records[desc.Name] = &record{
		descriptor:   desc,
		instance:     instance,
		status:       StatusHealthy,
		registeredAt: r.now(),
	}

	r.logger.Info("tool registered",
		"tool", desc.Name,
		"version", desc.Version,
		"classification", string(desc.Classification),
	)
	return nil
}

// Get returns the descriptor and instance for a registered tool.
// Fails with TOOL_NOT_FOUND for unknown names and TOOL_OFFLINE for tools the
// health probe has marked offline.
func (r *Registry) Get(name string) (tool.Descriptor, tool.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[name]
	if !exists {
		return tool.Descriptor{}, nil, errors.Newf(errors.KindToolNotFound, "tool not registered: %s", name)
	}
	if rec.status == StatusOffline {
		return tool.Descriptor{}, nil, errors.Newf(errors.KindToolOffline, "tool offline: %s", name)
	}

	return rec.descriptor, rec.instance, nil
}

// Has reports whether a tool is registered, regardless of status.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.records[name]
	return exists
}

// List returns a snapshot of all records sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.records))
	for _, rec := range r.records {
		infos = append(infos, Info{
			Name:           rec.descriptor.Name,
			DisplayName:    rec.descriptor.DisplayName,
			Version:        rec.descriptor.Version,
			Classification: rec.descriptor.Classification,
			Status:         rec.status,
			SLA:            rec.descriptor.SLA,
			LastHealthAt:   rec.lastHealthAt,
			RegisteredAt:   rec.registeredAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Descriptors returns descriptor copies for every registered tool, sorted by
// name. Adapters use this to build their listings.
func (r *Registry) Descriptors() []tool.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]tool.Descriptor, 0, len(r.records))
	for _, rec := range r.records {
		descs = append(descs, rec.descriptor)
	}

	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs
}

// setStatus updates a record's health state.
func (r *Registry) setStatus(name string, status Status, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[name]
	if !exists {
		return
	}
	rec.status = status
	if status == StatusHealthy {
		rec.lastHealthAt = at
	}
}
