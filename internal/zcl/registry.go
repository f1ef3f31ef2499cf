package zcl

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds all known ZCL cluster definitions, indexed by ID and by
// catalog name.
type Registry struct {
	mu       sync.RWMutex
	clusters map[uint16]*ClusterDef
	byName   map[string]uint16
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		clusters: make(map[uint16]*ClusterDef),
		byName:   make(map[string]uint16),
		logger:   logger,
	}
}

// Register adds a cluster definition, merging into an existing one with the
// same ID.
func (r *Registry) Register(c ClusterDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clusters[c.ID]; ok {
		existing.Merge(&c)
		r.logger.Debug("cluster merged", "id", fmt.Sprintf("0x%04X", c.ID), "name", existing.Name)
		return
	}
	r.clusters[c.ID] = c.DeepCopy()
	if c.Name != "" {
		r.byName[c.Name] = c.ID
	}
	r.logger.Debug("cluster registered", "id", fmt.Sprintf("0x%04X", c.ID), "name", c.Name)
}

// Get returns a deep copy of a cluster definition, or nil if not found.
func (r *Registry) Get(id uint16) *ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.clusters[id]
	if c == nil {
		return nil
	}
	return c.DeepCopy()
}

// ByName returns a deep copy of the cluster with the given catalog name.
func (r *Registry) ByName(name string) *ClusterDef {
	r.mu.RLock()
	id, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return r.Get(id)
}

// Attribute resolves a (cluster name, attribute name) pair.
func (r *Registry) Attribute(cluster, attr string) (uint16, AttributeDef, error) {
	c := r.ByName(cluster)
	if c == nil {
		return 0, AttributeDef{}, fmt.Errorf("zcl: unknown cluster %q", cluster)
	}
	a := c.FindAttributeByName(attr)
	if a == nil {
		return 0, AttributeDef{}, fmt.Errorf("zcl: unknown attribute %s.%s", cluster, attr)
	}
	return c.ID, *a, nil
}

// All returns deep copies of all registered clusters, ordered by ID.
func (r *Registry) All() []ClusterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ClusterDef, 0, len(r.clusters))
	for _, c := range r.clusters {
		result = append(result, *c.DeepCopy())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
