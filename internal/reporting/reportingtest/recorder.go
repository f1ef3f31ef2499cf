// Package reportingtest provides an in-memory reporting.Device that records
// every configure call.
package reportingtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"zigbee-catalog/internal/reporting"
)

// Call is one recorded operation, e.g. "bind seMetering" or
// "configure haElectricalMeasurement rmsVoltage 5/5/0".
type Call struct {
	Endpoint uint8
	Op       string
}

type Device struct {
	IEEE string

	mu        sync.Mutex
	endpoints map[uint8]*Endpoint
	calls     []Call
	// ReadValues answers Read requests: cluster -> attr -> value.
	ReadValues map[string]map[string]any
	// Fail makes operations whose Op string has this prefix return an error.
	Fail string
}

func NewDevice(ieee string, endpoints map[uint8][]string) *Device {
	d := &Device{IEEE: ieee, endpoints: make(map[uint8]*Endpoint)}
	for id, clusters := range endpoints {
		d.endpoints[id] = &Endpoint{dev: d, id: id, clusters: clusters, cache: map[string]map[string]any{}}
	}
	return d
}

func (d *Device) IEEEAddress() string { return d.IEEE }

func (d *Device) Endpoint(id uint8) (reporting.Endpoint, bool) {
	ep, ok := d.endpoints[id]
	if !ok {
		return nil, false
	}
	return ep, true
}

func (d *Device) Endpoints() []reporting.Endpoint {
	ids := make([]int, 0, len(d.endpoints))
	for id := range d.endpoints {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	eps := make([]reporting.Endpoint, 0, len(ids))
	for _, id := range ids {
		eps = append(eps, d.endpoints[uint8(id)])
	}
	return eps
}

// Calls returns the recorded operations in order.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Ops returns the recorded operations of one endpoint as strings.
func (d *Device) Ops(ep uint8) []string {
	var ops []string
	for _, c := range d.Calls() {
		if c.Endpoint == ep {
			ops = append(ops, c.Op)
		}
	}
	return ops
}

// Cache returns a copy of an endpoint's attribute cache for one cluster.
func (d *Device) Cache(ep uint8, cluster string) map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := map[string]any{}
	if e, ok := d.endpoints[ep]; ok {
		for k, v := range e.cache[cluster] {
			out[k] = v
		}
	}
	return out
}

func (d *Device) record(ep uint8, op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Endpoint: ep, Op: op})
	if d.Fail != "" && strings.HasPrefix(op, d.Fail) {
		return fmt.Errorf("%s: injected failure", op)
	}
	return nil
}

type Endpoint struct {
	dev      *Device
	id       uint8
	clusters []string
	cache    map[string]map[string]any
}

func (e *Endpoint) ID() uint8 { return e.id }

func (e *Endpoint) ClusterAttributeValue(cluster, attr string) (any, bool) {
	e.dev.mu.Lock()
	defer e.dev.mu.Unlock()
	v, ok := e.cache[cluster][attr]
	return v, ok
}

func (e *Endpoint) HasInputCluster(cluster string) bool {
	for _, c := range e.clusters {
		if c == cluster {
			return true
		}
	}
	return false
}

func (e *Endpoint) Bind(ctx context.Context, cluster string) error {
	return e.dev.record(e.id, "bind "+cluster)
}

func (e *Endpoint) Read(ctx context.Context, cluster string, attrs []string) error {
	if err := e.dev.record(e.id, "read "+cluster+" "+strings.Join(attrs, ",")); err != nil {
		return err
	}
	values := map[string]any{}
	for _, a := range attrs {
		if v, ok := e.dev.ReadValues[cluster][a]; ok {
			values[a] = v
		}
	}
	if len(values) > 0 {
		return e.SaveClusterAttributes(cluster, values)
	}
	return nil
}

func (e *Endpoint) ConfigureReporting(ctx context.Context, cluster string, items []reporting.Item) error {
	for _, it := range items {
		op := fmt.Sprintf("configure %s %s %d/%d/%g", cluster, it.Attribute, it.Min, it.Max, it.Change)
		if err := e.dev.record(e.id, op); err != nil {
			return err
		}
	}
	return nil
}

func (e *Endpoint) SaveClusterAttributes(cluster string, values map[string]any) error {
	e.dev.mu.Lock()
	defer e.dev.mu.Unlock()
	if e.cache[cluster] == nil {
		e.cache[cluster] = map[string]any{}
	}
	for k, v := range values {
		e.cache[cluster][k] = v
	}
	return nil
}
