package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/shimmeringbee/retry"

	"zigbee-catalog/internal/reporting"
	"zigbee-catalog/internal/store"
	"zigbee-catalog/internal/zcl"
)

const (
	NetworkTimeout = 3000 * time.Millisecond
	NetworkRetries = 5

	// coordinatorEndpoint is the endpoint bindings point at.
	coordinatorEndpoint uint8 = 1
)

// Configure runs the post-pairing configuration of a device's definition
// against the stack and records the outcome on the device.
func (c *Coordinator) Configure(ctx context.Context, ieee string) error {
	if c.stack == nil {
		return ErrNoStack
	}
	dev, err := c.store.GetDevice(ieee)
	if err != nil {
		return err
	}
	def, ok := c.Definition(dev)
	if !ok {
		return fmt.Errorf("%s (%s): %w", ieee, dev.ZigbeeModel, ErrUnsupported)
	}
	addr, err := ParseIEEE(ieee)
	if err != nil {
		return err
	}

	name := deviceName(dev)
	c.logger.Info("configuring device", "ieee", ieee, "name", name, "model", def.Model, "steps", len(def.Configure))

	sd := &stackDevice{coord: c, dev: dev, addr: addr}
	runErr := def.RunConfigure(ctx, sd)

	err = c.store.UpdateDevice(ieee, func(d *store.Device) error {
		d.Configured = runErr == nil
		d.ConfigureErr = ""
		if runErr != nil {
			d.ConfigureErr = runErr.Error()
		}
		return nil
	})
	if err != nil {
		c.logger.Error("save configure result", "ieee", ieee, "err", err)
	}

	data := map[string]any{"ieee": ieee, "model": def.Model, "configured": runErr == nil}
	if runErr != nil {
		c.logger.Warn("configure failed", "ieee", ieee, "name", name, "err", runErr)
		data["error"] = runErr.Error()
	} else {
		c.logger.Info("device configured", "ieee", ieee, "name", name)
	}
	c.events.Emit(Event{Type: EventDeviceConfigured, Data: data})
	return runErr
}

// stackDevice presents a stored device to configure steps. Network calls go
// through the stack, cache writes go to the store.
type stackDevice struct {
	coord *Coordinator
	dev   *store.Device
	addr  [8]byte
}

func (d *stackDevice) IEEEAddress() string { return d.dev.IEEEAddress }

func (d *stackDevice) Endpoint(id uint8) (reporting.Endpoint, bool) {
	ep := d.dev.FindEndpoint(id)
	if ep == nil {
		return nil, false
	}
	return &stackEndpoint{device: d, ep: ep}, true
}

func (d *stackDevice) Endpoints() []reporting.Endpoint {
	out := make([]reporting.Endpoint, 0, len(d.dev.Endpoints))
	for i := range d.dev.Endpoints {
		out = append(out, &stackEndpoint{device: d, ep: &d.dev.Endpoints[i]})
	}
	return out
}

type stackEndpoint struct {
	device *stackDevice
	ep     *store.Endpoint
}

func (e *stackEndpoint) ID() uint8 { return e.ep.ID }

func (e *stackEndpoint) ClusterAttributeValue(cluster, attr string) (any, bool) {
	return endpointCache{e.ep}.ClusterAttributeValue(cluster, attr)
}

func (e *stackEndpoint) HasInputCluster(cluster string) bool {
	def := e.device.coord.registry.ByName(cluster)
	return def != nil && e.ep.HasInCluster(def.ID)
}

func (e *stackEndpoint) cluster(name string) (*zcl.ClusterDef, error) {
	def := e.device.coord.registry.ByName(name)
	if def == nil {
		return nil, fmt.Errorf("unknown cluster %q", name)
	}
	return def, nil
}

func (e *stackEndpoint) Bind(ctx context.Context, cluster string) error {
	def, err := e.cluster(cluster)
	if err != nil {
		return err
	}
	c := e.device.coord
	req := BindRequest{
		TargetShortAddr: e.device.dev.ShortAddress,
		SrcIEEE:         e.device.addr,
		SrcEP:           e.ep.ID,
		ClusterID:       def.ID,
		DstIEEE:         c.stack.LocalIEEE(),
		DstEP:           coordinatorEndpoint,
	}
	err = retry.Retry(ctx, NetworkTimeout, NetworkRetries, func(ctx context.Context) error {
		return c.stack.Bind(ctx, req)
	})
	if err != nil {
		return err
	}
	c.logger.Info("bound cluster", "ieee", e.device.dev.IEEEAddress, "ep", e.ep.ID, "cluster", cluster)
	return nil
}

func (e *stackEndpoint) Read(ctx context.Context, cluster string, attrs []string) error {
	def, err := e.cluster(cluster)
	if err != nil {
		return err
	}
	ids := make([]uint16, 0, len(attrs))
	for _, name := range attrs {
		a := def.FindAttributeByName(name)
		if a == nil {
			return fmt.Errorf("unknown attribute %s.%s", cluster, name)
		}
		ids = append(ids, a.ID)
	}

	c := e.device.coord
	req := ReadAttributesRequest{
		DstAddr:   e.device.dev.ShortAddress,
		DstEP:     e.ep.ID,
		ClusterID: def.ID,
		AttrIDs:   ids,
	}
	var responses []AttributeResponse
	err = retry.Retry(ctx, NetworkTimeout, NetworkRetries, func(ctx context.Context) error {
		var err error
		responses, err = c.stack.ReadAttributes(ctx, req)
		return err
	})
	if err != nil {
		return err
	}

	values := make(map[string]any, len(responses))
	for _, r := range responses {
		a := def.FindAttribute(r.AttrID)
		if a == nil {
			continue
		}
		if r.Status != zcl.ZCLStatusSuccess {
			c.logger.Debug("read attribute status", "ieee", e.device.dev.IEEEAddress, "attr", a.Name, "status", fmt.Sprintf("0x%02X", r.Status))
			continue
		}
		val, _, err := zcl.DecodeValue(r.DataType, r.Value)
		if err != nil {
			c.logger.Warn("decode read response", "attr", a.Name, "err", err)
			continue
		}
		values[a.Name] = val
	}
	if len(values) == 0 {
		return nil
	}
	return e.SaveClusterAttributes(cluster, values)
}

func (e *stackEndpoint) ConfigureReporting(ctx context.Context, cluster string, items []reporting.Item) error {
	def, err := e.cluster(cluster)
	if err != nil {
		return err
	}
	c := e.device.coord
	for _, it := range items {
		a := def.FindAttributeByName(it.Attribute)
		if a == nil {
			return fmt.Errorf("unknown attribute %s.%s", cluster, it.Attribute)
		}
		var change []byte
		if zcl.IsAnalog(a.Type) {
			change, err = zcl.EncodeValue(a.Type, it.Change)
			if err != nil {
				return fmt.Errorf("encode reportable change of %s.%s: %w", cluster, it.Attribute, err)
			}
		}
		req := ConfigureReportingRequest{
			DstAddr:      e.device.dev.ShortAddress,
			DstEP:        e.ep.ID,
			ClusterID:    def.ID,
			AttrID:       a.ID,
			DataType:     a.Type,
			MinInterval:  it.Min,
			MaxInterval:  it.Max,
			ReportChange: change,
		}
		err = retry.Retry(ctx, NetworkTimeout, NetworkRetries, func(ctx context.Context) error {
			return c.stack.ConfigureReporting(ctx, req)
		})
		if err != nil {
			return err
		}
		c.logger.Info("configured reporting", "ieee", e.device.dev.IEEEAddress, "ep", e.ep.ID,
			"cluster", cluster, "attr", it.Attribute, "min", it.Min, "max", it.Max, "change", it.Change)
	}
	return nil
}

// SaveClusterAttributes writes values into the local copy and the store.
func (e *stackEndpoint) SaveClusterAttributes(cluster string, values map[string]any) error {
	e.ep.SetAttributes(cluster, values)
	id := e.ep.ID
	return e.device.coord.store.UpdateDevice(e.device.dev.IEEEAddress, func(dev *store.Device) error {
		ep := dev.FindEndpoint(id)
		if ep == nil {
			return fmt.Errorf("endpoint %d not stored", id)
		}
		ep.SetAttributes(cluster, values)
		return nil
	})
}
