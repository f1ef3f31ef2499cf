// Package coordinator glues the device catalog to a Zigbee stack: it keeps
// the endpoint attribute cache, runs from-zigbee converters on incoming
// reports and drives post-pairing configuration.
package coordinator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zigbee-catalog/internal/devices"
	"zigbee-catalog/internal/fz"
	"zigbee-catalog/internal/store"
	"zigbee-catalog/internal/zcl"
)

var (
	ErrNoStack     = errors.New("no zigbee stack attached")
	ErrUnsupported = errors.New("device not supported by catalog")
)

// Coordinator routes stack traffic through the catalog.
type Coordinator struct {
	stack    Stack
	store    store.Store
	registry *zcl.Registry
	catalog  *devices.Catalog
	dedup    *fz.Deduper
	events   *EventBus
	logger   *slog.Logger
}

// New creates a Coordinator. stack may be nil when only report decoding is
// needed; Configure then fails with ErrNoStack.
func New(stack Stack, st store.Store, registry *zcl.Registry, catalog *devices.Catalog, events *EventBus, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		stack:    stack,
		store:    st,
		registry: registry,
		catalog:  catalog,
		dedup:    fz.NewDeduper(),
		events:   events,
		logger:   logger.With("component", "coordinator"),
	}
}

// Store returns the store.
func (c *Coordinator) Store() store.Store {
	return c.store
}

// Registry returns the ZCL registry.
func (c *Coordinator) Registry() *zcl.Registry {
	return c.registry
}

// Catalog returns the device catalog.
func (c *Coordinator) Catalog() *devices.Catalog {
	return c.catalog
}

// Events returns the event bus.
func (c *Coordinator) Events() *EventBus {
	return c.events
}

// deviceName returns a human-readable display name for a device.
func deviceName(dev *store.Device) string {
	if dev == nil {
		return ""
	}
	if dev.FriendlyName != "" {
		return dev.FriendlyName
	}
	if dev.Model != "" {
		return dev.Model
	}
	return dev.ZigbeeModel
}

// Definition returns the catalog definition of a stored device.
func (c *Coordinator) Definition(dev *store.Device) (*devices.Definition, bool) {
	if dev.Model != "" {
		if def, ok := c.catalog.FindByModel(dev.Model); ok {
			return def, true
		}
	}
	return c.catalog.FindByZigbeeModel(dev.ZigbeeModel)
}

// Interview registers a device the stack has paired and interviewed,
// matching its modelId against the catalog. Cached attributes of known
// endpoints survive a re-interview.
func (c *Coordinator) Interview(ieee, manufacturer, zigbeeModel string, endpoints []store.Endpoint) (*store.Device, error) {
	if _, err := ParseIEEE(ieee); err != nil {
		return nil, err
	}

	dev, err := c.store.GetDevice(ieee)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get device %s: %w", ieee, err)
		}
		dev = &store.Device{IEEEAddress: ieee, JoinedAt: time.Now()}
	}

	for i := range endpoints {
		if prev := dev.FindEndpoint(endpoints[i].ID); prev != nil && endpoints[i].Attributes == nil {
			endpoints[i].Attributes = prev.Attributes
		}
	}
	dev.Manufacturer = manufacturer
	dev.ZigbeeModel = zigbeeModel
	dev.Endpoints = endpoints
	dev.Interviewed = true
	dev.LastSeen = time.Now()
	dev.Model = ""

	if def, ok := c.catalog.FindByZigbeeModel(zigbeeModel); ok {
		dev.Model = def.Model
		c.logger.Info("device interviewed", "ieee", ieee, "zigbee_model", zigbeeModel, "model", def.Model, "vendor", def.Vendor)
	} else {
		c.logger.Warn("no device definition found", "ieee", ieee, "manufacturer", manufacturer, "zigbee_model", zigbeeModel)
	}

	if err := c.store.SaveDevice(dev); err != nil {
		return nil, fmt.Errorf("save device %s: %w", ieee, err)
	}
	c.dedup.Forget(ieee)

	c.events.Emit(Event{
		Type: EventDeviceInterviewed,
		Data: map[string]any{
			"ieee":         ieee,
			"zigbee_model": zigbeeModel,
			"model":        dev.Model,
			"supported":    dev.Model != "",
		},
	})
	return dev, nil
}

// RemoveDevice forgets a device.
func (c *Coordinator) RemoveDevice(ieee string) error {
	if _, err := c.store.GetDevice(ieee); err != nil {
		return err
	}
	if err := c.store.DeleteDevice(ieee); err != nil {
		return fmt.Errorf("delete device %s: %w", ieee, err)
	}
	c.dedup.Forget(ieee)
	c.logger.Info("device removed", "ieee", ieee)
	c.events.Emit(Event{Type: EventDeviceRemoved, Data: map[string]any{"ieee": ieee}})
	return nil
}

// decodeRecords resolves attribute names and decodes values. Records that
// fail to decode are logged and dropped.
func (c *Coordinator) decodeRecords(cluster *zcl.ClusterDef, records []AttributeRecord) map[string]any {
	data := make(map[string]any, len(records))
	for _, r := range records {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("0x%04X", r.AttrID)
			if cluster != nil {
				if attr := cluster.FindAttribute(r.AttrID); attr != nil {
					name = attr.Name
				}
			}
		}

		if len(r.Raw) == 0 {
			if r.Value != nil {
				data[name] = r.Value
			}
			continue
		}
		val, _, err := zcl.DecodeValue(r.DataType, r.Raw)
		if err != nil {
			c.logger.Warn("decode attribute", "attr", name, "type", zcl.TypeName(r.DataType), "raw", fmt.Sprintf("%X", r.Raw), "err", err)
			continue
		}
		data[name] = val
	}
	return data
}

// HandleAttributeReport updates the endpoint attribute cache with a report,
// runs the device's converters over it and merges the result into the
// device state. It returns the converted payload, nil when nothing was
// published.
func (c *Coordinator) HandleAttributeReport(evt AttributeReportEvent) (fz.Payload, error) {
	var cluster *zcl.ClusterDef
	if evt.Cluster != "" {
		cluster = c.registry.ByName(evt.Cluster)
		if cluster == nil {
			return nil, fmt.Errorf("unknown cluster %q", evt.Cluster)
		}
	} else {
		cluster = c.registry.Get(evt.ClusterID)
	}
	clusterName := fmt.Sprintf("0x%04X", evt.ClusterID)
	if cluster != nil {
		clusterName = cluster.Name
	}

	msgType := evt.Type
	if msgType == "" && evt.CommandID != 0 {
		if msgType = zcl.MessageType(evt.CommandID); msgType == "" {
			return nil, fmt.Errorf("unsupported foundation command 0x%02X", evt.CommandID)
		}
	}
	if msgType == "" {
		msgType = fz.TypeAttributeReport
	}
	if msgType != fz.TypeAttributeReport && msgType != fz.TypeReadResponse {
		return nil, fmt.Errorf("unsupported message type %q", evt.Type)
	}

	data := c.decodeRecords(cluster, evt.Records)

	var (
		payload fz.Payload
		state   map[string]any
		model   string
		name    string
	)
	err := c.store.UpdateDevice(evt.IEEE, func(dev *store.Device) error {
		dev.LastSeen = time.Now()
		if evt.LQI > 0 {
			dev.LQI = evt.LQI
		}
		ep := dev.FindEndpoint(evt.Endpoint)
		if ep == nil {
			dev.Endpoints = append(dev.Endpoints, store.Endpoint{ID: evt.Endpoint})
			ep = &dev.Endpoints[len(dev.Endpoints)-1]
		}
		ep.SetAttributes(clusterName, data)
		name = deviceName(dev)

		def, ok := c.Definition(dev)
		if !ok {
			return nil
		}
		model = def.Model
		msg := &fz.Message{
			Type:        msgType,
			Cluster:     clusterName,
			Device:      dev.IEEEAddress,
			Endpoint:    endpointCache{ep},
			Data:        data,
			Unsequenced: evt.TransactionSeq == nil,
			LinkQuality: evt.LQI,
		}
		if evt.TransactionSeq != nil {
			msg.TransactionSequence = *evt.TransactionSeq
		}
		payload = def.Convert(msg, &fz.Meta{Dedup: c.dedup, State: dev.State, Logger: c.logger})
		if len(payload) == 0 {
			return nil
		}
		if dev.State == nil {
			dev.State = make(map[string]any, len(payload))
		}
		for k, v := range payload {
			dev.State[k] = v
		}
		state = make(map[string]any, len(dev.State))
		for k, v := range dev.State {
			state[k] = v
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("attribute report from %s: %w", evt.IEEE, err)
	}

	c.logger.Debug("attribute report",
		"ieee", evt.IEEE,
		"name", name,
		"endpoint", evt.Endpoint,
		"cluster", clusterName,
		"type", msgType,
		"data", data,
	)

	c.events.Emit(Event{
		Type: EventAttributeReport,
		Data: map[string]any{
			"ieee":         evt.IEEE,
			"endpoint":     evt.Endpoint,
			"cluster_id":   evt.ClusterID,
			"cluster_name": clusterName,
			"type":         msgType,
			"data":         data,
		},
	})

	if len(payload) > 0 {
		c.logger.Info("state update", "ieee", evt.IEEE, "name", name, "payload", map[string]any(payload))
		c.events.Emit(Event{
			Type: EventStateUpdate,
			Data: StateUpdate{IEEE: evt.IEEE, Model: model, Payload: payload, State: state},
		})
	}
	return payload, nil
}

// endpointCache exposes a stored endpoint's attribute cache to converters.
type endpointCache struct {
	ep *store.Endpoint
}

func (e endpointCache) ID() uint8 { return e.ep.ID }

func (e endpointCache) ClusterAttributeValue(cluster, attr string) (any, bool) {
	v, ok := e.ep.Attributes[cluster][attr]
	return v, ok
}
