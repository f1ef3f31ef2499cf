package devices

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"zigbee-catalog/internal/exposes"
	"zigbee-catalog/internal/fz"
	"zigbee-catalog/internal/reporting"
)

// ConfigureStep is one named part of a definition's post-pairing
// configuration.
type ConfigureStep struct {
	Name string
	Run  func(ctx context.Context, dev reporting.Device) error
}

// Definition is a built, ready-to-use device descriptor.
type Definition struct {
	ZigbeeModels []string
	Model        string
	Vendor       string
	Description  string

	FromZigbee []*fz.Converter
	Exposes    []exposes.Expose
	Configure  []ConfigureStep

	endpoints         map[string]uint8
	multiEndpoint     bool
	multiEndpointSkip []string
	publishDuplicate  bool
}

// MultiEndpoint reports whether properties carry an endpoint suffix.
func (d *Definition) MultiEndpoint() bool { return d.multiEndpoint }

// EndpointName returns the configured name of an endpoint ID.
func (d *Definition) EndpointName(id uint8) (string, bool) {
	for name, epID := range d.endpoints {
		if epID == id {
			return name, true
		}
	}
	return "", false
}

// PropertyName suffixes base with the endpoint name (or ID when unnamed) on
// multi-endpoint models, unless base is in the skip list.
func (d *Definition) PropertyName(base string, msg *fz.Message) string {
	if !d.multiEndpoint || msg.Endpoint == nil || slices.Contains(d.multiEndpointSkip, base) {
		return base
	}
	id := msg.Endpoint.ID()
	if name, ok := d.EndpointName(id); ok {
		return base + "_" + name
	}
	return base + "_" + strconv.Itoa(int(id))
}

func (d *Definition) PublishDuplicateTransaction() bool { return d.publishDuplicate }

// ConvertersFor returns the converters that handle msg, in definition order.
func (d *Definition) ConvertersFor(msg *fz.Message) []*fz.Converter {
	var out []*fz.Converter
	for _, c := range d.FromZigbee {
		if c.Matches(msg) {
			out = append(out, c)
		}
	}
	return out
}

// Convert runs every matching converter and merges their payloads; later
// converters win on conflicting properties. It returns nil when every
// converter declined the message. A non-empty payload carries linkquality
// when the message has one.
func (d *Definition) Convert(msg *fz.Message, meta *fz.Meta) fz.Payload {
	var merged fz.Payload
	for _, c := range d.ConvertersFor(msg) {
		p := c.Convert(d, msg, meta)
		if len(p) == 0 {
			continue
		}
		if merged == nil {
			merged = fz.Payload{}
		}
		for k, v := range p {
			merged[k] = v
		}
	}
	if merged != nil && msg.LinkQuality > 0 {
		merged["linkquality"] = float64(msg.LinkQuality)
	}
	return merged
}

// RunConfigure executes the configure steps in order and stops at the first
// failure.
func (d *Definition) RunConfigure(ctx context.Context, dev reporting.Device) error {
	for _, step := range d.Configure {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Run(ctx, dev); err != nil {
			return fmt.Errorf("%s: configure %s: %w", d.Model, step.Name, err)
		}
	}
	return nil
}

// addConverter appends c unless a converter with the same name is present.
func (d *Definition) addConverter(c *fz.Converter) {
	for _, existing := range d.FromZigbee {
		if existing.Name == c.Name {
			return
		}
	}
	d.FromZigbee = append(d.FromZigbee, c)
}

// addExpose appends e unless an expose publishing the same properties is
// present.
func (d *Definition) addExpose(e exposes.Expose) {
	props := e.Properties()
	for _, existing := range d.Exposes {
		if slices.Equal(existing.Properties(), props) && existing.Type == e.Type {
			return
		}
	}
	d.Exposes = append(d.Exposes, e)
}
