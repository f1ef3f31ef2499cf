package devices

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"zigbee-catalog/internal/exposes"
	"zigbee-catalog/internal/fz"
	"zigbee-catalog/internal/reporting"
)

var (
	ErrInvalidRecord    = errors.New("invalid device record")
	ErrUnknownConverter = errors.New("unknown converter")
)

// Build turns a record into a definition. Capability blocks contribute
// converters, exposes and configure steps; explicit FromZigbee converters
// come first and the explicit configure block runs before capability steps.
func Build(r Record) (*Definition, error) {
	if err := validate(r); err != nil {
		return nil, err
	}

	d := &Definition{
		ZigbeeModels:      append([]string(nil), r.ZigbeeModels...),
		Model:             r.Model,
		Vendor:            r.Vendor,
		Description:       r.Description,
		endpoints:         r.Endpoints,
		multiEndpoint:     len(r.Endpoints) > 1,
		multiEndpointSkip: r.MultiEndpointSkip,
		publishDuplicate:  r.PublishDuplicateTransaction,
	}

	for _, name := range r.FromZigbee {
		c, ok := fz.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %q", r.Model, ErrUnknownConverter, name)
		}
		d.addConverter(c)
	}

	if r.Configure != nil {
		d.Configure = append(d.Configure, explicitConfigure(*r.Configure))
	}

	if r.OnOff != nil {
		if len(r.OnOff.EndpointNames) > 0 {
			d.multiEndpoint = true
		}
		if err := buildOnOff(d, *r.OnOff); err != nil {
			return nil, err
		}
	}
	if r.Light != nil {
		buildLight(d, *r.Light)
	}
	if r.ElectricityMeter != nil {
		if err := buildMeter(d, *r.ElectricityMeter); err != nil {
			return nil, err
		}
	}

	for _, name := range r.Exposes {
		e, err := exposes.Preset(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Model, err)
		}
		d.addExpose(e)
	}

	d.addExpose(exposes.LinkQuality())
	return d, nil
}

func validate(r Record) error {
	switch {
	case r.Model == "":
		return fmt.Errorf("%w: model is required", ErrInvalidRecord)
	case r.Vendor == "":
		return fmt.Errorf("%w: %s: vendor is required", ErrInvalidRecord, r.Model)
	case len(r.ZigbeeModels) == 0:
		return fmt.Errorf("%w: %s: at least one zigbee model is required", ErrInvalidRecord, r.Model)
	}
	if r.OnOff != nil {
		for _, name := range r.OnOff.EndpointNames {
			if _, ok := r.Endpoints[name]; !ok {
				return fmt.Errorf("%w: %s: on_off endpoint %q is not in endpoints", ErrInvalidRecord, r.Model, name)
			}
		}
	}
	if m := r.ElectricityMeter; m != nil {
		switch m.Cluster {
		case "", MeterElectrical, MeterMetering, MeterBoth:
		default:
			return fmt.Errorf("%w: %s: electricity meter cluster %q", ErrInvalidRecord, r.Model, m.Cluster)
		}
		for _, f := range []*Factor{m.Power, m.Voltage, m.Current, m.Energy} {
			if f != nil && (f.Multiplier == 0 || f.Divisor == 0) {
				return fmt.Errorf("%w: %s: forced factor needs non-zero multiplier and divisor", ErrInvalidRecord, r.Model)
			}
		}
	}
	return nil
}

func explicitConfigure(c ConfigureOptions) ConfigureStep {
	return ConfigureStep{
		Name: "explicit",
		Run: func(ctx context.Context, dev reporting.Device) error {
			ep, ok := dev.Endpoint(c.Endpoint)
			if !ok {
				return fmt.Errorf("endpoint %d not found", c.Endpoint)
			}
			if err := reporting.Bind(ctx, ep, c.Bind); err != nil {
				return err
			}
			for _, entry := range c.Reporting {
				if err := reporting.Configure(ctx, ep, entry.Cluster, []reporting.Item{entry.Item}); err != nil {
					return err
				}
			}
			if c.ReadMeteringFactors {
				if err := reporting.ReadMeteringMultiplierDivisor(ctx, ep); err != nil {
					return err
				}
			}
			if c.ReadElectricalFactors {
				if err := reporting.ReadElectricalMeasurementMultiplierDivisors(ctx, ep, false); err != nil {
					return err
				}
			}

			clusters := make([]string, 0, len(c.Cache))
			for cluster := range c.Cache {
				clusters = append(clusters, cluster)
			}
			sort.Strings(clusters)
			for _, cluster := range clusters {
				values := make(map[string]any, len(c.Cache[cluster]))
				for k, v := range c.Cache[cluster] {
					values[k] = v
				}
				if err := ep.SaveClusterAttributes(cluster, values); err != nil {
					return fmt.Errorf("save %s attributes on endpoint %d: %w", cluster, ep.ID(), err)
				}
			}
			return nil
		},
	}
}

// endpointsWith returns the device endpoints having an input cluster,
// restricted to ids when it is non-empty.
func endpointsWith(dev reporting.Device, cluster string, ids []uint8) []reporting.Endpoint {
	var out []reporting.Endpoint
	for _, ep := range dev.Endpoints() {
		if !ep.HasInputCluster(cluster) {
			continue
		}
		if len(ids) > 0 && !containsID(ids, ep.ID()) {
			continue
		}
		out = append(out, ep)
	}
	return out
}

func containsID(ids []uint8, id uint8) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func buildOnOff(d *Definition, o OnOffOptions) error {
	d.addConverter(&fz.OnOff)

	var ids []uint8
	if len(o.EndpointNames) == 0 {
		d.addExpose(exposes.Switch())
	}
	for _, name := range o.EndpointNames {
		d.addExpose(exposes.Switch().WithEndpoint(name))
		ids = append(ids, d.endpoints[name])
	}

	if o.SkipReporting {
		return nil
	}
	d.Configure = append(d.Configure, ConfigureStep{
		Name: "on_off",
		Run: func(ctx context.Context, dev reporting.Device) error {
			for _, ep := range endpointsWith(dev, "genOnOff", ids) {
				if err := reporting.Bind(ctx, ep, []string{"genOnOff"}); err != nil {
					return err
				}
				if err := reporting.OnOff(ctx, ep, nil); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return nil
}

func buildLight(d *Definition, o LightOptions) {
	d.addConverter(&fz.OnOff)
	d.addConverter(&fz.Brightness)
	color := o.ColorTemp || o.Color
	if color {
		d.addConverter(&fz.ColorColorTemp)
	}
	d.addExpose(exposes.Light(o.ColorTemp, o.Color))

	d.Configure = append(d.Configure, ConfigureStep{
		Name: "light",
		Run: func(ctx context.Context, dev reporting.Device) error {
			for _, ep := range endpointsWith(dev, "genOnOff", nil) {
				if color {
					attrs := []string{"colorCapabilities"}
					if o.ColorTemp {
						attrs = append(attrs, "colorTempPhysicalMin", "colorTempPhysicalMax")
					}
					if err := ep.Read(ctx, "lightingColorCtrl", attrs); err != nil {
						return fmt.Errorf("read color capabilities on endpoint %d: %w", ep.ID(), err)
					}
				}
				if !o.ConfigureReporting {
					continue
				}
				clusters := []string{"genOnOff", "genLevelCtrl"}
				if color {
					clusters = append(clusters, "lightingColorCtrl")
				}
				if err := reporting.Bind(ctx, ep, clusters); err != nil {
					return err
				}
				if err := reporting.OnOff(ctx, ep, nil); err != nil {
					return err
				}
				if err := reporting.Brightness(ctx, ep, nil); err != nil {
					return err
				}
				if o.ColorTemp {
					if err := reporting.ColorTemperature(ctx, ep, nil); err != nil {
						return err
					}
				}
			}
			return nil
		},
	})
}
