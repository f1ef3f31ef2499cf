package devices

import (
	"context"
	"fmt"
	"math"

	"zigbee-catalog/internal/exposes"
	"zigbee-catalog/internal/fz"
	"zigbee-catalog/internal/reporting"
)

const (
	clusterElectrical = "haElectricalMeasurement"
	clusterMetering   = "seMetering"
)

// meterAttr is a reported meter attribute. change is in published units
// and converted to a raw reportable change with the factor of family.
type meterAttr struct {
	attr   string
	family string
	change float64
}

func (o MeterOptions) cluster() string {
	if o.Cluster == "" {
		return MeterBoth
	}
	return o.Cluster
}

func (o MeterOptions) has(c string) bool {
	return o.cluster() == MeterBoth || o.cluster() == c
}

func (o MeterOptions) configureReporting() bool {
	return o.ConfigureReporting == nil || *o.ConfigureReporting
}

func (o MeterOptions) electricalAttrs() []meterAttr {
	phases := []string{""}
	if o.ThreePhase {
		phases = append(phases, "PhB", "PhC")
	}
	var attrs []meterAttr
	for _, ph := range phases {
		attrs = append(attrs,
			meterAttr{"activePower" + ph, "acPower", 5},
			meterAttr{"rmsVoltage" + ph, "acVoltage", 5},
			meterAttr{"rmsCurrent" + ph, "acCurrent", 0.05},
		)
	}
	if o.ACFrequency {
		attrs = append(attrs, meterAttr{"acFrequency", "acFrequency", 0.1})
	}
	if o.PowerFactor {
		attrs = append(attrs, meterAttr{"powerFactor", "", 1})
	}
	return attrs
}

func (o MeterOptions) meteringAttrs() []meterAttr {
	var attrs []meterAttr
	if o.cluster() == MeterMetering {
		attrs = append(attrs, meterAttr{"instantaneousDemand", "power", 5})
	}
	attrs = append(attrs, meterAttr{"currentSummDelivered", "energy", 0.1})
	if o.ProducedEnergy {
		attrs = append(attrs, meterAttr{"currentSummReceived", "energy", 0.1})
	}
	return attrs
}

// forcedCache returns the cache entries that pin factors for one cluster.
func (o MeterOptions) forcedCache(cluster string) map[string]any {
	values := map[string]any{}
	set := func(prefix string, f *Factor) {
		if f == nil {
			return
		}
		values[prefix+"Multiplier"] = f.Multiplier
		values[prefix+"Divisor"] = f.Divisor
	}
	switch cluster {
	case clusterElectrical:
		set("acPower", o.Power)
		set("acVoltage", o.Voltage)
		set("acCurrent", o.Current)
	case clusterMetering:
		if o.Energy != nil {
			values["multiplier"] = o.Energy.Multiplier
			values["divisor"] = o.Energy.Divisor
		}
	}
	return values
}

func buildMeter(d *Definition, o MeterOptions) error {
	elecName := o.ElectricalConverter
	if elecName == "" {
		elecName = fz.ElectricalMeasurement.Name
	}
	meterName := o.MeteringConverter
	if meterName == "" {
		meterName = fz.Metering.Name
	}

	if o.has(MeterElectrical) {
		c, ok := fz.Lookup(elecName)
		if !ok {
			return fmt.Errorf("%s: %w: %q", d.Model, ErrUnknownConverter, elecName)
		}
		d.addConverter(c)

		presets := []string{"power", "voltage", "current"}
		if o.ACFrequency {
			presets = append(presets, "ac_frequency")
		}
		if o.PowerFactor {
			presets = append(presets, "power_factor")
		}
		if o.ThreePhase {
			presets = append(presets,
				"power_phase_b", "power_phase_c",
				"voltage_phase_b", "voltage_phase_c",
				"current_phase_b", "current_phase_c")
		}
		for _, p := range presets {
			e, _ := exposes.Preset(p)
			d.addExpose(e)
		}
	}
	if o.has(MeterMetering) {
		c, ok := fz.Lookup(meterName)
		if !ok {
			return fmt.Errorf("%s: %w: %q", d.Model, ErrUnknownConverter, meterName)
		}
		d.addConverter(c)

		// With both clusters, power comes from electrical measurement.
		if o.cluster() == MeterMetering {
			d.addExpose(exposes.Power())
		}
		d.addExpose(exposes.Energy())
		if o.ProducedEnergy {
			d.addExpose(exposes.ProducedEnergy())
		}
	}

	d.Configure = append(d.Configure, ConfigureStep{
		Name: "electricity_meter",
		Run: func(ctx context.Context, dev reporting.Device) error {
			return configureMeter(ctx, dev, o)
		},
	})
	return nil
}

func configureMeter(ctx context.Context, dev reporting.Device, o MeterOptions) error {
	type plan struct {
		cluster string
		attrs   []meterAttr
		forced  bool
		read    func(context.Context, reporting.Endpoint) error
	}
	var plans []plan
	if o.has(MeterElectrical) {
		plans = append(plans, plan{
			cluster: clusterElectrical,
			attrs:   o.electricalAttrs(),
			forced:  o.Power != nil && o.Voltage != nil && o.Current != nil,
			read: func(ctx context.Context, ep reporting.Endpoint) error {
				return reporting.ReadElectricalMeasurementMultiplierDivisors(ctx, ep, o.ACFrequency)
			},
		})
	}
	if o.has(MeterMetering) {
		plans = append(plans, plan{
			cluster: clusterMetering,
			attrs:   o.meteringAttrs(),
			forced:  o.Energy != nil,
			read:    reporting.ReadMeteringMultiplierDivisor,
		})
	}

	for _, p := range plans {
		for _, ep := range endpointsWith(dev, p.cluster, nil) {
			if o.configureReporting() {
				if err := reporting.Bind(ctx, ep, []string{p.cluster}); err != nil {
					return err
				}
				if !p.forced {
					if err := p.read(ctx, ep); err != nil {
						return err
					}
				}
			}

			if forced := o.forcedCache(p.cluster); len(forced) > 0 {
				if err := ep.SaveClusterAttributes(p.cluster, forced); err != nil {
					return fmt.Errorf("save %s factors on endpoint %d: %w", p.cluster, ep.ID(), err)
				}
			}

			if !o.configureReporting() {
				continue
			}
			for _, a := range p.attrs {
				change := rawChange(ep, p.cluster, a)
				items := reporting.Payload(a.attr, reporting.TenSeconds, reporting.Max, change, nil)
				if err := reporting.Configure(ctx, ep, p.cluster, items); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// rawChange converts a change in published units into device units using
// the factor currently cached on the endpoint.
func rawChange(ep reporting.Endpoint, cluster string, a meterAttr) float64 {
	if a.family == "" {
		return a.change
	}

	mulKey, divKey := a.family+"Multiplier", a.family+"Divisor"
	scale := 1.0
	if cluster == clusterMetering {
		mulKey, divKey = "multiplier", "divisor"
		if a.family == "power" {
			scale = 1000 // instantaneousDemand is published in W, reported in kW
		}
	}

	m, _ := ep.ClusterAttributeValue(cluster, mulKey)
	dv, _ := ep.ClusterAttributeValue(cluster, divKey)
	mul, okM := fz.ToFloat64(m)
	div, okD := fz.ToFloat64(dv)
	factor := scale
	if okM && okD && mul != 0 && div != 0 {
		factor = mul / div * scale
	}
	return math.Round(a.change / factor)
}
