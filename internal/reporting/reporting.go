// Package reporting holds the building blocks of a device's post-pairing
// configuration: binding clusters to the coordinator, attribute reporting
// payloads and the reads that prime the endpoint attribute cache.
package reporting

import (
	"context"
	"fmt"
)

// Reporting intervals in seconds.
const (
	TenSeconds  uint16 = 10
	Minute      uint16 = 60
	FiveMinutes uint16 = 300
	Hour        uint16 = 3600
	Max         uint16 = 62000
)

// Item is one attribute reporting configuration record.
type Item struct {
	Attribute string  `json:"attribute" yaml:"attribute"`
	Min       uint16  `json:"min" yaml:"min"`
	Max       uint16  `json:"max" yaml:"max"`
	Change    float64 `json:"change" yaml:"change"`
}

// Overrides replaces the defaults of a payload. Nil fields keep the default.
type Overrides struct {
	Min    *uint16  `json:"min,omitempty" yaml:"min,omitempty"`
	Max    *uint16  `json:"max,omitempty" yaml:"max,omitempty"`
	Change *float64 `json:"change,omitempty" yaml:"change,omitempty"`
}

// Fixed returns overrides pinning all three values.
func Fixed(min, max uint16, change float64) *Overrides {
	return &Overrides{Min: &min, Max: &max, Change: &change}
}

// Payload builds a reporting record, applying overrides when set.
func Payload(attr string, min, max uint16, change float64, o *Overrides) []Item {
	it := Item{Attribute: attr, Min: min, Max: max, Change: change}
	if o != nil {
		if o.Min != nil {
			it.Min = *o.Min
		}
		if o.Max != nil {
			it.Max = *o.Max
		}
		if o.Change != nil {
			it.Change = *o.Change
		}
	}
	return []Item{it}
}

// Endpoint is a device endpoint as seen by configure steps. Bind and
// ConfigureReporting go over the air; SaveClusterAttributes only writes the
// local attribute cache.
type Endpoint interface {
	ID() uint8
	ClusterAttributeValue(cluster, attr string) (any, bool)
	HasInputCluster(cluster string) bool
	Bind(ctx context.Context, cluster string) error
	Read(ctx context.Context, cluster string, attrs []string) error
	ConfigureReporting(ctx context.Context, cluster string, items []Item) error
	SaveClusterAttributes(cluster string, values map[string]any) error
}

type Device interface {
	IEEEAddress() string
	Endpoint(id uint8) (Endpoint, bool)
	Endpoints() []Endpoint
}

// Bind binds each cluster of ep to the coordinator, in order.
func Bind(ctx context.Context, ep Endpoint, clusters []string) error {
	for _, c := range clusters {
		if err := ep.Bind(ctx, c); err != nil {
			return fmt.Errorf("bind %s on endpoint %d: %w", c, ep.ID(), err)
		}
	}
	return nil
}

func configure(ctx context.Context, ep Endpoint, cluster string, items []Item) error {
	if err := ep.ConfigureReporting(ctx, cluster, items); err != nil {
		return fmt.Errorf("configure reporting %s.%s on endpoint %d: %w", cluster, items[0].Attribute, ep.ID(), err)
	}
	return nil
}

// Configure sends one reporting configuration request.
func Configure(ctx context.Context, ep Endpoint, cluster string, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	return configure(ctx, ep, cluster, items)
}

func ReadMeteringMultiplierDivisor(ctx context.Context, ep Endpoint) error {
	if err := ep.Read(ctx, "seMetering", []string{"multiplier", "divisor"}); err != nil {
		return fmt.Errorf("read metering multiplier/divisor on endpoint %d: %w", ep.ID(), err)
	}
	return nil
}

// ReadElectricalMeasurementMultiplierDivisors primes the AC formatting
// attributes; frequency ones are optional on many meters.
func ReadElectricalMeasurementMultiplierDivisors(ctx context.Context, ep Endpoint, frequency bool) error {
	reads := [][]string{
		{"acVoltageMultiplier", "acVoltageDivisor", "acCurrentMultiplier"},
		{"acCurrentDivisor", "acPowerMultiplier", "acPowerDivisor"},
	}
	if frequency {
		reads = append(reads, []string{"acFrequencyMultiplier", "acFrequencyDivisor"})
	}
	for _, attrs := range reads {
		if err := ep.Read(ctx, "haElectricalMeasurement", attrs); err != nil {
			return fmt.Errorf("read electrical multiplier/divisors on endpoint %d: %w", ep.ID(), err)
		}
	}
	return nil
}

func CurrentSummDelivered(ctx context.Context, ep Endpoint, o *Overrides) error {
	return configure(ctx, ep, "seMetering", Payload("currentSummDelivered", TenSeconds, Hour, 257, o))
}

func CurrentSummReceived(ctx context.Context, ep Endpoint, o *Overrides) error {
	return configure(ctx, ep, "seMetering", Payload("currentSummReceived", TenSeconds, Hour, 257, o))
}

func InstantaneousDemand(ctx context.Context, ep Endpoint, o *Overrides) error {
	return configure(ctx, ep, "seMetering", Payload("instantaneousDemand", 5, Hour, 1, o))
}

func OnOff(ctx context.Context, ep Endpoint, o *Overrides) error {
	return configure(ctx, ep, "genOnOff", Payload("onOff", 0, Hour, 0, o))
}

func Brightness(ctx context.Context, ep Endpoint, o *Overrides) error {
	return configure(ctx, ep, "genLevelCtrl", Payload("currentLevel", TenSeconds, Hour, 1, o))
}

func ColorTemperature(ctx context.Context, ep Endpoint, o *Overrides) error {
	return configure(ctx, ep, "lightingColorCtrl", Payload("colorTemperature", 0, Hour, 1, o))
}

func RMSVoltage(ctx context.Context, ep Endpoint, o *Overrides) error {
	return configure(ctx, ep, "haElectricalMeasurement", Payload("rmsVoltage", 5, Hour, 5, o))
}

func RMSCurrent(ctx context.Context, ep Endpoint, o *Overrides) error {
	return configure(ctx, ep, "haElectricalMeasurement", Payload("rmsCurrent", 5, Hour, 50, o))
}

func ActivePower(ctx context.Context, ep Endpoint, o *Overrides) error {
	return configure(ctx, ep, "haElectricalMeasurement", Payload("activePower", 5, Hour, 10, o))
}

func ACFrequency(ctx context.Context, ep Endpoint, o *Overrides) error {
	return configure(ctx, ep, "haElectricalMeasurement", Payload("acFrequency", 5, Hour, 10, o))
}

func PowerFactor(ctx context.Context, ep Endpoint, o *Overrides) error {
	return configure(ctx, ep, "haElectricalMeasurement", Payload("powerFactor", 5, Hour, 1, o))
}
