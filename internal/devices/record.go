package devices

import "zigbee-catalog/internal/reporting"

// Record is the plain-data description of one hardware model. Built-in
// vendors declare records in Go; more can be loaded from YAML or JSON.
type Record struct {
	ZigbeeModels []string `json:"zigbee_models" yaml:"zigbee_models"`
	Model        string   `json:"model" yaml:"model"`
	Vendor       string   `json:"vendor" yaml:"vendor"`
	Description  string   `json:"description" yaml:"description"`

	// Endpoints names the endpoints of multi-endpoint devices. Published
	// properties get a "_<name>" suffix.
	Endpoints         map[string]uint8 `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
	MultiEndpointSkip []string         `json:"multi_endpoint_skip,omitempty" yaml:"multi_endpoint_skip,omitempty"`

	OnOff            *OnOffOptions `json:"on_off,omitempty" yaml:"on_off,omitempty"`
	Light            *LightOptions `json:"light,omitempty" yaml:"light,omitempty"`
	ElectricityMeter *MeterOptions `json:"electricity_meter,omitempty" yaml:"electricity_meter,omitempty"`

	Configure *ConfigureOptions `json:"configure,omitempty" yaml:"configure,omitempty"`

	// Exposes and FromZigbee name extra expose presets and converters on
	// top of what the capability blocks contribute.
	Exposes    []string `json:"exposes,omitempty" yaml:"exposes,omitempty"`
	FromZigbee []string `json:"from_zigbee,omitempty" yaml:"from_zigbee,omitempty"`

	PublishDuplicateTransaction bool `json:"publish_duplicate_transaction,omitempty" yaml:"publish_duplicate_transaction,omitempty"`
}

type OnOffOptions struct {
	EndpointNames []string `json:"endpoint_names,omitempty" yaml:"endpoint_names,omitempty"`
	// SkipReporting disables bind and onOff reporting during configure.
	SkipReporting bool `json:"skip_reporting,omitempty" yaml:"skip_reporting,omitempty"`
}

type LightOptions struct {
	ColorTemp          bool `json:"color_temp,omitempty" yaml:"color_temp,omitempty"`
	Color              bool `json:"color,omitempty" yaml:"color,omitempty"`
	ConfigureReporting bool `json:"configure_reporting,omitempty" yaml:"configure_reporting,omitempty"`
}

// Meter clusters.
const (
	MeterElectrical = "electrical"
	MeterMetering   = "metering"
	MeterBoth       = "both"
)

// MeterOptions is the capability-flag block of an electricity meter.
type MeterOptions struct {
	Cluster            string `json:"cluster,omitempty" yaml:"cluster,omitempty"` // electrical, metering or both (default)
	ACFrequency        bool   `json:"ac_frequency,omitempty" yaml:"ac_frequency,omitempty"`
	PowerFactor        bool   `json:"power_factor,omitempty" yaml:"power_factor,omitempty"`
	ThreePhase         bool   `json:"three_phase,omitempty" yaml:"three_phase,omitempty"`
	ProducedEnergy     bool   `json:"produced_energy,omitempty" yaml:"produced_energy,omitempty"`
	ConfigureReporting *bool  `json:"configure_reporting,omitempty" yaml:"configure_reporting,omitempty"` // default true

	// Forced factors replace what the device reports for a quantity and
	// are written into the endpoint attribute cache during configure.
	Power   *Factor `json:"power,omitempty" yaml:"power,omitempty"`
	Voltage *Factor `json:"voltage,omitempty" yaml:"voltage,omitempty"`
	Current *Factor `json:"current,omitempty" yaml:"current,omitempty"`
	Energy  *Factor `json:"energy,omitempty" yaml:"energy,omitempty"`

	// Converter names; default electrical_measurement and metering.
	ElectricalConverter string `json:"electrical_converter,omitempty" yaml:"electrical_converter,omitempty"`
	MeteringConverter   string `json:"metering_converter,omitempty" yaml:"metering_converter,omitempty"`
}

type Factor struct {
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
	Divisor    float64 `json:"divisor" yaml:"divisor"`
}

// ConfigureOptions lists explicit post-pairing steps, run in this order:
// bind, reporting, reads, cache writes.
type ConfigureOptions struct {
	Endpoint              uint8               `json:"endpoint" yaml:"endpoint"`
	Bind                  []string            `json:"bind,omitempty" yaml:"bind,omitempty"`
	Reporting             []ReportingEntry    `json:"reporting,omitempty" yaml:"reporting,omitempty"`
	ReadMeteringFactors   bool                `json:"read_metering_factors,omitempty" yaml:"read_metering_factors,omitempty"`
	ReadElectricalFactors bool                `json:"read_electrical_factors,omitempty" yaml:"read_electrical_factors,omitempty"`
	Cache                 map[string]CacheSet `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// CacheSet holds attribute values written into one cluster's cache.
type CacheSet map[string]float64

type ReportingEntry struct {
	Cluster string `json:"cluster" yaml:"cluster"`
	reporting.Item `yaml:",inline"`
}
