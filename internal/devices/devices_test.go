package devices

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zigbee-catalog/internal/fz"
	"zigbee-catalog/internal/reporting/reportingtest"
	"zigbee-catalog/internal/zcl"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewDefault(newTestLogger())
	require.NoError(t, err)
	return c
}

func converterNames(d *Definition) []string {
	var names []string
	for _, c := range d.FromZigbee {
		names = append(names, c.Name)
	}
	return names
}

func exposedProperties(d *Definition) []string {
	var props []string
	for _, e := range d.Exposes {
		props = append(props, e.Properties()...)
	}
	return props
}

func TestBuiltinCatalog(t *testing.T) {
	c := defaultCatalog(t)
	assert.Equal(t, 9, c.Len())

	for _, zm := range []string{"SPM01X001", "SPM01X", "SPM02X", "SPM01", "SDM02", "SPM02", "E220-KR3N0Z0-HA", "SZ1000", "FB56-ZCW11HG1.4", "FNB56-SKT1EHG1.2"} {
		_, ok := c.FindByZigbeeModel(zm)
		assert.True(t, ok, zm)
	}

	d, err := c.Resolve("SPM02-U02")
	require.NoError(t, err)
	assert.Equal(t, "BITUO TECHNIK", d.Vendor)

	_, err = c.Resolve("nope")
	assert.ErrorIs(t, err, ErrUnknownModel)

	all := c.All()
	require.Len(t, all, 9)
	assert.Equal(t, "BITUO TECHNIK", all[0].Vendor)
	assert.Equal(t, "SDM02-U02", all[0].Model)
}

func TestBituoConverters(t *testing.T) {
	c := defaultCatalog(t)

	d, _ := c.FindByModel("SPM01-U01")
	assert.Equal(t, []string{"electrical_measurement_fixed_power", "metering"}, converterNames(d))

	d, _ = c.FindByModel("SDM02-U02")
	assert.Equal(t, []string{"electrical_measurement", "metering", "electrical_measurement_fixed_power"}, converterNames(d))
}

func TestBituoExposes(t *testing.T) {
	c := defaultCatalog(t)

	d, _ := c.FindByModel("SPM01-U01")
	assert.ElementsMatch(t, []string{
		"power", "voltage", "current", "ac_frequency", "power_factor",
		"energy", "produced_energy", "power_apparent", "linkquality",
	}, exposedProperties(d))

	d, _ = c.FindByModel("SPM02-U02")
	props := exposedProperties(d)
	for _, p := range []string{"voltage_phase_c", "current_phase_b", "power_phase_c", "power_factor_phase_c", "total_power_apparent"} {
		assert.Contains(t, props, p)
	}
	// Each property is exposed once.
	seen := map[string]bool{}
	for _, p := range props {
		assert.False(t, seen[p], "duplicate expose %s", p)
		seen[p] = true
	}
}

func TestBituoConfigureU02(t *testing.T) {
	c := defaultCatalog(t)
	d, _ := c.FindByModel("SPM01-U02")

	dev := reportingtest.NewDevice("0x01", map[uint8][]string{11: {"haElectricalMeasurement", "seMetering"}})
	dev.ReadValues = map[string]map[string]any{"seMetering": {"multiplier": 1, "divisor": 1000}}
	require.NoError(t, d.RunConfigure(context.Background(), dev))

	assert.Equal(t, []string{
		"bind haElectricalMeasurement",
		"bind seMetering",
		"configure haElectricalMeasurement acFrequency 5/5/0",
		"configure haElectricalMeasurement rmsVoltage 5/5/0",
		"configure haElectricalMeasurement rmsCurrent 5/5/0",
		"configure haElectricalMeasurement activePower 5/5/0",
		"configure haElectricalMeasurement apparentPower 5/5/0",
		"configure haElectricalMeasurement powerFactor 5/5/0",
		"configure seMetering currentSummDelivered 5/5/0",
		"configure seMetering currentSummReceived 5/5/0",
		"read seMetering multiplier,divisor",
	}, dev.Ops(11))

	cache := dev.Cache(11, "haElectricalMeasurement")
	assert.EqualValues(t, 1, cache["acPowerMultiplier"])
	assert.EqualValues(t, 1, cache["acPowerDivisor"])
	assert.Equal(t, map[string]any{"multiplier": 1, "divisor": 1000}, dev.Cache(11, "seMetering"))
}

func TestBituoConfigureU01(t *testing.T) {
	c := defaultCatalog(t)
	d, _ := c.FindByModel("SPM02-U01")

	dev := reportingtest.NewDevice("0x02", map[uint8][]string{1: {"haElectricalMeasurement", "seMetering"}})
	require.NoError(t, d.RunConfigure(context.Background(), dev))

	assert.Equal(t, []string{
		"bind haElectricalMeasurement",
		"bind seMetering",
		"read seMetering multiplier,divisor",
	}, dev.Ops(1))
}

func TestConfigureMissingEndpoint(t *testing.T) {
	c := defaultCatalog(t)
	d, _ := c.FindByModel("SDM02-U02")

	dev := reportingtest.NewDevice("0x03", map[uint8][]string{1: {"haElectricalMeasurement"}})
	err := d.RunConfigure(context.Background(), dev)
	assert.ErrorContains(t, err, "endpoint 11 not found")
}

func TestConfigureStopsOnFailure(t *testing.T) {
	c := defaultCatalog(t)
	d, _ := c.FindByModel("SPM01-U02")

	dev := reportingtest.NewDevice("0x04", map[uint8][]string{11: {"haElectricalMeasurement", "seMetering"}})
	dev.Fail = "configure haElectricalMeasurement rmsCurrent"
	err := d.RunConfigure(context.Background(), dev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPM01-U02: configure explicit")

	ops := dev.Ops(11)
	assert.Equal(t, "configure haElectricalMeasurement rmsCurrent 5/5/0", ops[len(ops)-1])
}

func TestSPM02ReportDecoding(t *testing.T) {
	c := defaultCatalog(t)
	d, _ := c.FindByZigbeeModel("SPM02")

	dev := reportingtest.NewDevice("0x05", map[uint8][]string{11: {"haElectricalMeasurement", "seMetering"}})
	require.NoError(t, d.RunConfigure(context.Background(), dev))
	// A cached acPower divisor of 10 would scale generic power; fixed power wins.
	ep, _ := dev.Endpoint(11)
	require.NoError(t, ep.SaveClusterAttributes("haElectricalMeasurement", map[string]any{"acPowerDivisor": 10}))

	msg := &fz.Message{
		Type:                fz.TypeAttributeReport,
		Cluster:             "haElectricalMeasurement",
		Device:              "0x05",
		Endpoint:            ep,
		TransactionSequence: 3,
		LinkQuality:         77,
		Data:                map[string]any{"activePowerPhC": int64(420), "powerFactorPhC": int64(95)},
	}
	got := d.Convert(msg, &fz.Meta{Dedup: fz.NewDeduper()})
	assert.Equal(t, 420.0, got["power_phase_c"])
	assert.Equal(t, 0.95, got["power_factor_phase_c"])
	assert.Equal(t, 77.0, got["linkquality"])
}

func TestEzexNaming(t *testing.T) {
	c := defaultCatalog(t)
	d, _ := c.FindByModel("ECW-100-A03")
	assert.True(t, d.MultiEndpoint())
	assert.ElementsMatch(t, []string{"state_top", "state_center", "state_bottom", "linkquality"}, exposedProperties(d))

	dev := reportingtest.NewDevice("0x06", map[uint8][]string{1: {"genOnOff"}, 2: {"genOnOff"}, 3: {"genOnOff"}})
	ep, _ := dev.Endpoint(2)
	msg := &fz.Message{Type: fz.TypeAttributeReport, Cluster: "genOnOff", Device: "0x06", Endpoint: ep, Data: map[string]any{"onOff": uint64(1)}, LinkQuality: 60}
	got := d.Convert(msg, nil)
	assert.Equal(t, "ON", got["state_center"])
	assert.Contains(t, got, "linkquality", "linkquality is never suffixed")

	require.NoError(t, d.RunConfigure(context.Background(), dev))
	for _, id := range []uint8{1, 2, 3} {
		assert.Equal(t, []string{"bind genOnOff", "configure genOnOff onOff 0/3600/0"}, dev.Ops(id))
	}
}

func TestPropertyNameFallsBackToEndpointID(t *testing.T) {
	d, err := Build(Record{
		ZigbeeModels:      []string{"X"},
		Model:             "X-1",
		Vendor:            "Acme",
		Endpoints:         map[string]uint8{"l1": 1, "l2": 2},
		MultiEndpointSkip: []string{"energy"},
	})
	require.NoError(t, err)

	dev := reportingtest.NewDevice("0x07", map[uint8][]string{5: nil, 1: nil})
	ep5, _ := dev.Endpoint(5)
	ep1, _ := dev.Endpoint(1)
	assert.Equal(t, "power_5", d.PropertyName("power", &fz.Message{Endpoint: ep5}))
	assert.Equal(t, "power_l1", d.PropertyName("power", &fz.Message{Endpoint: ep1}))
	assert.Equal(t, "energy", d.PropertyName("energy", &fz.Message{Endpoint: ep1}))
}

func TestMicroMaticConfigure(t *testing.T) {
	c := defaultCatalog(t)
	d, _ := c.FindByModel("ZB250")
	assert.Equal(t, []string{"on_off", "brightness", "electrical_measurement", "metering"}, converterNames(d))

	dev := reportingtest.NewDevice("0x08", map[uint8][]string{1: {"genOnOff", "genLevelCtrl", "haElectricalMeasurement", "seMetering"}})
	dev.ReadValues = map[string]map[string]any{
		"haElectricalMeasurement": {"acCurrentMultiplier": 1, "acCurrentDivisor": 1000, "acPowerMultiplier": 1, "acPowerDivisor": 10},
		"seMetering":              {"multiplier": 1, "divisor": 100},
	}
	require.NoError(t, d.RunConfigure(context.Background(), dev))

	ops := dev.Ops(1)
	assert.Contains(t, ops, "bind genLevelCtrl")
	assert.Contains(t, ops, "configure genLevelCtrl currentLevel 10/3600/1")
	// change thresholds are converted with the cached factors
	assert.Contains(t, ops, "configure haElectricalMeasurement activePower 10/62000/50")
	assert.Contains(t, ops, "configure haElectricalMeasurement rmsCurrent 10/62000/50")
	assert.Contains(t, ops, "configure haElectricalMeasurement rmsVoltage 10/62000/5")
	assert.Contains(t, ops, "configure seMetering currentSummDelivered 10/62000/10")
	assert.NotContains(t, ops, "configure seMetering instantaneousDemand 10/62000/0")
}

func TestSmartHomePty(t *testing.T) {
	c := defaultCatalog(t)
	d, _ := c.FindByZigbeeModel("FB56-ZCW11HG1.2")
	assert.Equal(t, "HGZB-07A", d.Model)
	assert.Contains(t, converterNames(d), "color_colortemp")
	assert.ElementsMatch(t, []string{"state", "brightness", "color_temp", "x", "y", "linkquality"}, exposedProperties(d))

	dev := reportingtest.NewDevice("0x09", map[uint8][]string{1: {"genOnOff", "genLevelCtrl", "lightingColorCtrl"}})
	require.NoError(t, d.RunConfigure(context.Background(), dev))
	assert.Equal(t, []string{"read lightingColorCtrl colorCapabilities,colorTempPhysicalMin,colorTempPhysicalMax"}, dev.Ops(1))

	plug, _ := c.FindByModel("HGZB-20-DE")
	assert.False(t, plug.MultiEndpoint())
	assert.ElementsMatch(t, []string{"state", "linkquality"}, exposedProperties(plug))
}

func TestBuildValidation(t *testing.T) {
	_, err := Build(Record{Model: "X", Vendor: "Acme"})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = Build(Record{Model: "X", Vendor: "Acme", ZigbeeModels: []string{"x"}, FromZigbee: []string{"bogus"}})
	assert.ErrorIs(t, err, ErrUnknownConverter)

	_, err = Build(Record{Model: "X", Vendor: "Acme", ZigbeeModels: []string{"x"}, Exposes: []string{"bogus"}})
	assert.Error(t, err)

	_, err = Build(Record{Model: "X", Vendor: "Acme", ZigbeeModels: []string{"x"}, OnOff: &OnOffOptions{EndpointNames: []string{"l1"}}})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = Build(Record{Model: "X", Vendor: "Acme", ZigbeeModels: []string{"x"}, ElectricityMeter: &MeterOptions{Power: &Factor{Multiplier: 1}}})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme.yaml"), []byte(`
clusters:
  - id: 0xFC00
    name: acmeSpecific
    attributes:
      - {id: 0x0001, name: mode, type: 0x20, access: 1}
vendors:
  - name: Acme
    models:
      - zigbee_models: [ACME-M1]
        model: M1
        description: DIN rail meter
        electricity_meter:
          cluster: electrical
          power_factor: true
          electrical_converter: electrical_measurement_fixed_power
        configure:
          endpoint: 1
          bind: [haElectricalMeasurement]
          reporting:
            - {cluster: haElectricalMeasurement, attribute: rmsVoltage, min: 5, max: 5, change: 0}
          cache:
            haElectricalMeasurement: {acVoltageMultiplier: 1, acVoltageDivisor: 10}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plug.json"), []byte(`{
  "devices": [{"zigbee_models": ["PLUG"], "model": "P1", "vendor": "Other", "on_off": {}}]
}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	registry := zcl.NewRegistry(newTestLogger())
	c := NewCatalog(newTestLogger())
	n, err := c.LoadDir(dir, registry)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	d, ok := c.FindByZigbeeModel("ACME-M1")
	require.True(t, ok)
	assert.Equal(t, "Acme", d.Vendor)
	assert.Equal(t, []string{"electrical_measurement_fixed_power"}, converterNames(d))
	assert.NotNil(t, registry.ByName("acmeSpecific"))

	dev := reportingtest.NewDevice("0x0a", map[uint8][]string{1: {"haElectricalMeasurement"}})
	require.NoError(t, d.RunConfigure(context.Background(), dev))
	ops := dev.Ops(1)
	assert.Equal(t, "configure haElectricalMeasurement rmsVoltage 5/5/0", ops[1])
	assert.EqualValues(t, 10, dev.Cache(1, "haElectricalMeasurement")["acVoltageDivisor"])

	_, ok = c.FindByModel("P1")
	assert.True(t, ok)
}

func TestLoadDirErrors(t *testing.T) {
	c := NewCatalog(newTestLogger())
	n, err := c.LoadDir(filepath.Join(t.TempDir(), "missing"), nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("devices: [{model: X}]"), 0o644))
	_, err = c.LoadDir(dir, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestConvertLinkQuality(t *testing.T) {
	c := defaultCatalog(t)
	d, _ := c.FindByModel("SPM01-U02")
	dedup := fz.NewDeduper()
	ep, _ := reportingtest.NewDevice("0x07", map[uint8][]string{11: {"haElectricalMeasurement"}}).Endpoint(11)
	msg := &fz.Message{
		Type:                fz.TypeAttributeReport,
		Cluster:             "haElectricalMeasurement",
		Device:              "0x07",
		Endpoint:            ep,
		TransactionSequence: 9,
		LinkQuality:         88,
		Data:                map[string]any{"activePower": int64(250)},
	}

	got := d.Convert(msg, &fz.Meta{Dedup: dedup})
	assert.Equal(t, fz.Payload{"power": 250.0, "linkquality": 88.0}, got)

	assert.Nil(t, d.Convert(msg, &fz.Meta{Dedup: dedup}), "redelivery publishes nothing")

	msg.TransactionSequence = 10
	msg.LinkQuality = 0
	got = d.Convert(msg, &fz.Meta{Dedup: dedup})
	assert.Equal(t, fz.Payload{"power": 250.0}, got, "no linkquality without LQI")

	msg.TransactionSequence = 11
	msg.LinkQuality = 50
	msg.Data = map[string]any{"unrelated": 1}
	assert.Nil(t, d.Convert(msg, &fz.Meta{Dedup: dedup}), "linkquality alone is not published")
}

func TestConvertUnsequenced(t *testing.T) {
	c := defaultCatalog(t)
	d, _ := c.FindByModel("SPM01-U02")
	dedup := fz.NewDeduper()
	ep, _ := reportingtest.NewDevice("0x08", map[uint8][]string{11: {"haElectricalMeasurement"}}).Endpoint(11)
	msg := &fz.Message{
		Type:        fz.TypeAttributeReport,
		Cluster:     "haElectricalMeasurement",
		Device:      "0x08",
		Endpoint:    ep,
		Unsequenced: true,
		Data:        map[string]any{"activePower": int64(250)},
	}
	assert.Equal(t, 250.0, d.Convert(msg, &fz.Meta{Dedup: dedup})["power"])
	msg.Data = map[string]any{"activePower": int64(300)}
	assert.Equal(t, 300.0, d.Convert(msg, &fz.Meta{Dedup: dedup})["power"])
}

func TestAddConvertersAllOrNothing(t *testing.T) {
	c := defaultCatalog(t)
	d, _ := c.FindByModel("HGZB-20-DE")
	before := len(d.FromZigbee)

	err := c.AddConverters([]ModelConverter{
		{Model: "HGZB-20-DE", Converter: &fz.Converter{Name: "first", Cluster: "genBasic"}},
		{Model: "nope", Converter: &fz.Converter{Name: "second", Cluster: "genBasic"}},
	})
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Len(t, d.FromZigbee, before)
}

func TestAddConverter(t *testing.T) {
	c := defaultCatalog(t)
	conv := &fz.Converter{Name: "custom", Cluster: "genBasic"}
	require.NoError(t, c.AddConverter("HGZB-20-DE", conv))
	d, _ := c.FindByModel("HGZB-20-DE")
	assert.Contains(t, converterNames(d), "custom")

	assert.ErrorIs(t, c.AddConverter("nope", conv), ErrUnknownModel)
}
