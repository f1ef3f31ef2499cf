package devices

import (
	"zigbee-catalog/internal/fz"
	"zigbee-catalog/internal/reporting"
)

const bituo = "BITUO TECHNIK"

// bituoMeter is shared by every BITUO meter: frequency and power factor,
// produced energy, no generic reporting, and power reported already scaled.
func bituoMeter(threePhase bool) *MeterOptions {
	off := false
	return &MeterOptions{
		ACFrequency:         true,
		PowerFactor:         true,
		ThreePhase:          threePhase,
		ProducedEnergy:      true,
		ConfigureReporting:  &off,
		Power:               &Factor{Multiplier: 1, Divisor: 1},
		ElectricalConverter: fz.ElectricalMeasurementFixedPower.Name,
		MeteringConverter:   fz.Metering.Name,
	}
}

// bituoConfigure binds both meter clusters, optionally sets every listed
// electrical attribute to report each 5 s, primes the metering factors and
// pins the AC power factor to 1.
func bituoConfigure(endpoint uint8, electrical []string) *ConfigureOptions {
	c := &ConfigureOptions{
		Endpoint:            endpoint,
		Bind:                []string{clusterElectrical, clusterMetering},
		ReadMeteringFactors: true,
		Cache: map[string]CacheSet{
			clusterElectrical: {"acPowerMultiplier": 1, "acPowerDivisor": 1},
		},
	}
	if len(electrical) == 0 {
		return c
	}
	every5s := func(cluster, attr string) ReportingEntry {
		return ReportingEntry{Cluster: cluster, Item: reporting.Item{Attribute: attr, Min: 5, Max: 5, Change: 0}}
	}
	for _, attr := range electrical {
		c.Reporting = append(c.Reporting, every5s(clusterElectrical, attr))
	}
	c.Reporting = append(c.Reporting,
		every5s(clusterMetering, "currentSummDelivered"),
		every5s(clusterMetering, "currentSummReceived"))
	return c
}

var totals = []string{"total_power", "total_power_reactive", "total_power_apparent"}

func bituoTechnik() []Record {
	return []Record{
		{
			ZigbeeModels:     []string{"SPM01X001", "SPM01X"},
			Model:            "SPM01-U01",
			Vendor:           bituo,
			Description:      "Smart energy monitor for 1P+N system",
			Configure:        bituoConfigure(1, nil),
			ElectricityMeter: bituoMeter(false),
			Exposes:          []string{"power_apparent"},
		},
		{
			ZigbeeModels:     []string{"SPM02X001", "SPM02X"},
			Model:            "SPM02-U01",
			Vendor:           bituo,
			Description:      "Smart energy monitor for 3P+N system",
			Configure:        bituoConfigure(1, nil),
			ElectricityMeter: bituoMeter(true),
			Exposes: append([]string{
				"power_reactive", "power_reactive_phase_b", "power_reactive_phase_c",
				"power_apparent", "power_apparent_phase_b", "power_apparent_phase_c",
				"power_factor_phase_b", "power_factor_phase_c",
			}, totals...),
		},
		{
			ZigbeeModels: []string{"SPM01"},
			Model:        "SPM01-U02",
			Vendor:       bituo,
			Description:  "Smart energy monitor for 1P+N system",
			Configure: bituoConfigure(11, []string{
				"acFrequency", "rmsVoltage", "rmsCurrent", "activePower", "apparentPower", "powerFactor",
			}),
			ElectricityMeter: bituoMeter(false),
			Exposes:          []string{"power_apparent"},
		},
		{
			ZigbeeModels: []string{"SDM02"},
			Model:        "SDM02-U02",
			Vendor:       bituo,
			Description:  "Smart energy monitor for 2P+N system",
			FromZigbee:   []string{fz.ElectricalMeasurement.Name, fz.Metering.Name},
			Configure: bituoConfigure(11, []string{
				"acFrequency",
				"rmsVoltage", "rmsVoltagePhB",
				"rmsCurrent", "rmsCurrentPhB",
				"activePower", "activePowerPhB",
				"reactivePower", "reactivePowerPhB",
				"apparentPower", "apparentPowerPhB",
				"powerFactor", "powerFactorPhB",
				"totalActivePower", "totalReactivePower", "totalApparentPower",
			}),
			ElectricityMeter: bituoMeter(false),
			Exposes: append([]string{
				"power_phase_b",
				"power_reactive", "power_reactive_phase_b",
				"power_apparent", "power_apparent_phase_b",
				"current_phase_b", "voltage_phase_b", "power_factor_phase_b",
			}, totals...),
		},
		{
			ZigbeeModels: []string{"SPM02"},
			Model:        "SPM02-U02",
			Vendor:       bituo,
			Description:  "Smart energy monitor for 3P+N system",
			FromZigbee:   []string{fz.ElectricalMeasurement.Name, fz.Metering.Name},
			Configure: bituoConfigure(11, []string{
				"acFrequency",
				"rmsVoltage", "rmsVoltagePhB", "rmsVoltagePhC",
				"rmsCurrent", "rmsCurrentPhB", "rmsCurrentPhC",
				"activePower", "activePowerPhB", "activePowerPhC",
				"reactivePower", "reactivePowerPhB", "reactivePowerPhC",
				"apparentPower", "apparentPowerPhB", "apparentPowerPhC",
				"powerFactor", "powerFactorPhB", "powerFactorPhC",
				"totalActivePower", "totalReactivePower", "totalApparentPower",
			}),
			ElectricityMeter: bituoMeter(true),
			Exposes: append([]string{
				"power_reactive", "power_reactive_phase_b", "power_reactive_phase_c",
				"power_apparent", "power_apparent_phase_b", "power_apparent_phase_c",
				"power_factor_phase_b", "power_factor_phase_c",
			}, totals...),
		},
	}
}
