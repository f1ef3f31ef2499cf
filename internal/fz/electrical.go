package fz

const clusterElectrical = "haElectricalMeasurement"

// measurement maps a raw attribute key to a property name and the scaling
// family whose Multiplier/Divisor pair applies.
type measurement struct {
	key    string
	name   string
	family string
}

var measurementTable = []measurement{
	{"rmsCurrent", "current", "acCurrent"},
	{"rmsCurrentPhB", "current_phase_b", "acCurrent"},
	{"rmsCurrentPhC", "current_phase_c", "acCurrent"},
	{"rmsVoltage", "voltage", "acVoltage"},
	{"rmsVoltagePhB", "voltage_phase_b", "acVoltage"},
	{"rmsVoltagePhC", "voltage_phase_c", "acVoltage"},
	{"acFrequency", "ac_frequency", "acFrequency"},
	{"dcPower", "power", "dcPower"},
	{"dcCurrent", "current", "dcCurrent"},
	{"dcVoltage", "voltage", "dcVoltage"},
}

// powerTable lists the power family. family is the scaling the generic
// converter applies; totals have none and are only decoded by the
// fixed-power converter.
var powerTable = []measurement{
	{"activePower", "power", "acPower"},
	{"activePowerPhB", "power_phase_b", "acPower"},
	{"activePowerPhC", "power_phase_c", "acPower"},
	{"apparentPower", "power_apparent", "acPower"},
	{"apparentPowerPhB", "power_apparent_phase_b", "acPower"},
	{"apparentPowerPhC", "power_apparent_phase_c", "acPower"},
	{"reactivePower", "power_reactive", "acPower"},
	{"reactivePowerPhB", "power_reactive_phase_b", "acPower"},
	{"reactivePowerPhC", "power_reactive_phase_c", "acPower"},
	{"totalActivePower", "total_power", ""},
	{"totalApparentPower", "total_power_apparent", ""},
	{"totalReactivePower", "total_power_reactive", ""},
}

var powerFactorTable = []measurement{
	{"powerFactor", "power_factor", ""},
	{"powerFactorPhB", "power_factor_phase_b", ""},
	{"powerFactorPhC", "power_factor_phase_c", ""},
}

// ElectricalMeasurement decodes the cluster with the scaling every family
// declares, including acPower for the power attributes.
var ElectricalMeasurement = Converter{
	Name:    "electrical_measurement",
	Cluster: clusterElectrical,
	Types:   reportTypes,
	Convert: func(model Model, msg *Message, meta *Meta) Payload {
		return decodeElectrical("electrical_measurement", false, model, msg, meta)
	},
}

// ElectricalMeasurementFixedPower decodes the cluster for meters that report
// active, reactive and apparent power already scaled: the power family
// always uses factor 1, whatever multiplier and divisor the endpoint caches.
// Phase totals are decoded too.
var ElectricalMeasurementFixedPower = Converter{
	Name:    "electrical_measurement_fixed_power",
	Cluster: clusterElectrical,
	Types:   reportTypes,
	Convert: func(model Model, msg *Message, meta *Meta) Payload {
		return decodeElectrical("electrical_measurement_fixed_power", true, model, msg, meta)
	},
}

func decodeElectrical(name string, fixedPower bool, model Model, msg *Message, meta *Meta) Payload {
	if seen(model, msg, meta, name) {
		return nil
	}

	factor := func(family string) float64 {
		if msg.Endpoint == nil {
			return 1
		}
		m, _ := msg.Endpoint.ClusterAttributeValue(clusterElectrical, family+"Multiplier")
		d, _ := msg.Endpoint.ClusterAttributeValue(clusterElectrical, family+"Divisor")
		mul, okM := ToFloat64(m)
		div, okD := ToFloat64(d)
		if !okM || !okD || mul == 0 || div == 0 {
			return 1
		}
		return mul / div
	}

	payload := Payload{}
	put := func(entry measurement, f float64) {
		raw, ok := msg.Data[entry.key]
		if !ok {
			return
		}
		v, ok := ToFloat64(raw)
		if !ok {
			meta.logger().Debug("skipping non-numeric attribute", "key", entry.key, "value", raw)
			return
		}
		payload[model.PropertyName(entry.name, msg)] = v * f
	}

	for _, entry := range measurementTable {
		put(entry, factor(entry.family))
	}
	for _, entry := range powerTable {
		switch {
		case fixedPower:
			put(entry, 1)
		case entry.family != "":
			put(entry, factor(entry.family))
		}
	}
	for _, entry := range powerFactorTable {
		raw, ok := msg.Data[entry.key]
		if !ok {
			continue
		}
		if v, ok := ToFloat64(raw); ok {
			payload[model.PropertyName(entry.name, msg)] = PrecisionRound(v/100, 2)
		}
	}
	return payload
}
