package clusters

import "zigbee-catalog/internal/zcl"

const rr = zcl.AccessRead | zcl.AccessReport

// ElectricalMeasurement is cluster 0x0B04. Phase B attributes live at 0x09xx
// and phase C at 0x0Axx with the same low byte as phase A.
var ElectricalMeasurement = zcl.ClusterDef{
	ID:   0x0B04,
	Name: "haElectricalMeasurement",
	Attributes: append([]zcl.AttributeDef{
		{ID: 0x0000, Name: "measurementType", Type: zcl.TypeBitmap32, Access: zcl.AccessRead},

		// DC measurement
		{ID: 0x0100, Name: "dcVoltage", Type: zcl.TypeInt16, Access: rr},
		{ID: 0x0103, Name: "dcCurrent", Type: zcl.TypeInt16, Access: rr},
		{ID: 0x0106, Name: "dcPower", Type: zcl.TypeInt16, Access: rr},

		// DC formatting
		{ID: 0x0200, Name: "dcVoltageMultiplier", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0201, Name: "dcVoltageDivisor", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0202, Name: "dcCurrentMultiplier", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0203, Name: "dcCurrentDivisor", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0204, Name: "dcPowerMultiplier", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0205, Name: "dcPowerDivisor", Type: zcl.TypeUint16, Access: zcl.AccessRead},

		// AC non-phase
		{ID: 0x0300, Name: "acFrequency", Type: zcl.TypeUint16, Access: rr},
		{ID: 0x0304, Name: "totalActivePower", Type: zcl.TypeInt32, Access: rr},
		{ID: 0x0305, Name: "totalReactivePower", Type: zcl.TypeInt32, Access: rr},
		{ID: 0x0306, Name: "totalApparentPower", Type: zcl.TypeUint32, Access: rr},
		{ID: 0x0400, Name: "acFrequencyMultiplier", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0401, Name: "acFrequencyDivisor", Type: zcl.TypeUint16, Access: zcl.AccessRead},

		// AC formatting
		{ID: 0x0600, Name: "acVoltageMultiplier", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0601, Name: "acVoltageDivisor", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0602, Name: "acCurrentMultiplier", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0603, Name: "acCurrentDivisor", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0604, Name: "acPowerMultiplier", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0605, Name: "acPowerDivisor", Type: zcl.TypeUint16, Access: zcl.AccessRead},
	}, phaseAttributes()...),
}

func phaseAttributes() []zcl.AttributeDef {
	base := []zcl.AttributeDef{
		{ID: 0x05, Name: "rmsVoltage", Type: zcl.TypeUint16, Access: rr},
		{ID: 0x08, Name: "rmsCurrent", Type: zcl.TypeUint16, Access: rr},
		{ID: 0x0B, Name: "activePower", Type: zcl.TypeInt16, Access: rr},
		{ID: 0x0E, Name: "reactivePower", Type: zcl.TypeInt16, Access: rr},
		{ID: 0x0F, Name: "apparentPower", Type: zcl.TypeUint16, Access: rr},
		{ID: 0x10, Name: "powerFactor", Type: zcl.TypeInt8, Access: rr},
	}
	phases := []struct {
		high   uint16
		suffix string
	}{
		{0x0500, ""},
		{0x0900, "PhB"},
		{0x0A00, "PhC"},
	}

	attrs := make([]zcl.AttributeDef, 0, len(base)*len(phases))
	for _, p := range phases {
		for _, a := range base {
			a.ID |= p.high
			a.Name += p.suffix
			attrs = append(attrs, a)
		}
	}
	return attrs
}
