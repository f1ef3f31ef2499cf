package clusters

import "zigbee-catalog/internal/zcl"

var ColorControl = zcl.ClusterDef{
	ID:   0x0300,
	Name: "lightingColorCtrl",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "currentHue", Type: zcl.TypeUint8, Access: rr},
		{ID: 0x0001, Name: "currentSaturation", Type: zcl.TypeUint8, Access: rr},
		{ID: 0x0003, Name: "currentX", Type: zcl.TypeUint16, Access: rr},
		{ID: 0x0004, Name: "currentY", Type: zcl.TypeUint16, Access: rr},
		{ID: 0x0007, Name: "colorTemperature", Type: zcl.TypeUint16, Access: rr},
		{ID: 0x0008, Name: "colorMode", Type: zcl.TypeEnum8, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: 0x400A, Name: "colorCapabilities", Type: zcl.TypeBitmap16, Access: zcl.AccessRead},
		{ID: 0x400B, Name: "colorTempPhysicalMin", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x400C, Name: "colorTempPhysicalMax", Type: zcl.TypeUint16, Access: zcl.AccessRead},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x07, Name: "moveToColor", Direction: zcl.DirectionToServer},
		{ID: 0x0A, Name: "moveToColorTemp", Direction: zcl.DirectionToServer},
	},
}

// All lists every cluster the catalog decodes or configures.
func All() []zcl.ClusterDef {
	return []zcl.ClusterDef{Basic, OnOff, LevelControl, ColorControl, Metering, ElectricalMeasurement}
}
