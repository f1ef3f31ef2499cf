package clusters

import "zigbee-catalog/internal/zcl"

var Metering = zcl.ClusterDef{
	ID:   0x0702,
	Name: "seMetering",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "currentSummDelivered", Type: zcl.TypeUint48, Access: rr},
		{ID: 0x0001, Name: "currentSummReceived", Type: zcl.TypeUint48, Access: rr},
		{ID: 0x0200, Name: "status", Type: zcl.TypeBitmap8, Access: zcl.AccessRead},
		{ID: 0x0300, Name: "unitOfMeasure", Type: zcl.TypeEnum8, Access: zcl.AccessRead},
		{ID: 0x0301, Name: "multiplier", Type: zcl.TypeUint24, Access: zcl.AccessRead},
		{ID: 0x0302, Name: "divisor", Type: zcl.TypeUint24, Access: zcl.AccessRead},
		{ID: 0x0303, Name: "summaFormatting", Type: zcl.TypeBitmap8, Access: zcl.AccessRead},
		{ID: 0x0400, Name: "instantaneousDemand", Type: zcl.TypeInt24, Access: rr},
	},
}
