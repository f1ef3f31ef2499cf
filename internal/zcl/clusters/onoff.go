package clusters

import "zigbee-catalog/internal/zcl"

var OnOff = zcl.ClusterDef{
	ID:   0x0006,
	Name: "genOnOff",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "onOff", Type: zcl.TypeBool, Access: rr},
		{ID: 0x4003, Name: "startUpOnOff", Type: zcl.TypeEnum8, Access: zcl.AccessRead | zcl.AccessWrite},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "off", Direction: zcl.DirectionToServer},
		{ID: 0x01, Name: "on", Direction: zcl.DirectionToServer},
		{ID: 0x02, Name: "toggle", Direction: zcl.DirectionToServer},
	},
}

var LevelControl = zcl.ClusterDef{
	ID:   0x0008,
	Name: "genLevelCtrl",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "currentLevel", Type: zcl.TypeUint8, Access: rr},
		{ID: 0x0011, Name: "onLevel", Type: zcl.TypeUint8, Access: zcl.AccessRead | zcl.AccessWrite},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "moveToLevel", Direction: zcl.DirectionToServer},
		{ID: 0x04, Name: "moveToLevelWithOnOff", Direction: zcl.DirectionToServer},
	},
}
