package devices

// Builtin returns the records of every built-in vendor.
func Builtin() []Record {
	var all []Record
	for _, vendor := range [][]Record{bituoTechnik(), ezex(), microMatic(), smartHomePty()} {
		all = append(all, vendor...)
	}
	return all
}

func ezex() []Record {
	return []Record{
		{
			ZigbeeModels: []string{"E220-KR3N0Z0-HA"},
			Model:        "ECW-100-A03",
			Vendor:       "eZEX",
			Description:  "Zigbee switch 3 gang",
			Endpoints:    map[string]uint8{"top": 1, "center": 2, "bottom": 3},
			OnOff:        &OnOffOptions{EndpointNames: []string{"top", "center", "bottom"}},
		},
	}
}

func microMatic() []Record {
	return []Record{
		{
			ZigbeeModels:     []string{"SZ1000"},
			Model:            "ZB250",
			Vendor:           "Micro Matic Norge AS",
			Description:      "Zigbee dimmer for LED",
			Light:            &LightOptions{ConfigureReporting: true},
			ElectricityMeter: &MeterOptions{},
		},
	}
}

func smartHomePty() []Record {
	return []Record{
		{
			ZigbeeModels: []string{"FB56-ZCW11HG1.2", "FB56-ZCW11HG1.4"},
			Model:        "HGZB-07A",
			Vendor:       "Smart Home Pty",
			Description:  "RGBW Downlight",
			Light:        &LightOptions{ColorTemp: true, Color: true},
		},
		{
			ZigbeeModels: []string{"FNB56-SKT1EHG1.2"},
			Model:        "HGZB-20-DE",
			Vendor:       "Smart Home Pty",
			Description:  "Power plug",
			OnOff:        &OnOffOptions{},
		},
	}
}
