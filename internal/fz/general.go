package fz

import "sort"

// OnOff publishes genOnOff onOff as state ON/OFF.
var OnOff = Converter{
	Name:    "on_off",
	Cluster: "genOnOff",
	Types:   reportTypes,
	Convert: func(model Model, msg *Message, meta *Meta) Payload {
		raw, ok := msg.Data["onOff"]
		if !ok {
			return nil
		}
		v, _ := ToFloat64(raw)
		state := "OFF"
		if v == 1 {
			state = "ON"
		}
		return Payload{model.PropertyName("state", msg): state}
	},
}

// Brightness publishes genLevelCtrl currentLevel.
var Brightness = Converter{
	Name:    "brightness",
	Cluster: "genLevelCtrl",
	Types:   reportTypes,
	Convert: func(model Model, msg *Message, meta *Meta) Payload {
		raw, ok := msg.Data["currentLevel"]
		if !ok {
			return nil
		}
		v, ok := ToFloat64(raw)
		if !ok {
			return nil
		}
		return Payload{model.PropertyName("brightness", msg): v}
	},
}

var colorModes = map[float64]string{0: "hs", 1: "xy", 2: "color_temp"}

// ColorColorTemp publishes color temperature, color mode and the color
// coordinates of lightingColorCtrl.
var ColorColorTemp = Converter{
	Name:    "color_colortemp",
	Cluster: "lightingColorCtrl",
	Types:   reportTypes,
	Convert: func(model Model, msg *Message, meta *Meta) Payload {
		payload := Payload{}
		if v, ok := ToFloat64(msg.Data["colorTemperature"]); ok {
			payload[model.PropertyName("color_temp", msg)] = v
		}
		if v, ok := ToFloat64(msg.Data["colorMode"]); ok {
			if mode, known := colorModes[v]; known {
				payload[model.PropertyName("color_mode", msg)] = mode
			}
		}

		color := map[string]float64{}
		if v, ok := ToFloat64(msg.Data["currentX"]); ok {
			color["x"] = PrecisionRound(v/65535, 4)
		}
		if v, ok := ToFloat64(msg.Data["currentY"]); ok {
			color["y"] = PrecisionRound(v/65535, 4)
		}
		if v, ok := ToFloat64(msg.Data["currentHue"]); ok {
			color["hue"] = PrecisionRound(v*360/254, 0)
		}
		if v, ok := ToFloat64(msg.Data["currentSaturation"]); ok {
			color["saturation"] = PrecisionRound(v*100/254, 0)
		}
		if len(color) > 0 {
			payload[model.PropertyName("color", msg)] = color
		}
		return payload
	},
}

var builtin = map[string]*Converter{
	ElectricalMeasurement.Name:           &ElectricalMeasurement,
	ElectricalMeasurementFixedPower.Name: &ElectricalMeasurementFixedPower,
	Metering.Name:                        &Metering,
	OnOff.Name:                           &OnOff,
	Brightness.Name:                      &Brightness,
	ColorColorTemp.Name:                  &ColorColorTemp,
}

// Lookup returns a built-in converter by name.
func Lookup(name string) (*Converter, bool) {
	c, ok := builtin[name]
	return c, ok
}

// Names lists the built-in converter names.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
