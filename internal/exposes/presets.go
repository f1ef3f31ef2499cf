package exposes

func Power() Expose {
	return Numeric("power", AccessStateGet).WithUnit("W").WithDescription("Instantaneous measured power")
}

func Voltage() Expose {
	return Numeric("voltage", AccessStateGet).WithUnit("V").WithDescription("Measured electrical potential value")
}

func Current() Expose {
	return Numeric("current", AccessStateGet).WithUnit("A").WithDescription("Instantaneous measured electrical current")
}

func Energy() Expose {
	return Numeric("energy", AccessStateGet).WithUnit("kWh").WithDescription("Sum of consumed energy")
}

func ProducedEnergy() Expose {
	return Numeric("produced_energy", AccessStateGet).WithUnit("kWh").WithDescription("Sum of produced energy")
}

func ACFrequency() Expose {
	return Numeric("ac_frequency", AccessStateGet).WithUnit("Hz").WithDescription("Measured electrical AC frequency")
}

func PowerFactor() Expose {
	return Numeric("power_factor", AccessStateGet).WithDescription("Instantaneous measured power factor")
}

func PowerApparent() Expose {
	return Numeric("power_apparent", AccessStateGet).WithUnit("VA").WithDescription("Instantaneous measured apparent power")
}

func PowerReactive() Expose {
	return Numeric("power_reactive", AccessStateGet).WithUnit("VAR").WithDescription("Instantaneous measured reactive power")
}

func TotalPower() Expose {
	return Numeric("total_power", AccessState).WithUnit("W").WithDescription("Total active power")
}

func TotalPowerApparent() Expose {
	return Numeric("total_power_apparent", AccessState).WithUnit("VA").WithDescription("Total apparent power")
}

func TotalPowerReactive() Expose {
	return Numeric("total_power_reactive", AccessState).WithUnit("VAR").WithDescription("Total reactive power")
}

func LinkQuality() Expose {
	return Numeric("linkquality", AccessState).
		WithUnit("lqi").
		WithDescription("Link quality (signal strength)").
		WithRange(0, 255).
		WithCategory("diagnostic")
}

// Switch is an on/off switch with a single state feature.
func Switch() Expose {
	return Expose{
		Type:     TypeSwitch,
		Features: []Expose{Binary("state", AccessAll, "ON", "OFF").WithDescription("On/off state of the switch")},
	}
}

// Light is a dimmable light, optionally with color temperature and xy color.
func Light(colorTemp, color bool) Expose {
	features := []Expose{
		Binary("state", AccessAll, "ON", "OFF").WithDescription("On/off state of this light"),
		Numeric("brightness", AccessAll).WithRange(0, 254).WithDescription("Brightness of this light"),
	}
	if colorTemp {
		features = append(features, Numeric("color_temp", AccessAll).
			WithUnit("mired").
			WithRange(150, 500).
			WithDescription("Color temperature of this light"))
	}
	if color {
		xy := Expose{
			Type:        TypeComposite,
			Name:        "color_xy",
			Label:       "Color (X/Y)",
			Property:    "color",
			Access:      AccessAll,
			Description: "Color of this light in the CIE 1931 color space (x/y)",
			Features: []Expose{
				Numeric("x", AccessAll),
				Numeric("y", AccessAll),
			},
		}
		features = append(features, xy)
	}
	return Expose{Type: TypeLight, Features: features}
}

// phaseB and phaseC derive the per-phase variant of a measurement expose.
func phaseB(e Expose) Expose { return phase(e, "b") }
func phaseC(e Expose) Expose { return phase(e, "c") }

func phase(e Expose, p string) Expose {
	e.Name += "_phase_" + p
	e.Property = e.Name
	e.Label = label(e.Name)
	return e
}

var presets = map[string]func() Expose{
	"power":                  Power,
	"power_phase_b":          func() Expose { return phaseB(Power()) },
	"power_phase_c":          func() Expose { return phaseC(Power()) },
	"voltage":                Voltage,
	"voltage_phase_b":        func() Expose { return phaseB(Voltage()) },
	"voltage_phase_c":        func() Expose { return phaseC(Voltage()) },
	"current":                Current,
	"current_phase_b":        func() Expose { return phaseB(Current()) },
	"current_phase_c":        func() Expose { return phaseC(Current()) },
	"energy":                 Energy,
	"produced_energy":        ProducedEnergy,
	"ac_frequency":           ACFrequency,
	"power_factor":           PowerFactor,
	"power_factor_phase_b":   func() Expose { return phaseB(PowerFactor()) },
	"power_factor_phase_c":   func() Expose { return phaseC(PowerFactor()) },
	"power_apparent":         PowerApparent,
	"power_apparent_phase_b": func() Expose { return phaseB(PowerApparent()) },
	"power_apparent_phase_c": func() Expose { return phaseC(PowerApparent()) },
	"power_reactive":         PowerReactive,
	"power_reactive_phase_b": func() Expose { return phaseB(PowerReactive()) },
	"power_reactive_phase_c": func() Expose { return phaseC(PowerReactive()) },
	"total_power":            TotalPower,
	"total_power_apparent":   TotalPowerApparent,
	"total_power_reactive":   TotalPowerReactive,
	"linkquality":            LinkQuality,
	"switch":                 Switch,
	"light":                  func() Expose { return Light(false, false) },
	"light_color_temp":       func() Expose { return Light(true, false) },
	"light_color":            func() Expose { return Light(true, true) },
}
