// Package exposes describes the properties a device publishes, in the shape
// front ends use to render controls and charts.
package exposes

import (
	"errors"
	"fmt"
	"sort"
)

// Access bits.
const (
	AccessState uint8 = 1
	AccessSet   uint8 = 2
	AccessGet   uint8 = 4

	AccessStateSet = AccessState | AccessSet
	AccessStateGet = AccessState | AccessGet
	AccessAll      = AccessState | AccessSet | AccessGet
)

// Expose types.
const (
	TypeNumeric   = "numeric"
	TypeBinary    = "binary"
	TypeEnum      = "enum"
	TypeComposite = "composite"
	TypeSwitch    = "switch"
	TypeLight     = "light"
)

var ErrUnknownPreset = errors.New("unknown expose preset")

// Expose is one published property or a group of them.
type Expose struct {
	Type        string   `json:"type" yaml:"type"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	Property    string   `json:"property,omitempty" yaml:"property,omitempty"`
	Access      uint8    `json:"access,omitempty" yaml:"access,omitempty"`
	Unit        string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Endpoint    string   `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
	ValueOn     any      `json:"value_on,omitempty" yaml:"value_on,omitempty"`
	ValueOff    any      `json:"value_off,omitempty" yaml:"value_off,omitempty"`
	ValueMin    *float64 `json:"value_min,omitempty" yaml:"value_min,omitempty"`
	ValueMax    *float64 `json:"value_max,omitempty" yaml:"value_max,omitempty"`
	Values      []string `json:"values,omitempty" yaml:"values,omitempty"`
	Features    []Expose `json:"features,omitempty" yaml:"features,omitempty"`
}

func Numeric(name string, access uint8) Expose {
	return Expose{Type: TypeNumeric, Name: name, Label: label(name), Property: name, Access: access}
}

func Binary(name string, access uint8, on, off any) Expose {
	return Expose{Type: TypeBinary, Name: name, Label: label(name), Property: name, Access: access, ValueOn: on, ValueOff: off}
}

func Enum(name string, access uint8, values ...string) Expose {
	return Expose{Type: TypeEnum, Name: name, Label: label(name), Property: name, Access: access, Values: values}
}

func (e Expose) WithUnit(unit string) Expose {
	e.Unit = unit
	return e
}

func (e Expose) WithDescription(d string) Expose {
	e.Description = d
	return e
}

func (e Expose) WithRange(min, max float64) Expose {
	e.ValueMin = &min
	e.ValueMax = &max
	return e
}

func (e Expose) WithCategory(c string) Expose {
	e.Category = c
	return e
}

// WithEndpoint binds the expose to a named endpoint. Properties gain an
// "_<endpoint>" suffix, matching the names converters publish for
// multi-endpoint devices.
func (e Expose) WithEndpoint(endpoint string) Expose {
	e.Endpoint = endpoint
	if e.Property != "" {
		e.Property = e.Property + "_" + endpoint
	}
	if len(e.Features) > 0 {
		features := make([]Expose, len(e.Features))
		for i, f := range e.Features {
			features[i] = f.WithEndpoint(endpoint)
		}
		e.Features = features
	}
	return e
}

// Properties returns every property name the expose publishes, including
// those of nested features.
func (e Expose) Properties() []string {
	var props []string
	if e.Property != "" && len(e.Features) == 0 {
		props = append(props, e.Property)
	}
	for _, f := range e.Features {
		props = append(props, f.Properties()...)
	}
	return props
}

func label(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c == '_' {
			b[i] = ' '
		}
	}
	if len(b) > 0 && b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

// Preset returns a named expose preset.
func Preset(name string) (Expose, error) {
	fn, ok := presets[name]
	if !ok {
		return Expose{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return fn(), nil
}

// PresetNames lists the registered preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
