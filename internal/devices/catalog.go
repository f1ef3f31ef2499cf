package devices

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"zigbee-catalog/internal/fz"
	"zigbee-catalog/internal/zcl"
)

var ErrUnknownModel = errors.New("unknown model")

// Catalog holds definitions keyed by zigbee model identifier and by model
// name.
type Catalog struct {
	mu            sync.RWMutex
	byZigbeeModel map[string]*Definition
	byModel       map[string]*Definition
	logger        *slog.Logger
}

func NewCatalog(logger *slog.Logger) *Catalog {
	return &Catalog{
		byZigbeeModel: make(map[string]*Definition),
		byModel:       make(map[string]*Definition),
		logger:        logger,
	}
}

// NewDefault returns a catalog holding the built-in vendors.
func NewDefault(logger *slog.Logger) (*Catalog, error) {
	c := NewCatalog(logger)
	for _, r := range Builtin() {
		if err := c.AddRecord(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add registers a definition. A later definition claiming the same zigbee
// model replaces the earlier one.
func (c *Catalog) Add(d *Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, zm := range d.ZigbeeModels {
		if prev, ok := c.byZigbeeModel[zm]; ok && prev.Model != d.Model {
			c.logger.Warn("zigbee model redefined", "zigbee_model", zm, "previous", prev.Model, "model", d.Model)
		}
		c.byZigbeeModel[zm] = d
	}
	c.byModel[d.Model] = d
}

// AddRecord builds a record and registers the result.
func (c *Catalog) AddRecord(r Record) error {
	d, err := Build(r)
	if err != nil {
		return err
	}
	c.Add(d)
	return nil
}

// FindByZigbeeModel looks a definition up by the modelId a device reports.
func (c *Catalog) FindByZigbeeModel(zigbeeModel string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.byZigbeeModel[zigbeeModel]
	return d, ok
}

// FindByModel looks a definition up by its catalog model name.
func (c *Catalog) FindByModel(model string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.byModel[model]
	return d, ok
}

// Resolve accepts either a zigbee model identifier or a model name.
func (c *Catalog) Resolve(name string) (*Definition, error) {
	if d, ok := c.FindByZigbeeModel(name); ok {
		return d, nil
	}
	if d, ok := c.FindByModel(name); ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// All returns the definitions ordered by vendor and model.
func (c *Catalog) All() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Definition, 0, len(c.byModel))
	for _, d := range c.byModel {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Vendor != out[j].Vendor {
			return out[i].Vendor < out[j].Vendor
		}
		return out[i].Model < out[j].Model
	})
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byModel)
}

// AddConverter appends an external converter to a model's definition.
func (c *Catalog) AddConverter(model string, conv *fz.Converter) error {
	return c.AddConverters([]ModelConverter{{Model: model, Converter: conv}})
}

// ModelConverter pairs a converter with the model it extends.
type ModelConverter struct {
	Model     string
	Converter *fz.Converter
}

// AddConverters appends every converter or, when any model is unknown, none.
func (c *Catalog) AddConverters(convs []ModelConverter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defs := make([]*Definition, len(convs))
	for i, mc := range convs {
		d, ok := c.byModel[mc.Model]
		if !ok {
			d, ok = c.byZigbeeModel[mc.Model]
		}
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownModel, mc.Model)
		}
		defs[i] = d
	}
	for i, mc := range convs {
		defs[i].FromZigbee = append(defs[i].FromZigbee, mc.Converter)
	}
	return nil
}

// VendorGroup groups records under one vendor name.
type VendorGroup struct {
	Name   string   `json:"name" yaml:"name"`
	Models []Record `json:"models" yaml:"models"`
}

// definitionFile is the structure of files in a definitions directory.
type definitionFile struct {
	Clusters []zcl.ClusterDef `json:"clusters,omitempty" yaml:"clusters,omitempty"`
	Devices  []Record         `json:"devices,omitempty" yaml:"devices,omitempty"`
	Vendors  []VendorGroup    `json:"vendors,omitempty" yaml:"vendors,omitempty"`
}

// LoadDir reads *.yaml, *.yml and *.json files from dir, registering custom
// clusters into registry and adding device records. A missing or empty
// directory is not an error.
func (c *Catalog) LoadDir(dir string, registry *zcl.Registry) (int, error) {
	var matches []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return 0, fmt.Errorf("glob definitions dir: %w", err)
		}
		matches = append(matches, m...)
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		c.logger.Info("no definition files found", "dir", dir)
		return 0, nil
	}

	total := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return total, fmt.Errorf("read %s: %w", path, err)
		}

		var df definitionFile
		if strings.HasSuffix(path, ".json") {
			err = json.Unmarshal(data, &df)
		} else {
			err = yaml.Unmarshal(data, &df)
		}
		if err != nil {
			return total, fmt.Errorf("parse %s: %w", path, err)
		}

		if registry != nil {
			for _, cl := range df.Clusters {
				registry.Register(cl)
			}
		}
		records := df.Devices
		for _, vg := range df.Vendors {
			for _, r := range vg.Models {
				r.Vendor = vg.Name
				records = append(records, r)
			}
		}
		for _, r := range records {
			if err := c.AddRecord(r); err != nil {
				return total, fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
		}
		total += len(records)

		c.logger.Info("loaded definition file", "path", filepath.Base(path),
			"clusters", len(df.Clusters), "devices", len(records))
	}

	c.logger.Info("definitions loaded", "files", len(matches), "devices", total, "catalog", c.Len())
	return total, nil
}
