// Package fz holds the from-zigbee converters: functions that turn a decoded
// ZCL attribute report into device state properties.
package fz

import (
	"log/slog"
	"math"
	"slices"
)

// Message types a converter can subscribe to.
const (
	TypeAttributeReport = "attributeReport"
	TypeReadResponse    = "readResponse"
)

// Payload maps published property names to values.
type Payload map[string]any

// Endpoint is the device endpoint a message arrived on. The attribute cache
// behind ClusterAttributeValue is owned by the Zigbee stack; converters only
// read it.
type Endpoint interface {
	ID() uint8
	ClusterAttributeValue(cluster, attr string) (any, bool)
}

// Message is a parsed attribute report or read response.
type Message struct {
	Type                string
	Cluster             string
	Device              string // IEEE address
	Endpoint            Endpoint
	Data                map[string]any
	TransactionSequence uint8
	Unsequenced         bool // no transaction sequence; never deduplicated
	LinkQuality         uint8
}

// Model is the naming policy and per-model flags of the definition the
// message is converted for.
type Model interface {
	// PropertyName returns base, suffixed with the endpoint name when the
	// model publishes the same property on several endpoints.
	PropertyName(base string, msg *Message) string
	PublishDuplicateTransaction() bool
}

// Meta carries per-invocation collaborators.
type Meta struct {
	Dedup  *Deduper
	State  map[string]any // current device state, read-only
	Logger *slog.Logger
}

// Converter decodes messages of one cluster.
type Converter struct {
	Name    string
	Cluster string // "*" matches every cluster
	Types   []string
	Convert func(model Model, msg *Message, meta *Meta) Payload
}

// Matches reports whether the converter handles msg.
func (c *Converter) Matches(msg *Message) bool {
	if c.Cluster != "*" && c.Cluster != msg.Cluster {
		return false
	}
	return len(c.Types) == 0 || slices.Contains(c.Types, msg.Type)
}

var reportTypes = []string{TypeAttributeReport, TypeReadResponse}

// PrecisionRound rounds v to the given number of decimal places.
func PrecisionRound(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

// ToFloat64 converts a decoded attribute value to float64.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (m *Meta) logger() *slog.Logger {
	if m == nil || m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// seen applies the dedup guard when one is configured.
func seen(model Model, msg *Message, meta *Meta, key string) bool {
	if meta == nil || meta.Dedup == nil {
		return false
	}
	return meta.Dedup.Seen(model, msg, key)
}
