package extconv

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"

	"zigbee-catalog/internal/devices"
	"zigbee-catalog/internal/fz"
)

type testEndpoint struct {
	id    uint8
	cache map[string]map[string]any
}

func (e *testEndpoint) ID() uint8 { return e.id }

func (e *testEndpoint) ClusterAttributeValue(cluster, attr string) (any, bool) {
	v, ok := e.cache[cluster][attr]
	return v, ok
}

func newTestEngine(t *testing.T, timeout time.Duration) (*Engine, *devices.Catalog) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog, err := devices.NewDefault(logger)
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(catalog, logger, timeout)
	t.Cleanup(e.Close)
	return e, catalog
}

func electricalMessage(seq uint8, data map[string]any) *fz.Message {
	return &fz.Message{
		Type:                fz.TypeAttributeReport,
		Cluster:             "haElectricalMeasurement",
		Device:              "0x00124b0001020304",
		Endpoint:            &testEndpoint{id: 11, cache: map[string]map[string]any{"haElectricalMeasurement": {"acPowerDivisor": uint64(10)}}},
		Data:                data,
		TransactionSequence: seq,
	}
}

const doublePower = `
catalog.converter{
    model = "SPM01-U02",
    cluster = "haElectricalMeasurement",
    name = "double_power",
    convert = function(msg)
        if msg.data.activePower == nil then return nil end
        return {
            double_power = msg.data.activePower * 2,
            divisor = msg.attribute("haElectricalMeasurement", "acPowerDivisor"),
            ep = msg.endpoint,
            rounded = catalog.round(1.23456, 2),
        }
    end,
}
`

func TestLoadStringRegistersConverter(t *testing.T) {
	e, catalog := newTestEngine(t, 0)

	n, err := e.LoadString("double.lua", doublePower)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("registered = %d, want 1", n)
	}

	def, ok := catalog.FindByModel("SPM01-U02")
	if !ok {
		t.Fatal("SPM01-U02 not in catalog")
	}
	last := def.FromZigbee[len(def.FromZigbee)-1]
	if last.Name != "double_power" || last.Cluster != "haElectricalMeasurement" {
		t.Errorf("last converter = %s on %s", last.Name, last.Cluster)
	}

	payload := def.Convert(electricalMessage(1, map[string]any{"activePower": int64(150)}), nil)
	if payload["double_power"] != 300.0 {
		t.Errorf("double_power = %v, want 300", payload["double_power"])
	}
	if payload["power"] != 150.0 {
		t.Errorf("built-in power = %v, want 150", payload["power"])
	}
	if payload["divisor"] != 10.0 {
		t.Errorf("divisor = %v, want 10", payload["divisor"])
	}
	if payload["ep"] != 11.0 {
		t.Errorf("ep = %v, want 11", payload["ep"])
	}
	if payload["rounded"] != 1.23 {
		t.Errorf("rounded = %v, want 1.23", payload["rounded"])
	}
}

func TestConverterReturningNil(t *testing.T) {
	e, catalog := newTestEngine(t, 0)
	if _, err := e.LoadString("double.lua", doublePower); err != nil {
		t.Fatal(err)
	}
	def, _ := catalog.FindByModel("SPM01-U02")
	conv := def.FromZigbee[len(def.FromZigbee)-1]

	if p := conv.Convert(def, electricalMessage(1, map[string]any{"rmsVoltage": 230}), nil); p != nil {
		t.Errorf("payload = %v, want nil", p)
	}
}

func TestConverterDedup(t *testing.T) {
	e, catalog := newTestEngine(t, 0)
	if _, err := e.LoadString("double.lua", doublePower); err != nil {
		t.Fatal(err)
	}
	def, _ := catalog.FindByModel("SPM01-U02")
	conv := def.FromZigbee[len(def.FromZigbee)-1]
	meta := &fz.Meta{Dedup: fz.NewDeduper()}

	if p := conv.Convert(def, electricalMessage(9, map[string]any{"activePower": 1}), meta); p == nil {
		t.Fatal("first message suppressed")
	}
	if p := conv.Convert(def, electricalMessage(9, map[string]any{"activePower": 1}), meta); p != nil {
		t.Errorf("duplicate transaction published %v", p)
	}
}

func TestConverterRuntimeError(t *testing.T) {
	e, catalog := newTestEngine(t, 0)
	_, err := e.LoadString("broken.lua", `
catalog.converter{
    model = "HGZB-20-DE",
    cluster = "genOnOff",
    convert = function(msg) error("boom") end,
}`)
	if err != nil {
		t.Fatal(err)
	}
	def, _ := catalog.FindByModel("HGZB-20-DE")
	conv := def.FromZigbee[len(def.FromZigbee)-1]
	if conv.Name != "broken#1" {
		t.Errorf("default name = %q, want broken#1", conv.Name)
	}
	msg := &fz.Message{Type: fz.TypeAttributeReport, Cluster: "genOnOff", Data: map[string]any{"onOff": true}}
	if p := conv.Convert(def, msg, nil); p != nil {
		t.Errorf("payload = %v, want nil", p)
	}
}

func TestConverterTimeout(t *testing.T) {
	e, catalog := newTestEngine(t, 50*time.Millisecond)
	_, err := e.LoadString("loop.lua", `
catalog.converter{
    model = "HGZB-20-DE",
    cluster = "genOnOff",
    convert = function(msg) while true do end end,
}`)
	if err != nil {
		t.Fatal(err)
	}
	def, _ := catalog.FindByModel("HGZB-20-DE")
	conv := def.FromZigbee[len(def.FromZigbee)-1]

	done := make(chan fz.Payload, 1)
	go func() {
		done <- conv.Convert(def, &fz.Message{Type: fz.TypeAttributeReport, Cluster: "genOnOff"}, nil)
	}()
	select {
	case p := <-done:
		if p != nil {
			t.Errorf("payload = %v, want nil", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("convert did not time out")
	}
}

func TestPropertyHelperSuffixesEndpoint(t *testing.T) {
	e, catalog := newTestEngine(t, 0)
	_, err := e.LoadString("ezex.lua", `
catalog.converter{
    model = "ECW-100-A03",
    cluster = "genOnOff",
    type = "attributeReport",
    convert = function(msg)
        local out = {}
        out[msg.property("raw_state")] = msg.data.onOff
        return out
    end,
}`)
	if err != nil {
		t.Fatal(err)
	}
	def, _ := catalog.FindByModel("ECW-100-A03")
	conv := def.FromZigbee[len(def.FromZigbee)-1]
	msg := &fz.Message{
		Type:     fz.TypeAttributeReport,
		Cluster:  "genOnOff",
		Endpoint: &testEndpoint{id: 2},
		Data:     map[string]any{"onOff": true},
	}
	p := conv.Convert(def, msg, nil)
	if p["raw_state_center"] != true {
		t.Errorf("payload = %v, want raw_state_center=true", p)
	}

	msg.Type = fz.TypeReadResponse
	if conv.Matches(msg) {
		t.Error("converter limited to attributeReport matched a readResponse")
	}
}

func TestLoadStringErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"syntax", `catalog.converter{`, "execute script"},
		{"unknown model", `catalog.converter{model="nope", cluster="genOnOff", convert=function(m) end}`, "unknown model"},
		{"missing cluster", `catalog.converter{model="ZB250", convert=function(m) end}`, "cluster is required"},
		{"missing convert", `catalog.converter{model="ZB250", cluster="genOnOff"}`, "convert must be a function"},
		{"bad type", `catalog.converter{model="ZB250", cluster="genOnOff", type="commandOn", convert=function(m) end}`, "unsupported message type"},
		{"sandboxed os", `os.exit(1)`, "execute script"},
		{"second model unknown", `catalog.converter{model="ZB250", cluster="genOnOff", convert=function(m) end}
catalog.converter{model="nope", cluster="genOnOff", convert=function(m) end}`, "unknown model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, catalog := newTestEngine(t, 0)
			before := len(mustDef(t, catalog, "ZB250").FromZigbee)

			n, err := e.LoadString(tt.name+".lua", tt.code)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want substring %q", err, tt.want)
			}
			if n != 0 {
				t.Errorf("registered = %d, want 0", n)
			}
			if after := len(mustDef(t, catalog, "ZB250").FromZigbee); after != before {
				t.Errorf("converters changed from %d to %d", before, after)
			}
		})
	}
}

func mustDef(t *testing.T, c *devices.Catalog, model string) *devices.Definition {
	t.Helper()
	def, ok := c.FindByModel(model)
	if !ok {
		t.Fatalf("%s not in catalog", model)
	}
	return def
}

func TestLoadDir(t *testing.T) {
	e, catalog := newTestEngine(t, 0)
	dir := t.TempDir()

	files := map[string]string{
		"a.lua":     doublePower,
		"b.lua":     `catalog.converter{model="ZB250", cluster="genLevelCtrl", convert=function(m) return {level=m.data.currentLevel} end}`,
		"c.lua":     `this is not lua`,
		"notes.txt": `catalog.converter{}`,
	}
	for name, code := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(code), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	n, err := e.LoadDir(dir)
	if err == nil || !strings.Contains(err.Error(), "c.lua") {
		t.Errorf("err = %v, want failure naming c.lua", err)
	}
	if n != 2 {
		t.Errorf("registered = %d, want 2", n)
	}
	zb := mustDef(t, catalog, "ZB250")
	if last := zb.FromZigbee[len(zb.FromZigbee)-1]; last.Cluster != "genLevelCtrl" || last.Name != "b#1" {
		t.Errorf("ZB250 last converter = %s on %s", last.Name, last.Cluster)
	}
}

func TestLoadDirMissing(t *testing.T) {
	e, _ := newTestEngine(t, 0)
	n, err := e.LoadDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil || n != 0 {
		t.Errorf("LoadDir(missing) = %d, %v; want 0, nil", n, err)
	}
}

func TestCloseStopsConverters(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog, err := devices.NewDefault(logger)
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(catalog, logger, 0)
	if _, err := e.LoadString("double.lua", doublePower); err != nil {
		t.Fatal(err)
	}
	def := mustDef(t, catalog, "SPM01-U02")
	conv := def.FromZigbee[len(def.FromZigbee)-1]

	e.Close()
	if p := conv.Convert(def, electricalMessage(1, map[string]any{"activePower": 1}), nil); p != nil {
		t.Errorf("payload after close = %v, want nil", p)
	}
}

func TestGoToLua(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tests := []struct {
		name string
		val  any
		want lua.LValueType
	}{
		{"nil", nil, lua.LTNil},
		{"bool", true, lua.LTBool},
		{"string", "hello", lua.LTString},
		{"int", 42, lua.LTNumber},
		{"uint64", uint64(99), lua.LTNumber},
		{"float64", 3.14, lua.LTNumber},
		{"bytes", []byte{0x01, 0x02}, lua.LTString},
		{"map", map[string]any{"a": 1}, lua.LTTable},
		{"slice", []any{1, 2, 3}, lua.LTTable},
		{"unknown", struct{}{}, lua.LTString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := goToLua(L, tt.val).Type(); got != tt.want {
				t.Errorf("goToLua(%v) type = %v, want %v", tt.val, got, tt.want)
			}
		})
	}
}

func TestLuaToGo(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	if err := L.DoString(`v = {a = 1, b = "x", c = true, d = {1, 2}, e = {f = 2.5}}`); err != nil {
		t.Fatal(err)
	}
	got, ok := luaToGo(L.GetGlobal("v")).(map[string]any)
	if !ok {
		t.Fatalf("luaToGo returned %T", luaToGo(L.GetGlobal("v")))
	}
	if got["a"] != 1.0 || got["b"] != "x" || got["c"] != true {
		t.Errorf("scalars = %v", got)
	}
	if list, ok := got["d"].([]any); !ok || len(list) != 2 || list[1] != 2.0 {
		t.Errorf("d = %v, want [1 2]", got["d"])
	}
	if nested, ok := got["e"].(map[string]any); !ok || nested["f"] != 2.5 {
		t.Errorf("e = %v, want map[f:2.5]", got["e"])
	}
}
