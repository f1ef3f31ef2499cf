// Package extconv loads external from-zigbee converters written in Lua.
//
// A script registers converters with
//
//	catalog.converter{
//	    model = "SPM01-U02",
//	    cluster = "haElectricalMeasurement",
//	    convert = function(msg) return {power = msg.data.activePower} end,
//	}
//
// and each registration is appended to the model's definition.
package extconv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"zigbee-catalog/internal/devices"
	"zigbee-catalog/internal/fz"
)

// DefaultTimeout bounds a single convert call.
const DefaultTimeout = time.Second

// scriptVM is the Lua state of one script. Converters registered by the
// script run on it, one call at a time.
type scriptVM struct {
	name  string
	mu    sync.Mutex // serializes Lua access
	state *lua.LState
}

// Engine owns the script VMs.
type Engine struct {
	catalog *devices.Catalog
	logger  *slog.Logger
	timeout time.Duration

	mu  sync.Mutex
	vms []*scriptVM
}

// NewEngine creates an engine registering into catalog. A zero timeout
// selects DefaultTimeout.
func NewEngine(catalog *devices.Catalog, logger *slog.Logger, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{
		catalog: catalog,
		logger:  logger.With("component", "extconv"),
		timeout: timeout,
	}
}

// LoadDir loads every *.lua file in dir in name order. A missing directory
// loads nothing. Scripts that fail are logged and skipped; the first failure
// is returned alongside the number of converters registered.
func (e *Engine) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read converters dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".lua") {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)

	total := 0
	var firstErr error
	for _, name := range names {
		n, err := e.LoadFile(filepath.Join(dir, name))
		if err != nil {
			e.logger.Error("load external converter", "file", name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += n
	}
	return total, firstErr
}

// LoadFile runs one script file.
func (e *Engine) LoadFile(path string) (int, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read script: %w", err)
	}
	return e.LoadString(filepath.Base(path), string(code))
}

// LoadString runs a script and registers the converters it declares. A
// script that errors registers nothing.
func (e *Engine) LoadString(name, code string) (int, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: false})

	// Sandbox: remove dangerous libs and functions
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("debug", lua.LNil)
	L.SetGlobal("package", lua.LNil)

	vm := &scriptVM{name: name, state: L}
	var pending []registration
	registerCatalogModule(L, e, func(r registration) { pending = append(pending, r) })

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	L.SetContext(ctx)
	err := L.DoString(code)
	L.RemoveContext()
	cancel()
	if err != nil {
		L.Close()
		return 0, fmt.Errorf("execute script %s: %w", name, err)
	}

	convs := make([]devices.ModelConverter, len(pending))
	for i, r := range pending {
		convs[i] = devices.ModelConverter{Model: r.model, Converter: e.converter(vm, r, i)}
	}
	if err := e.catalog.AddConverters(convs); err != nil {
		L.Close()
		return 0, fmt.Errorf("script %s: %w", name, err)
	}
	for i, r := range pending {
		e.logger.Info("external converter registered", "script", name, "model", r.model, "cluster", r.cluster, "name", convs[i].Converter.Name)
	}

	e.mu.Lock()
	e.vms = append(e.vms, vm)
	e.mu.Unlock()
	return len(pending), nil
}

// Close shuts every VM down. Converters registered by them stop publishing.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, vm := range e.vms {
		vm.mu.Lock()
		vm.state.Close()
		vm.state = nil
		vm.mu.Unlock()
	}
	e.vms = nil
}

// registration is one catalog.converter call.
type registration struct {
	name    string
	model   string
	cluster string
	types   []string
	fn      *lua.LFunction
}

func (e *Engine) converter(vm *scriptVM, r registration, index int) *fz.Converter {
	name := r.name
	if name == "" {
		name = fmt.Sprintf("%s#%d", strings.TrimSuffix(vm.name, ".lua"), index+1)
	}
	types := r.types
	if len(types) == 0 {
		types = []string{fz.TypeAttributeReport, fz.TypeReadResponse}
	}
	return &fz.Converter{
		Name:    name,
		Cluster: r.cluster,
		Types:   types,
		Convert: func(model fz.Model, msg *fz.Message, meta *fz.Meta) fz.Payload {
			if meta != nil && meta.Dedup != nil && meta.Dedup.Seen(model, msg, name) {
				return nil
			}
			return e.call(vm, r.fn, name, model, msg)
		},
	}
}

// call runs a convert function. Script errors and timeouts are logged and
// publish nothing.
func (e *Engine) call(vm *scriptVM, fn *lua.LFunction, name string, model fz.Model, msg *fz.Message) fz.Payload {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	L := vm.state
	if L == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	L.SetContext(ctx)
	defer L.RemoveContext()

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, messageTable(L, model, msg)); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "context deadline exceeded") {
			errStr = "timeout (" + e.timeout.String() + ")"
		}
		e.logger.Warn("external converter error", "converter", name, "device", msg.Device, "err", errStr)
		return nil
	}
	ret := L.Get(-1)
	L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil
	}
	m, ok := luaToGo(tbl).(map[string]any)
	if !ok {
		e.logger.Warn("external converter returned a list", "converter", name)
		return nil
	}
	if len(m) == 0 {
		return nil
	}
	return fz.Payload(m)
}
