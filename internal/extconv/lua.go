package extconv

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"zigbee-catalog/internal/fz"
)

// registerCatalogModule installs the "catalog" global: converter, log and
// round.
func registerCatalogModule(L *lua.LState, e *Engine, register func(registration)) {
	mod := L.NewTable()

	mod.RawSetString("converter", L.NewFunction(func(L *lua.LState) int {
		r, err := parseRegistration(L.CheckTable(1))
		if err != nil {
			L.RaiseError("catalog.converter: %s", err.Error())
			return 0
		}
		register(r)
		return 0
	}))
	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		e.logger.Info("script log", "msg", L.CheckString(1))
		return 0
	}))
	mod.RawSetString("round", L.NewFunction(func(L *lua.LState) int {
		v := float64(L.CheckNumber(1))
		digits := L.OptInt(2, 0)
		L.Push(lua.LNumber(fz.PrecisionRound(v, digits)))
		return 1
	}))

	L.SetGlobal("catalog", mod)
}

func parseRegistration(tbl *lua.LTable) (registration, error) {
	var r registration
	str := func(key string) string {
		if s, ok := tbl.RawGetString(key).(lua.LString); ok {
			return string(s)
		}
		return ""
	}
	r.model = str("model")
	r.cluster = str("cluster")
	r.name = str("name")
	if r.model == "" {
		return r, fmt.Errorf("model is required")
	}
	if r.cluster == "" {
		return r, fmt.Errorf("cluster is required")
	}
	fn, ok := tbl.RawGetString("convert").(*lua.LFunction)
	if !ok {
		return r, fmt.Errorf("convert must be a function")
	}
	r.fn = fn

	switch t := tbl.RawGetString("type").(type) {
	case lua.LString:
		r.types = []string{string(t)}
	case *lua.LTable:
		t.ForEach(func(_, v lua.LValue) {
			if s, ok := v.(lua.LString); ok {
				r.types = append(r.types, string(s))
			}
		})
	}
	for _, typ := range r.types {
		if typ != fz.TypeAttributeReport && typ != fz.TypeReadResponse {
			return r, fmt.Errorf("unsupported message type %q", typ)
		}
	}
	return r, nil
}

// messageTable builds the msg argument of a convert function.
func messageTable(L *lua.LState, model fz.Model, msg *fz.Message) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("type", lua.LString(msg.Type))
	t.RawSetString("cluster", lua.LString(msg.Cluster))
	t.RawSetString("device", lua.LString(msg.Device))
	t.RawSetString("linkquality", lua.LNumber(msg.LinkQuality))
	if !msg.Unsequenced {
		t.RawSetString("transaction", lua.LNumber(msg.TransactionSequence))
	}

	data := L.NewTable()
	for k, v := range msg.Data {
		data.RawSetString(k, goToLua(L, v))
	}
	t.RawSetString("data", data)

	if msg.Endpoint != nil {
		t.RawSetString("endpoint", lua.LNumber(msg.Endpoint.ID()))
	}

	// msg.attribute(cluster, attr) reads the endpoint attribute cache.
	t.RawSetString("attribute", L.NewFunction(func(L *lua.LState) int {
		cluster := L.CheckString(1)
		attr := L.CheckString(2)
		if msg.Endpoint == nil {
			L.Push(lua.LNil)
			return 1
		}
		v, ok := msg.Endpoint.ClusterAttributeValue(cluster, attr)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(goToLua(L, v))
		return 1
	}))
	// msg.property(name) applies the model's endpoint suffix.
	t.RawSetString("property", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(model.PropertyName(L.CheckString(1), msg)))
		return 1
	}))
	return t
}

func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(fmt.Sprintf("%X", val))
	case map[string]any:
		t := L.NewTable()
		for k, vv := range val {
			t.RawSetString(k, goToLua(L, vv))
		}
		return t
	case []any:
		t := L.NewTable()
		for i, vv := range val {
			t.RawSetInt(i+1, goToLua(L, vv))
		}
		return t
	}
	if f, ok := fz.ToFloat64(v); ok {
		return lua.LNumber(f)
	}
	return lua.LString(fmt.Sprintf("%v", v))
}

// luaToGo converts a Lua value to JSON-friendly Go. Tables with a sequence
// part become []any, other tables map[string]any.
func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.MaxN(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, luaToGo(val.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any)
		val.ForEach(func(k, vv lua.LValue) {
			out[k.String()] = luaToGo(vv)
		})
		return out
	}
	return nil
}
