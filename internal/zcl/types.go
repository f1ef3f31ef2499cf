package zcl

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ZCL data type IDs
const (
	TypeNoData   uint8 = 0x00
	TypeBool     uint8 = 0x10
	TypeBitmap8  uint8 = 0x18
	TypeBitmap16 uint8 = 0x19
	TypeBitmap24 uint8 = 0x1A
	TypeBitmap32 uint8 = 0x1B
	TypeUint8    uint8 = 0x20
	TypeUint16   uint8 = 0x21
	TypeUint24   uint8 = 0x22
	TypeUint32   uint8 = 0x23
	TypeUint40   uint8 = 0x24
	TypeUint48   uint8 = 0x25
	TypeInt8     uint8 = 0x28
	TypeInt16    uint8 = 0x29
	TypeInt24    uint8 = 0x2A
	TypeInt32    uint8 = 0x2B
	TypeEnum8    uint8 = 0x30
	TypeEnum16   uint8 = 0x31
	TypeFloat32  uint8 = 0x39
	TypeFloat64  uint8 = 0x3A
	TypeOctetStr uint8 = 0x41
	TypeCharStr  uint8 = 0x42
)

type typeKind int

const (
	kindNone typeKind = iota
	kindBool
	kindDiscrete // bitmaps and enums: no reportable change
	kindUnsigned
	kindSigned
	kindFloat
	kindString
)

type typeInfo struct {
	name string
	size int // -1 for length-prefixed
	kind typeKind
}

var types = map[uint8]typeInfo{
	TypeNoData:   {"nodata", 0, kindNone},
	TypeBool:     {"bool", 1, kindBool},
	TypeBitmap8:  {"map8", 1, kindDiscrete},
	TypeBitmap16: {"map16", 2, kindDiscrete},
	TypeBitmap24: {"map24", 3, kindDiscrete},
	TypeBitmap32: {"map32", 4, kindDiscrete},
	TypeUint8:    {"uint8", 1, kindUnsigned},
	TypeUint16:   {"uint16", 2, kindUnsigned},
	TypeUint24:   {"uint24", 3, kindUnsigned},
	TypeUint32:   {"uint32", 4, kindUnsigned},
	TypeUint40:   {"uint40", 5, kindUnsigned},
	TypeUint48:   {"uint48", 6, kindUnsigned},
	TypeInt8:     {"int8", 1, kindSigned},
	TypeInt16:    {"int16", 2, kindSigned},
	TypeInt24:    {"int24", 3, kindSigned},
	TypeInt32:    {"int32", 4, kindSigned},
	TypeEnum8:    {"enum8", 1, kindDiscrete},
	TypeEnum16:   {"enum16", 2, kindDiscrete},
	TypeFloat32:  {"float32", 4, kindFloat},
	TypeFloat64:  {"float64", 8, kindFloat},
	TypeOctetStr: {"octstr", -1, kindString},
	TypeCharStr:  {"string", -1, kindString},
}

// TypeName returns a human-readable name for a ZCL type.
func TypeName(typeID uint8) string {
	if ti, ok := types[typeID]; ok {
		return ti.name
	}
	return fmt.Sprintf("0x%02X", typeID)
}

// IsAnalog reports whether attributes of this type take a reportable change
// in a Configure Reporting record.
func IsAnalog(typeID uint8) bool {
	ti, ok := types[typeID]
	if !ok {
		return false
	}
	return ti.kind == kindUnsigned || ti.kind == kindSigned || ti.kind == kindFloat
}

// DecodeValue decodes a ZCL typed value from raw bytes, returning the Go
// value and bytes consumed. Integers decode to uint64/int64, bitmaps and
// enums to uint64.
func DecodeValue(typeID uint8, data []byte) (any, int, error) {
	ti, ok := types[typeID]
	if !ok {
		return nil, 0, fmt.Errorf("zcl: unsupported type 0x%02X", typeID)
	}
	if ti.kind == kindNone {
		return nil, 0, nil
	}
	if ti.kind == kindString {
		if len(data) < 1 {
			return nil, 0, fmt.Errorf("zcl: no length byte for %s", ti.name)
		}
		n := int(data[0])
		if n == 0xFF {
			return nil, 1, nil
		}
		if len(data) < 1+n {
			return nil, 0, fmt.Errorf("zcl: %s truncated: need %d, have %d", ti.name, n, len(data)-1)
		}
		if typeID == TypeCharStr {
			return string(data[1 : 1+n]), 1 + n, nil
		}
		b := make([]byte, n)
		copy(b, data[1:1+n])
		return b, 1 + n, nil
	}
	if len(data) < ti.size {
		return nil, 0, fmt.Errorf("zcl: not enough data for %s: need %d, have %d", ti.name, ti.size, len(data))
	}

	switch ti.kind {
	case kindBool:
		return data[0] != 0, 1, nil
	case kindFloat:
		if ti.size == 4 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), 4, nil
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), 8, nil
	case kindSigned:
		u := readUint(data[:ti.size])
		shift := uint(64 - 8*ti.size)
		return int64(u<<shift) >> shift, ti.size, nil
	default:
		return readUint(data[:ti.size]), ti.size, nil
	}
}

// EncodeValue encodes a Go value into ZCL wire format.
func EncodeValue(typeID uint8, val any) ([]byte, error) {
	ti, ok := types[typeID]
	if !ok {
		return nil, fmt.Errorf("zcl: encode not implemented for type 0x%02X", typeID)
	}

	switch ti.kind {
	case kindNone:
		return nil, nil
	case kindBool:
		b, ok := val.(bool)
		if !ok {
			f, isNum := toFloat64(val)
			if !isNum {
				return nil, fmt.Errorf("zcl: cannot convert %T to bool", val)
			}
			b = f != 0
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case kindFloat:
		f, ok := toFloat64(val)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to %s", val, ti.name)
		}
		buf := make([]byte, ti.size)
		if ti.size == 4 {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
		} else {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		}
		return buf, nil
	case kindSigned:
		f, ok := toFloat64(val)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to %s", val, ti.name)
		}
		limit := math.Ldexp(1, 8*ti.size-1)
		if f < -limit || f > limit-1 {
			return nil, fmt.Errorf("zcl: value %v overflows %s", f, ti.name)
		}
		return putUint(uint64(int64(f)), ti.size), nil
	case kindUnsigned, kindDiscrete:
		f, ok := toFloat64(val)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to %s", val, ti.name)
		}
		if f < 0 || f > math.Ldexp(1, 8*ti.size)-1 {
			return nil, fmt.Errorf("zcl: value %v overflows %s", f, ti.name)
		}
		return putUint(uint64(f), ti.size), nil
	case kindString:
		var b []byte
		switch v := val.(type) {
		case string:
			b = []byte(v)
		case []byte:
			b = v
		default:
			return nil, fmt.Errorf("zcl: cannot convert %T to %s", val, ti.name)
		}
		if len(b) > 254 {
			return nil, fmt.Errorf("zcl: %s too long: %d (max 254)", ti.name, len(b))
		}
		return append([]byte{byte(len(b))}, b...), nil
	}
	return nil, fmt.Errorf("zcl: encode not implemented for type 0x%02X", typeID)
}

func readUint(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func putUint(v uint64, size int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
	return buf
}

func toFloat64(v any) (float64, bool) {
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
	}
	return 0, false
}
