package coordinator

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
)

// Stack is the Zigbee stack the catalog drives. Pairing, routing and frame
// transport live behind it; the catalog only asks it to bind, read and
// configure reporting.
type Stack interface {
	Bind(ctx context.Context, req BindRequest) error
	ReadAttributes(ctx context.Context, req ReadAttributesRequest) ([]AttributeResponse, error)
	ConfigureReporting(ctx context.Context, req ConfigureReportingRequest) error
	LocalIEEE() [8]byte
}

// BindRequest is a ZDO bind request.
type BindRequest struct {
	TargetShortAddr uint16
	SrcIEEE         [8]byte
	SrcEP           uint8
	ClusterID       uint16
	DstIEEE         [8]byte
	DstEP           uint8
}

// ReadAttributesRequest specifies which attributes to read.
type ReadAttributesRequest struct {
	DstAddr   uint16
	DstEP     uint8
	ClusterID uint16
	AttrIDs   []uint16
}

// AttributeResponse holds a single attribute read result.
type AttributeResponse struct {
	AttrID   uint16
	Status   uint8
	DataType uint8
	Value    []byte
}

// ConfigureReportingRequest sets up reporting of one attribute.
type ConfigureReportingRequest struct {
	DstAddr      uint16
	DstEP        uint8
	ClusterID    uint16
	AttrID       uint16
	DataType     uint8
	MinInterval  uint16
	MaxInterval  uint16
	ReportChange []byte // nil for discrete types
}

// AttributeRecord is one attribute of a report. Raw carries the ZCL wire
// encoding; when it is empty Value is taken as already decoded. Name may be
// given instead of AttrID.
type AttributeRecord struct {
	AttrID   uint16 `json:"attr_id"`
	Name     string `json:"name,omitempty"`
	DataType uint8  `json:"data_type"`
	Raw      []byte `json:"raw,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// AttributeReportEvent is an attribute report or read response the stack
// received from a device. Cluster may be given by name instead of ID. A nil
// TransactionSeq marks a report that cannot be matched against earlier
// deliveries, so it is never suppressed as a duplicate.
type AttributeReportEvent struct {
	IEEE           string            `json:"ieee"`
	Endpoint       uint8             `json:"endpoint"`
	ClusterID      uint16            `json:"cluster_id"`
	Cluster        string            `json:"cluster,omitempty"`
	Type           string            `json:"type,omitempty"`       // "attributeReport" (default) or "readResponse"
	CommandID      uint8             `json:"command_id,omitempty"` // foundation command, used when Type is empty
	TransactionSeq *uint8            `json:"transaction_seq,omitempty"`
	Records        []AttributeRecord `json:"records"`
	LQI            uint8             `json:"lqi,omitempty"`
}

// ParseIEEE parses "0x00124b0001020304", "00:12:4B:00:01:02:03:04" or
// "00124B0001020304" into [8]byte.
func ParseIEEE(s string) ([8]byte, error) {
	var result [8]byte
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.ReplaceAll(s, ":", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return result, fmt.Errorf("parse ieee address: %w", err)
	}
	if len(b) != 8 {
		return result, fmt.Errorf("ieee address must be 8 bytes, got %d", len(b))
	}
	copy(result[:], b)
	return result, nil
}

// FormatIEEE renders an address the way devices are keyed in the store.
func FormatIEEE(addr [8]byte) string {
	return fmt.Sprintf("0x%016x", addr[:])
}
