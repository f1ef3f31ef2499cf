package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"zigbee-catalog/internal/coordinator"
	"zigbee-catalog/internal/zcl"
)

// dryRunStack is a coordinator.Stack that sends nothing. Every request is
// described to emit, binds and reporting succeed, and reads return no
// values.
type dryRunStack struct {
	registry *zcl.Registry
	emit     func(string)
	mu       sync.Mutex
}

func newDryRunStack(registry *zcl.Registry, emit func(string)) *dryRunStack {
	return &dryRunStack{registry: registry, emit: emit}
}

var dryRunIEEE = [8]byte{0x00, 0x12, 0x4B, 0x00, 0xFF, 0xFF, 0x00, 0x01}

func (s *dryRunStack) LocalIEEE() [8]byte { return dryRunIEEE }

func (s *dryRunStack) Bind(_ context.Context, req coordinator.BindRequest) error {
	s.printf("bind       ep %d %s -> coordinator ep %d", req.SrcEP, s.clusterName(req.ClusterID), req.DstEP)
	return nil
}

func (s *dryRunStack) ReadAttributes(_ context.Context, req coordinator.ReadAttributesRequest) ([]coordinator.AttributeResponse, error) {
	names := make([]string, 0, len(req.AttrIDs))
	for _, id := range req.AttrIDs {
		names = append(names, s.attrName(req.ClusterID, id))
	}
	s.printf("read       ep %d %s [%s]", req.DstEP, s.clusterName(req.ClusterID), strings.Join(names, " "))
	return nil, nil
}

func (s *dryRunStack) ConfigureReporting(_ context.Context, req coordinator.ConfigureReportingRequest) error {
	change := "-"
	if req.ReportChange != nil {
		if v, _, err := zcl.DecodeValue(req.DataType, req.ReportChange); err == nil {
			change = fmt.Sprint(v)
		}
	}
	s.printf("reporting  ep %d %s %s min=%d max=%d change=%s",
		req.DstEP, s.clusterName(req.ClusterID), s.attrName(req.ClusterID, req.AttrID),
		req.MinInterval, req.MaxInterval, change)
	return nil
}

func (s *dryRunStack) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit(fmt.Sprintf(format, args...))
}

func (s *dryRunStack) clusterName(id uint16) string {
	if c := s.registry.Get(id); c != nil {
		return c.Name
	}
	return fmt.Sprintf("0x%04X", id)
}

func (s *dryRunStack) attrName(cluster, attr uint16) string {
	if c := s.registry.Get(cluster); c != nil {
		if a := c.FindAttribute(attr); a != nil {
			return a.Name
		}
	}
	return fmt.Sprintf("0x%04X", attr)
}
