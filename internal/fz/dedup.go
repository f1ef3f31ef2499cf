package fz

import (
	"fmt"
	"sync"
)

// Deduper suppresses redelivered messages. It remembers the last transaction
// sequence number seen per (device, endpoint, cluster, type, key).
type Deduper struct {
	mu   sync.Mutex
	last map[string]map[string]uint8 // device -> key -> seq
}

// NewDeduper returns an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{last: make(map[string]map[string]uint8)}
}

// Seen reports whether msg was already processed under key, and records it
// otherwise. Models that publish duplicate transactions and messages without
// a transaction sequence are never suppressed.
func (d *Deduper) Seen(model Model, msg *Message, key string) bool {
	if model != nil && model.PublishDuplicateTransaction() {
		return false
	}
	if msg.Unsequenced {
		return false
	}

	var ep uint8
	if msg.Endpoint != nil {
		ep = msg.Endpoint.ID()
	}
	k := fmt.Sprintf("%d/%s/%s/%s", ep, msg.Cluster, msg.Type, key)

	d.mu.Lock()
	defer d.mu.Unlock()
	perDevice := d.last[msg.Device]
	if perDevice == nil {
		perDevice = make(map[string]uint8)
		d.last[msg.Device] = perDevice
	}
	if seq, ok := perDevice[k]; ok && seq == msg.TransactionSequence {
		return true
	}
	perDevice[k] = msg.TransactionSequence
	return false
}

// Forget drops everything recorded for a device.
func (d *Deduper) Forget(device string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.last, device)
}
