// Package store persists catalog devices: their interview data, endpoint
// attribute caches and last converted state.
package store

import "errors"

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface. Devices are keyed by IEEE address,
// compared case-insensitively.
type Store interface {
	SaveDevice(dev *Device) error
	GetDevice(ieee string) (*Device, error)
	DeleteDevice(ieee string) error
	ListDevices() ([]*Device, error)

	// ListDevicesByModel returns the devices resolved to a catalog model.
	ListDevicesByModel(model string) ([]*Device, error)

	// UpdateDevice reads, modifies and saves a device in one transaction.
	// Nothing is written when fn fails. Returns ErrNotFound if the device
	// does not exist.
	UpdateDevice(ieee string, fn func(dev *Device) error) error

	Close() error
}
