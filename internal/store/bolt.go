package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketDevices = []byte("devices")

func deviceKey(ieee string) []byte {
	return []byte(strings.ToLower(ieee))
}

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDevices)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func putDevice(b *bolt.Bucket, dev *Device) error {
	data, err := json.Marshal(dev)
	if err != nil {
		return fmt.Errorf("marshal device %s: %w", dev.IEEEAddress, err)
	}
	return b.Put(deviceKey(dev.IEEEAddress), data)
}

func (s *BoltStore) SaveDevice(dev *Device) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putDevice(tx.Bucket(bucketDevices), dev)
	})
}

func (s *BoltStore) GetDevice(ieee string) (*Device, error) {
	var dev Device
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketDevices).Get(deviceKey(ieee))
		if data == nil {
			return fmt.Errorf("device %s: %w", ieee, ErrNotFound)
		}
		return json.Unmarshal(data, &dev)
	})
	if err != nil {
		return nil, err
	}
	return &dev, nil
}

func (s *BoltStore) UpdateDevice(ieee string, fn func(dev *Device) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDevices)
		data := b.Get(deviceKey(ieee))
		if data == nil {
			return fmt.Errorf("device %s: %w", ieee, ErrNotFound)
		}
		var dev Device
		if err := json.Unmarshal(data, &dev); err != nil {
			return fmt.Errorf("unmarshal device %s: %w", ieee, err)
		}
		stored := dev.IEEEAddress
		if err := fn(&dev); err != nil {
			return err
		}
		// fn may not move the device to another key.
		dev.IEEEAddress = stored
		return putDevice(b, &dev)
	})
}

// DeleteDevice removes a device. Deleting a missing device is not an error.
func (s *BoltStore) DeleteDevice(ieee string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDevices).Delete(deviceKey(ieee))
	})
}

// ListDevices returns every device in key order.
func (s *BoltStore) ListDevices() ([]*Device, error) {
	return s.listDevices(func(*Device) bool { return true })
}

func (s *BoltStore) ListDevicesByModel(model string) ([]*Device, error) {
	return s.listDevices(func(dev *Device) bool { return dev.Model == model })
}

func (s *BoltStore) listDevices(keep func(*Device) bool) ([]*Device, error) {
	devices := []*Device{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDevices).ForEach(func(k, v []byte) error {
			var dev Device
			if err := json.Unmarshal(v, &dev); err != nil {
				return fmt.Errorf("unmarshal device %s: %w", k, err)
			}
			if keep(&dev) {
				devices = append(devices, &dev)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
