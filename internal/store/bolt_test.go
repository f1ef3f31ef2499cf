package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetDevice(t *testing.T) {
	s := newTestStore(t)

	dev := &Device{
		IEEEAddress:  "0x00124b0001020304",
		ShortAddress: 0x1234,
		Manufacturer: "BITUO TECHNIK",
		ZigbeeModel:  "SPM01",
		Model:        "SPM01-U02",
		Interviewed:  true,
		JoinedAt:     time.Now().Truncate(time.Millisecond),
		Endpoints: []Endpoint{
			{ID: 11, ProfileID: 0x0104, InClusters: []uint16{0x0702, 0x0B04}},
		},
	}
	dev.Endpoints[0].SetAttributes("haElectricalMeasurement", map[string]any{"acPowerMultiplier": 1, "acPowerDivisor": 1})

	if err := s.SaveDevice(dev); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetDevice(dev.IEEEAddress)
	if err != nil {
		t.Fatal(err)
	}
	if got.Model != "SPM01-U02" || got.ZigbeeModel != "SPM01" {
		t.Errorf("model = %q/%q, want SPM01-U02/SPM01", got.Model, got.ZigbeeModel)
	}
	if got.ShortAddress != dev.ShortAddress {
		t.Errorf("short = 0x%04X, want 0x%04X", got.ShortAddress, dev.ShortAddress)
	}
	ep := got.FindEndpoint(11)
	if ep == nil {
		t.Fatal("endpoint 11 missing")
	}
	if !ep.HasInCluster(0x0B04) {
		t.Error("endpoint 11 should have cluster 0x0B04")
	}
	// JSON numbers come back as float64.
	if v := ep.Attributes["haElectricalMeasurement"]["acPowerDivisor"]; v != float64(1) {
		t.Errorf("cached acPowerDivisor = %v (%T), want 1", v, v)
	}
}

func TestUpdateDevice(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveDevice(&Device{IEEEAddress: "0x01", Endpoints: []Endpoint{{ID: 1}}}); err != nil {
		t.Fatal(err)
	}

	err := s.UpdateDevice("0x01", func(dev *Device) error {
		dev.Configured = true
		dev.State = map[string]any{"power": 250.0}
		dev.FindEndpoint(1).SetAttributes("seMetering", map[string]any{"divisor": 1000})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetDevice("0x01")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Configured {
		t.Error("configured = false, want true")
	}
	if got.State["power"] != 250.0 {
		t.Errorf("state power = %v, want 250", got.State["power"])
	}
	if got.Endpoints[0].Attributes["seMetering"]["divisor"] != float64(1000) {
		t.Errorf("divisor = %v, want 1000", got.Endpoints[0].Attributes["seMetering"]["divisor"])
	}
}

func TestUpdateDeviceAbort(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveDevice(&Device{IEEEAddress: "0x01", FriendlyName: "meter"}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := s.UpdateDevice("0x01", func(dev *Device) error {
		dev.FriendlyName = "changed"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	got, _ := s.GetDevice("0x01")
	if got.FriendlyName != "meter" {
		t.Errorf("friendly_name = %q, update should have been rolled back", got.FriendlyName)
	}
}

func TestUpdateDeviceNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateDevice("0xFF", func(dev *Device) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteDevice(t *testing.T) {
	s := newTestStore(t)

	dev := &Device{IEEEAddress: "0x01", ShortAddress: 0x1234}
	if err := s.SaveDevice(dev); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteDevice(dev.IEEEAddress); err != nil {
		t.Fatal(err)
	}

	_, err := s.GetDevice(dev.IEEEAddress)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListDevices(t *testing.T) {
	s := newTestStore(t)

	devs := []*Device{
		{IEEEAddress: "0x01", ShortAddress: 0x0001},
		{IEEEAddress: "0x02", ShortAddress: 0x0002},
		{IEEEAddress: "0x03", ShortAddress: 0x0003},
	}
	for _, d := range devs {
		if err := s.SaveDevice(d); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListDevices()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("list count = %d, want 3", len(list))
	}

	found := make(map[string]bool)
	for _, d := range list {
		found[d.IEEEAddress] = true
	}
	for _, d := range devs {
		if !found[d.IEEEAddress] {
			t.Errorf("device %s not in list", d.IEEEAddress)
		}
	}
}

func TestListDevicesEmpty(t *testing.T) {
	s := newTestStore(t)

	list, err := s.ListDevices()
	if err != nil {
		t.Fatal(err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("list = %#v, want empty non-nil slice", list)
	}
}

func TestListDevicesByModel(t *testing.T) {
	s := newTestStore(t)

	for _, d := range []*Device{
		{IEEEAddress: "0x01", Model: "SPM01-U02"},
		{IEEEAddress: "0x02", Model: "SPM02-U02"},
		{IEEEAddress: "0x03", Model: "SPM01-U02"},
		{IEEEAddress: "0x04"},
	} {
		if err := s.SaveDevice(d); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListDevicesByModel("SPM01-U02")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].IEEEAddress != "0x01" || list[1].IEEEAddress != "0x03" {
		t.Errorf("list = %+v", list)
	}
}

func TestDeviceKeyIgnoresCase(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveDevice(&Device{IEEEAddress: "0x00124B0001020304", ZigbeeModel: "SPM01"}); err != nil {
		t.Fatal(err)
	}
	dev, err := s.GetDevice("0x00124b0001020304")
	if err != nil {
		t.Fatal(err)
	}
	if dev.ZigbeeModel != "SPM01" {
		t.Errorf("zigbee model = %q", dev.ZigbeeModel)
	}

	// The stored address survives an update made through another spelling.
	err = s.UpdateDevice("0x00124b0001020304", func(dev *Device) error {
		dev.IEEEAddress = "0xdeadbeef"
		dev.LQI = 42
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	dev, err = s.GetDevice("0x00124B0001020304")
	if err != nil {
		t.Fatal(err)
	}
	if dev.IEEEAddress != "0x00124B0001020304" || dev.LQI != 42 {
		t.Errorf("device = %+v", dev)
	}
}
