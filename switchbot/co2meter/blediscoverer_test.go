package co2meter

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
)

type fakeAddr string

func (a fakeAddr) String() string { return string(a) }

type fakeAdvertisement struct {
	ble.Advertisement
	addr string
	mfg  []byte
}

func (a fakeAdvertisement) Addr() ble.Addr { return fakeAddr(a.addr) }
func (a fakeAdvertisement) ManufacturerData() []byte { return a.mfg }

// fakeDevice only implements what BleDiscoverer touches.
type fakeDevice struct {
	ble.Device
	ads     []ble.Advertisement
	scanErr error
	stopped bool
}

func (d *fakeDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error {
	if d.scanErr != nil {
		return d.scanErr
	}
	for _, a := range d.ads {
		h(a)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (d *fakeDevice) Stop() error {
	d.stopped = true
	return nil
}

func TestBleDiscoverer(t *testing.T) {
	meter := append([]byte{0x69, 0x09}, payload(0x05, 24, 55, 0x01, 0x90)...)
	dev := &fakeDevice{ads: []ble.Advertisement{
		fakeAdvertisement{addr: "aa:bb:cc:dd:ee:ff"},
		fakeAdvertisement{addr: "11:22:33:44:55:66", mfg: []byte{0x4C, 0x00, 0x02, 0x15}},
		fakeAdvertisement{addr: "aa:bb:cc:dd:ee:ff", mfg: meter},
		fakeAdvertisement{addr: "11:22:33:44:55:66", mfg: []byte{0x01}},
	}}
	discoverer := &BleDiscoverer{NewDevice: func() (ble.Device, error) { return dev, nil }}

	ads, err := discoverer.Discover(context.Background(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if !dev.stopped {
		t.Error("device was not stopped after scan")
	}
	if len(ads) != 2 {
		t.Fatalf("Discover() returned %d devices, want 2", len(ads))
	}
	if ads[0].Address != "AA:BB:CC:DD:EE:FF" || ads[1].Address != "11:22:33:44:55:66" {
		t.Errorf("addresses = %q, %q", ads[0].Address, ads[1].Address)
	}
	if got := ads[0].ManufacturerData[CompanyID]; !bytes.Equal(got, meter[2:]) {
		t.Errorf("manufacturer data = % X, want % X", got, meter[2:])
	}
	if _, ok := ads[1].ManufacturerData[0x004C]; !ok {
		t.Error("apple manufacturer data missing")
	}
}

func TestBleDiscovererOpenError(t *testing.T) {
	boom := errors.New("no adapter")
	discoverer := &BleDiscoverer{NewDevice: func() (ble.Device, error) { return nil, boom }}

	_, err := discoverer.Discover(context.Background(), time.Millisecond)
	if errors.Cause(err) != boom {
		t.Fatalf("Discover() error = %v, want %v", err, boom)
	}
}

func TestBleDiscovererScanError(t *testing.T) {
	boom := errors.New("hci socket closed")
	dev := &fakeDevice{scanErr: boom}
	discoverer := &BleDiscoverer{NewDevice: func() (ble.Device, error) { return dev, nil }}

	_, err := discoverer.Discover(context.Background(), time.Millisecond)
	if errors.Cause(err) != boom {
		t.Fatalf("Discover() error = %v, want %v", err, boom)
	}
	if !dev.stopped {
		t.Error("device was not stopped after failed scan")
	}
}

func TestBleDiscovererCancelled(t *testing.T) {
	dev := &fakeDevice{}
	discoverer := &BleDiscoverer{NewDevice: func() (ble.Device, error) { return dev, nil }}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := discoverer.Discover(ctx, time.Second)
	if errors.Cause(err) != context.Canceled {
		t.Fatalf("Discover() error = %v, want context.Canceled", err)
	}
}
