package co2meter

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
)

type fakeDiscoverer struct {
	ads      []Advertisement
	err      error
	calls    int
	duration time.Duration
}

func (d *fakeDiscoverer) Discover(_ context.Context, duration time.Duration) ([]Advertisement, error) {
	d.calls++
	d.duration = duration
	return d.ads, d.err
}

const meterAddr = "AA:BB:CC:DD:EE:FF"

func newTestScanner(d Discoverer) *Scanner {
	return &Scanner{
		Discoverer:   d,
		Addr:         "aa:bb:cc:dd:ee:ff",
		ScanDuration: 12 * time.Second,
		Now: func() time.Time {
			return time.Date(2026, 10, 18, 9, 30, 15, 987654321, time.FixedZone("JST", 9*60*60))
		},
	}
}

func TestScanMatch(t *testing.T) {
	d := &fakeDiscoverer{ads: []Advertisement{
		{Address: "11:22:33:44:55:66", ManufacturerData: map[uint16][]byte{CompanyID: payload(0x01, 1, 1, 0, 1)}},
		{Address: "aa:bb:cc:dd:ee:ff", ManufacturerData: map[uint16][]byte{
			0x004C:    {0x02, 0x15},
			CompanyID: payload(0x05, 24, 55, 0x01, 0x90),
		}},
	}}
	scanner := newTestScanner(d)

	reading, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if reading == nil {
		t.Fatal("Scan() = nil, want reading")
	}
	if d.calls != 1 || d.duration != 12*time.Second {
		t.Errorf("Discover called %d times with %v, want once with 12s", d.calls, d.duration)
	}
	if reading.Temperature != 24.5 {
		t.Errorf("Temperature = %v, want 24.5", reading.Temperature)
	}
	if reading.Humidity != 55 {
		t.Errorf("Humidity = %d, want 55", reading.Humidity)
	}
	if reading.Co2Level != 400 {
		t.Errorf("Co2Level = %d, want 400", reading.Co2Level)
	}
	if reading.DeviceMAC != meterAddr {
		t.Errorf("DeviceMAC = %q, want %q", reading.DeviceMAC, meterAddr)
	}
	if reading.Timestamp.Nanosecond() != 0 {
		t.Errorf("Timestamp = %v, want second precision", reading.Timestamp)
	}
	if _, offset := reading.Timestamp.Zone(); offset != 9*60*60 {
		t.Errorf("Timestamp offset = %d, want %d", offset, 9*60*60)
	}
}

func TestScanRoundsTemperature(t *testing.T) {
	d := &fakeDiscoverer{ads: []Advertisement{
		{Address: meterAddr, ManufacturerData: map[uint16][]byte{CompanyID: payload(0x03, 0x80|12, 40, 0, 0)}},
	}}

	reading, err := newTestScanner(d).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if reading.Temperature != -12.3 {
		t.Errorf("Temperature = %v, want -12.3", reading.Temperature)
	}
}

func TestScanNoMatch(t *testing.T) {
	tests := []struct {
		name string
		ads  []Advertisement
	}{
		{"nothing discovered", nil},
		{"address absent", []Advertisement{
			{Address: "11:22:33:44:55:66", ManufacturerData: map[uint16][]byte{CompanyID: payload(0, 0, 0, 0, 0)}},
		}},
		{"company id missing", []Advertisement{
			{Address: meterAddr, ManufacturerData: map[uint16][]byte{0x004C: payload(0, 0, 0, 0, 0)}},
		}},
		{"no manufacturer data", []Advertisement{
			{Address: meterAddr},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := newTestScanner(&fakeDiscoverer{ads: tt.ads}).Scan(context.Background())
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if reading != nil {
				t.Errorf("Scan() = %+v, want nil", reading)
			}
		})
	}
}

func TestScanMalformedPayloadPropagates(t *testing.T) {
	d := &fakeDiscoverer{ads: []Advertisement{
		{Address: meterAddr, ManufacturerData: map[uint16][]byte{CompanyID: {0x01, 0x02}}},
	}}

	reading, err := newTestScanner(d).Scan(context.Background())
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("Scan() error = %v, want ErrMalformedPayload", err)
	}
	if reading != nil {
		t.Errorf("Scan() = %+v, want nil", reading)
	}
}

func TestScanDiscoverError(t *testing.T) {
	boom := errors.New("hci down")
	_, err := newTestScanner(&fakeDiscoverer{err: boom}).Scan(context.Background())
	if errors.Cause(err) != boom {
		t.Fatalf("Scan() error = %v, want %v", err, boom)
	}
}
