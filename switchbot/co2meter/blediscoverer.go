package co2meter

import (
	"context"
	"encoding/binary"
	"strings"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// BleDiscoverer scans with a go-ble device. The device is opened for every
// scan and stopped afterwards, so a wedged HCI socket does not outlive a cycle.
type BleDiscoverer struct {
	NewDevice func() (ble.Device, error)
}

func (discoverer *BleDiscoverer) Discover(ctx context.Context, duration time.Duration) ([]Advertisement, error) {
	d, err := discoverer.NewDevice()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ble")
	}
	defer func() {
		if err := d.Stop(); err != nil {
			log.Debugf("failed to stop ble device: %s", err)
		}
	}()

	seen := newAdvertisementSet()
	scanCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	err = d.Scan(scanCtx, true, seen.handle)
	if err != nil {
		switch errors.Cause(err) {
		case context.DeadlineExceeded:
		case context.Canceled:
			return nil, errors.Wrap(err, "scan for devices cancelled")
		default:
			return nil, errors.Wrap(err, "failed to scan for devices")
		}
	}
	if ctx.Err() != nil {
		return nil, errors.Wrap(ctx.Err(), "scan for devices cancelled")
	}

	return seen.list(), nil
}

// advertisementSet keeps the latest advertisement per address. go-ble calls
// the handler from its HCI goroutine.
type advertisementSet struct {
	mu     sync.Mutex
	order  []string
	byAddr map[string]Advertisement
}

func newAdvertisementSet() *advertisementSet {
	return &advertisementSet{byAddr: map[string]Advertisement{}}
}

func (set *advertisementSet) handle(a ble.Advertisement) {
	addr := strings.ToUpper(a.Addr().String())
	companyID, payload, ok := splitManufacturerData(a.ManufacturerData())

	set.mu.Lock()
	defer set.mu.Unlock()

	adv, known := set.byAddr[addr]
	if !known {
		set.order = append(set.order, addr)
		adv = Advertisement{Address: addr, ManufacturerData: map[uint16][]byte{}}
	}
	if ok {
		adv.ManufacturerData[companyID] = payload
	}
	set.byAddr[addr] = adv
}

func (set *advertisementSet) list() []Advertisement {
	set.mu.Lock()
	defer set.mu.Unlock()

	ads := make([]Advertisement, 0, len(set.order))
	for _, addr := range set.order {
		ads = append(ads, set.byAddr[addr])
	}
	return ads
}

// go-ble hands out the raw AD structure: a little endian company identifier
// followed by the vendor payload.
func splitManufacturerData(raw []byte) (uint16, []byte, bool) {
	if len(raw) < 2 {
		return 0, nil, false
	}
	payload := make([]byte, len(raw)-2)
	copy(payload, raw[2:])
	return binary.LittleEndian.Uint16(raw[:2]), payload, true
}
