package co2meter

import (
	"context"
	"time"
)

// Advertisement is the latest advertisement seen from one device during a scan.
type Advertisement struct {
	Address string

	// keyed by company identifier, values exclude the identifier itself
	ManufacturerData map[uint16][]byte
}

// Discoverer listens for advertisements for the given duration and reports
// every device it heard from, in the order they were first seen.
type Discoverer interface {
	Discover(ctx context.Context, duration time.Duration) ([]Advertisement, error)
}
