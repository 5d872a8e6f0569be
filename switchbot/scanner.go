package switchbot

import "context"

type Scanner interface {

	// returns the reading of the target device, or nil when it was not seen
	Scan(ctx context.Context) (*Reading, error)
}
