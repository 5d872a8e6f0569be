package co2meter

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/switchbot/switchbot"
)

// Scanner looks for a single CO2 meter by address.
type Scanner struct {
	Discoverer   Discoverer
	Addr         string
	ScanDuration time.Duration

	// defaults to time.Now
	Now func() time.Time
}

// Scan listens for ScanDuration and decodes the meter's advertisement.
// It returns nil without error when the meter was not heard, or was heard
// without SwitchBot manufacturer data.
func (scanner *Scanner) Scan(ctx context.Context) (*switchbot.Reading, error) {
	ads, err := scanner.Discoverer.Discover(ctx, scanner.ScanDuration)
	if err != nil {
		return nil, err
	}

	target := strings.ToUpper(scanner.Addr)
	for _, a := range ads {
		if strings.ToUpper(a.Address) != target {
			continue
		}

		data, ok := a.ManufacturerData[CompanyID]
		if !ok {
			log.Debugf("meter %s advertised without company id 0x%04X", target, CompanyID)
			continue
		}

		values, err := Decode(data)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode advertisement from %s", target)
		}

		return &switchbot.Reading{
			Timestamp:   scanner.now().Truncate(time.Second),
			Temperature: math.Round(values.Temperature*10) / 10,
			Humidity:    values.Humidity,
			Co2Level:    values.Co2Level,
			DeviceMAC:   target,
		}, nil
	}

	return nil, nil
}

func (scanner *Scanner) now() time.Time {
	if scanner.Now != nil {
		return scanner.Now()
	}
	return time.Now()
}
