// Package collector runs the scan and deliver cycle on a fixed cadence.
package collector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/switchbot/delivery"
	"github.com/alepar/switchbot/switchbot"
	"github.com/alepar/switchbot/switchbot/co2meter"
)

// ErrUnexpectedCycle marks failures inside a cycle that are neither a
// malformed payload nor a delivery failure, recovered panics included.
var ErrUnexpectedCycle = errors.New("unexpected cycle failure")

// cycle results, also used as metric labels
const (
	resultDelivered      = "delivered"
	resultDeliveryFailed = "delivery_failed"
	resultNoReading      = "no_reading"
	resultMalformed      = "malformed_payload"
	resultError          = "error"
)

type Deliverer interface {
	Deliver(ctx context.Context, reading switchbot.Reading) (delivery.Outcome, error)
}

// Collector scans, delivers what it found and sleeps the rest of the poll
// interval. Cycles never overlap and a failing cycle never stops the loop.
type Collector struct {
	Scanner      switchbot.Scanner
	Deliverer    Deliverer
	PollInterval time.Duration
	Metrics      *Metrics

	// defaults to time.Now
	Now func() time.Time
	// defaults to a timer honouring ctx
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run loops until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) error {
	for {
		start := c.now()
		c.RunCycle(ctx)

		wait := c.remaining(c.now().Sub(start))
		log.Debugf("next cycle in %s", wait)
		if err := c.sleep(ctx, wait); err != nil {
			log.Printf("collector stopped: %s", err)
			return nil
		}
	}
}

// remaining is the part of the poll interval not used by a cycle, never negative.
func (c *Collector) remaining(elapsed time.Duration) time.Duration {
	if wait := c.PollInterval - elapsed; wait > 0 {
		return wait
	}
	return 0
}

// RunCycle performs one scan and, when the meter was heard, one delivery.
// Every error and panic is logged here and ends up as the returned result.
func (c *Collector) RunCycle(ctx context.Context) (result string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("collection cycle failed: %s", errors.Wrapf(ErrUnexpectedCycle, "panic: %v", r))
			result = resultError
		}
		c.Metrics.observeCycle(result)
	}()

	reading, err := c.Scanner.Scan(ctx)
	if err != nil {
		if errors.Is(err, co2meter.ErrMalformedPayload) {
			log.Errorf("skipping cycle: %s", err)
			return resultMalformed
		}
		log.Errorf("collection cycle failed: %s", errors.Wrap(ErrUnexpectedCycle, err.Error()))
		return resultError
	}
	if reading == nil {
		log.Printf("no reading from meter this cycle")
		return resultNoReading
	}

	log.WithFields(log.Fields{
		"mac":         reading.DeviceMAC,
		"temperature": reading.Temperature,
		"humidity":    reading.Humidity,
		"co2":         reading.Co2Level,
	}).Printf("Received: [%s] %.1fºC %d%% %dppm",
		reading.Timestamp.Format(switchbot.TimestampLayout), reading.Temperature, reading.Humidity, reading.Co2Level)
	c.Metrics.observeReading(*reading)

	outcome, err := c.Deliverer.Deliver(ctx, *reading)
	c.Metrics.observeDelivery(outcome, err)
	if err != nil {
		log.Errorf("failed to deliver reading after %d attempts: %s", outcome.Attempts, err)
		return resultDeliveryFailed
	}

	responseAsJson, err := json.Marshal(outcome.Response)
	if err == nil {
		log.Printf("Delivered (attempt %d): %s", outcome.Attempts, responseAsJson)
	} else {
		log.Printf("Delivered (attempt %d): <marshall error: %s>", outcome.Attempts, err)
	}
	return resultDelivered
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Collector) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
