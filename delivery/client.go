// Package delivery posts readings to the collection endpoint.
package delivery

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/switchbot/switchbot"
)

const maxRetryDelay = 5 * time.Second

// Client delivers one reading per call, retrying transient failures.
type Client struct {
	URL         string
	Token       string
	Timeout     time.Duration
	MaxAttempts int

	// defaults to a plain http.Client, Timeout is applied per attempt
	HTTPClient *http.Client

	// waits between attempts, defaults to a timer honouring ctx
	Sleep func(ctx context.Context, d time.Duration) error
}

// Outcome of a Deliver call. Attempts is set on failure too.
type Outcome struct {
	Response interface{}
	Attempts int
}

// Deliver posts the reading, trying up to MaxAttempts times. After a failed
// attempt n it waits min(2n, 5) seconds; there is no wait after the last one.
// Errors that are not transient are returned straight away.
func (client *Client) Deliver(ctx context.Context, reading switchbot.Reading) (Outcome, error) {
	body, err := encodePayload(client.Token, reading)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "failed to encode reading")
	}

	var lastErr error
	outcome := Outcome{}
	for attempt := 1; attempt <= client.MaxAttempts; attempt++ {
		outcome.Attempts = attempt

		response, err := client.post(ctx, body)
		if err == nil {
			log.Debugf("delivered reading (attempt %d)", attempt)
			outcome.Response = response
			return outcome, nil
		}
		if !errors.Is(err, ErrTransientDelivery) {
			return outcome, err
		}
		if ctx.Err() != nil {
			return outcome, errors.Wrap(ctx.Err(), "delivery cancelled")
		}

		lastErr = err
		log.Warnf("failed to deliver reading (attempt %d of %d): %s", attempt, client.MaxAttempts, err)
		if attempt < client.MaxAttempts {
			if err := client.sleep(ctx, retryDelay(attempt)); err != nil {
				return outcome, errors.Wrap(err, "delivery cancelled")
			}
		}
	}

	return outcome, lastErr
}

func retryDelay(attempt int) time.Duration {
	delay := time.Duration(2*attempt) * time.Second
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

func (client *Client) post(ctx context.Context, body []byte) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := client.httpClient().Do(req)
	if err != nil {
		return nil, transient(errors.Wrap(err, "request failed"))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transient(errors.Wrap(err, "failed to read response"))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, transient(&StatusError{StatusCode: resp.StatusCode, Body: string(respBody)})
	}

	return decodeResponse(respBody), nil
}

func (client *Client) httpClient() *http.Client {
	if client.HTTPClient != nil {
		return client.HTTPClient
	}
	return http.DefaultClient
}

func (client *Client) sleep(ctx context.Context, d time.Duration) error {
	if client.Sleep != nil {
		return client.Sleep(ctx, d)
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
