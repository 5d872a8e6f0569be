package co2meter

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/alepar/switchbot/switchbot"
)

// CompanyID is the Bluetooth SIG company identifier SwitchBot advertises
// its manufacturer data under (0x0969).
const CompanyID uint16 = 2409

const minPayloadLen = 15

var ErrMalformedPayload = errors.New("malformed co2 meter payload")

// Decode extracts temperature, humidity and CO2 level from the manufacturer
// data the meter advertises under CompanyID.
//
//	byte 8   low nibble: tenths of a degree
//	byte 9   bit 7: sign (set = below zero), bits 0-6: whole degrees
//	byte 10  bits 0-6: relative humidity
//	bytes 13-14: CO2 ppm, big endian
func Decode(data []byte) (switchbot.Values, error) {
	if len(data) < minPayloadLen {
		return switchbot.Values{}, errors.Wrapf(ErrMalformedPayload, "need at least %d bytes, got %d", minPayloadLen, len(data))
	}

	fraction := float64(data[8]&0x0F) * 0.1
	integer := float64(data[9] & 0x7F)
	temperature := integer + fraction
	if data[9]&0x80 != 0 {
		temperature = -temperature
	}

	return switchbot.Values{
		Temperature: temperature,
		Humidity:    data[10] & 0x7F,
		Co2Level:    binary.BigEndian.Uint16(data[13:15]),
	}, nil
}
