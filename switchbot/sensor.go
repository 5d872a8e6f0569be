package switchbot

import (
	"time"
)

// TimestampLayout always carries a numeric UTC offset, even for UTC itself.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// Values is what a single manufacturer advertisement decodes to.
type Values struct {
	// units: degrees Celsius, not rounded
	Temperature float64

	// units: % of relative Humidity
	Humidity uint8

	// units: ppm
	Co2Level uint16
}

// Reading is one sample taken from a CO2 meter. It is only built from a
// successfully decoded advertisement and is never modified afterwards.
type Reading struct {
	Timestamp time.Time

	// units: degrees Celsius, rounded to one decimal
	Temperature float64

	// units: % of relative Humidity
	Humidity uint8

	// units: ppm
	Co2Level uint16

	// uppercase, colon separated
	DeviceMAC string
}
