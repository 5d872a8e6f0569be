package delivery

import (
	"encoding/json"
	"strconv"

	"github.com/alepar/switchbot/switchbot"
)

type payload struct {
	Token       string  `json:"token"`
	Timestamp   string  `json:"timestamp"`
	Temperature celsius `json:"temperature_c"`
	Humidity    uint8   `json:"humidity_pct"`
	Co2Level    uint16  `json:"co2_ppm"`
	DeviceMAC   string  `json:"device_mac"`
}

// celsius is always written with exactly one decimal, 21 goes out as 21.0.
type celsius float64

func (c celsius) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(c), 'f', 1, 64)), nil
}

func encodePayload(token string, reading switchbot.Reading) ([]byte, error) {
	return json.Marshal(payload{
		Token:       token,
		Timestamp:   reading.Timestamp.Format(switchbot.TimestampLayout),
		Temperature: celsius(reading.Temperature),
		Humidity:    reading.Humidity,
		Co2Level:    reading.Co2Level,
		DeviceMAC:   reading.DeviceMAC,
	})
}

// decodeResponse parses the endpoint's reply. Anything that is not JSON is
// still a successful delivery and gets wrapped as {"ok": true, "raw_response": ...}.
func decodeResponse(body []byte) interface{} {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return map[string]interface{}{
			"ok":           true,
			"raw_response": string(body),
		}
	}
	return v
}
