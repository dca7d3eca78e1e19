package switchbot

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SensorType names the decoding schema a Reading came from.
const SensorType = "SwitchBot"

// Reading is a decoded meter advertisement.
//
// BatteryVoltage is the raw 7-bit battery code reported by the device, not a
// voltage; the name is what downstream consumers key on.
type Reading struct {
	SensorType     string
	Temperature    float64
	Humidity       int
	BatteryVoltage int
}

// Field is one key/value pair of a Reading in its text form.
type Field struct {
	Key   string
	Value string
}

// Fields returns the reading's keys in dump order.
func (r Reading) Fields() []Field {
	return []Field{
		{Key: "Temperature", Value: FormatTemperature(r.Temperature)},
		{Key: "Humidity", Value: strconv.Itoa(r.Humidity)},
		{Key: "BatteryVoltage", Value: strconv.Itoa(r.BatteryVoltage)},
		{Key: "SensorType", Value: r.SensorType},
	}
}

// WriteTo writes one "Key Value" line per field.
func (r Reading) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, f := range r.Fields() {
		n, err := fmt.Fprintf(w, "%s %s\n", f.Key, f.Value)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// FormatTemperature renders t in its shortest form with at least one
// decimal place: 21.5, 21.0, -0.0.
func FormatTemperature(t float64) string {
	s := strconv.FormatFloat(t, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
