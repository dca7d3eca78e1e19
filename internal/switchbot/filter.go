package switchbot

import (
	"log/slog"
	"strings"

	"github.com/mittyorz/infra-munin/internal/ble"
)

// DecodeFunc turns a service data value into a Reading.
type DecodeFunc func(value string) (Reading, error)

// Filter picks the target meter's service data out of a scan and keeps the
// most recent successfully decoded reading. It is driven from the scan
// callback and is not safe for concurrent use.
type Filter struct {
	address string
	decode  DecodeFunc
	logger  *slog.Logger

	current *Reading
}

// NewFilter returns a Filter for address. A nil decode uses Decode.
func NewFilter(address string, decode DecodeFunc, logger *slog.Logger) *Filter {
	if decode == nil {
		decode = Decode
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		address: strings.ToLower(address),
		decode:  decode,
		logger:  logger,
	}
}

func (f *Filter) Address() string {
	return f.address
}

// Handle is the scan callback. Events from other addresses are dropped
// whole; every 16-bit Service Data element of a matching event is decoded
// and replaces the current reading. Malformed elements are logged and
// leave the current reading as it was.
func (f *Filter) Handle(ev ble.Event) {
	if ev.Address != f.address {
		return
	}

	for _, el := range ev.Elements {
		if el.Description != ble.DescServiceData16 {
			continue
		}

		r, err := f.decode(el.Value)
		if err != nil {
			f.logger.Warn("switchbot: ignore undecodable service data",
				"addr", ev.Address,
				"value", el.Value,
				"error", err,
			)
			continue
		}

		f.current = &r
		f.logger.Debug("switchbot: reading decoded",
			"addr", ev.Address,
			"rssi", ev.RSSI,
			"T", r.Temperature, "H", r.Humidity, "B", r.BatteryVoltage,
			"data", el.Value,
		)
	}
}

// Reading returns the current reading and whether one has been decoded.
func (f *Filter) Reading() (Reading, bool) {
	if f.current == nil {
		return Reading{}, false
	}
	return *f.current, true
}
