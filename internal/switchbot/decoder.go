package switchbot

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// Service data layout, after the 2-byte service UUID:
//
//	[2] bit 0-6 battery
//	[3] bit 0-3 temperature tenths
//	[4] bit 7   temperature sign (1 = at or above zero), bit 0-6 integer degrees
//	[5] bit 0-6 relative humidity %
const (
	uuidPrefixLen = 4 // hex characters
	minPayloadLen = 6
	sevenBitMask  = 0x7F
	signBit       = 0x80
	tenthsNibble  = 0x0F
	batteryIndex  = 2
	tenthsIndex   = 3
	degreesIndex  = 4
	humidityIndex = 5
)

var (
	ErrPayloadTooShort  = errors.New("switchbot: payload too short")
	ErrMalformedPayload = errors.New("switchbot: malformed payload")
)

// Decode parses the hex value of a 16-bit Service Data element into a
// Reading. The first 4 hex characters (the service UUID) are skipped.
//
// A tenths nibble above 9 is kept as is, so 0x0C yields +1.2 on top of the
// integer degrees.
func Decode(value string) (Reading, error) {
	if len(value) < uuidPrefixLen {
		return Reading{}, fmt.Errorf("%w: %d hex characters", ErrPayloadTooShort, len(value))
	}
	b, err := hex.DecodeString(value[uuidPrefixLen:])
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(b) < minPayloadLen {
		return Reading{}, fmt.Errorf("%w: %d bytes, need %d", ErrPayloadTooShort, len(b), minPayloadLen)
	}

	battery := int(b[batteryIndex] & sevenBitMask)
	aboveFreezing := b[degreesIndex]&signBit != 0
	temp := float64(b[tenthsIndex]&tenthsNibble)/10 + float64(b[degreesIndex]&sevenBitMask)
	if !aboveFreezing {
		temp = -temp
	}
	humidity := int(b[humidityIndex] & sevenBitMask)

	return Reading{
		SensorType:     SensorType,
		Temperature:    temp,
		Humidity:       humidity,
		BatteryVoltage: battery,
	}, nil
}
