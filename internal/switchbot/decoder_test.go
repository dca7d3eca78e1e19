package switchbot

import (
	"errors"
	"testing"

	"github.com/mittyorz/infra-munin/internal/utils"
)

// serviceData builds a service data value the way a meter advertises it:
// 16-bit UUID little-endian, then six payload bytes.
func serviceData(uuid uint16, b0, b1, battery, tenths, degrees, humidity byte) string {
	raw := []byte{byte(uuid), byte(uuid >> 8), b0, b1, battery, tenths, degrees, humidity}
	return utils.BytesToHex(raw)
}

func TestDecode_AboveFreezing(t *testing.T) {
	got, err := Decode("0000" + "00004b059532")
	if err != nil {
		t.Fatalf("Decode() error = %v, want nil", err)
	}

	want := Reading{SensorType: "SwitchBot", Temperature: 21.5, Humidity: 50, BatteryVoltage: 75}
	if got != want {
		t.Errorf("Decode() = %+v, want %+v", got, want)
	}
}

func TestDecode_BelowFreezing(t *testing.T) {
	got, err := Decode("0000" + "00004b051532")
	if err != nil {
		t.Fatalf("Decode() error = %v, want nil", err)
	}
	if got.Temperature != -21.5 {
		t.Errorf("Temperature = %v, want -21.5", got.Temperature)
	}
	if got.Humidity != 50 || got.BatteryVoltage != 75 {
		t.Errorf("Humidity/BatteryVoltage = %d/%d, want 50/75", got.Humidity, got.BatteryVoltage)
	}
}

func TestDecode_Cases(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  Reading
	}{
		{
			name:  "uppercase hex",
			value: "000D" + "5400E4059532",
			want:  Reading{SensorType: SensorType, Temperature: 21.5, Humidity: 50, BatteryVoltage: 100},
		},
		{
			name:  "high bits masked",
			value: serviceData(0xfd3d, 0xff, 0xff, 0xff, 0xf9, 0xff, 0xff),
			want:  Reading{SensorType: SensorType, Temperature: 127.9, Humidity: 127, BatteryVoltage: 127},
		},
		{
			name:  "zero degrees with sign bit set",
			value: serviceData(0x0d00, 0, 0, 0x64, 0x00, 0x80, 0x28),
			want:  Reading{SensorType: SensorType, Temperature: 0, Humidity: 40, BatteryVoltage: 100},
		},
		{
			name:  "fraction only below zero",
			value: serviceData(0x0d00, 0, 0, 0x64, 0x03, 0x00, 0x28),
			want:  Reading{SensorType: SensorType, Temperature: -0.3, Humidity: 40, BatteryVoltage: 100},
		},
		{
			name:  "trailing bytes ignored",
			value: "0000" + "00004b059532" + "deadbeef",
			want:  Reading{SensorType: SensorType, Temperature: 21.5, Humidity: 50, BatteryVoltage: 75},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.value)
			if err != nil {
				t.Fatalf("Decode(%q) error = %v, want nil", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("Decode(%q) = %+v, want %+v", tt.value, got, tt.want)
			}
		})
	}
}

// Tenths nibbles 10-15 spill over into the integer part.
func TestDecode_TenthsNibbleAboveNine(t *testing.T) {
	tests := []struct {
		tenths byte
		want   float64
	}{
		{tenths: 0x0a, want: 22.0},
		{tenths: 0x0c, want: 22.2},
		{tenths: 0x0f, want: 22.5},
		{tenths: 0xfc, want: 22.2}, // high nibble ignored
	}

	for _, tt := range tests {
		got, err := Decode(serviceData(0, 0, 0, 0, tt.tenths, 0x95, 0))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got.Temperature != tt.want {
			t.Errorf("tenths %#02x: Temperature = %v, want %v", tt.tenths, got.Temperature, tt.want)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr error
	}{
		{name: "empty", value: "", wantErr: ErrPayloadTooShort},
		{name: "prefix only", value: "000d", wantErr: ErrPayloadTooShort},
		{name: "prefix truncated", value: "00", wantErr: ErrPayloadTooShort},
		{name: "five payload bytes", value: "000d" + "00004b0595", wantErr: ErrPayloadTooShort},
		{name: "odd length", value: "000d" + "00004b059532f", wantErr: ErrMalformedPayload},
		{name: "invalid hex", value: "000d" + "00004b0595zz", wantErr: ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode(%q) error = %v, want %v", tt.value, err, tt.wantErr)
			}
			if got != (Reading{}) {
				t.Errorf("Decode(%q) = %+v, want zero Reading on error", tt.value, got)
			}
		})
	}
}

func TestDecode_SevenBitFields(t *testing.T) {
	for v := 0; v < 256; v++ {
		b := byte(v)
		got, err := Decode(serviceData(0, 0, 0, b, 0, b|0x80, b))
		if err != nil {
			t.Fatalf("byte %#02x: %v", b, err)
		}
		want := int(b & 0x7f)
		if got.BatteryVoltage != want || got.BatteryVoltage > 127 {
			t.Errorf("byte %#02x: BatteryVoltage = %d, want %d", b, got.BatteryVoltage, want)
		}
		if got.Humidity != want || got.Humidity > 127 {
			t.Errorf("byte %#02x: Humidity = %d, want %d", b, got.Humidity, want)
		}
		if got.Temperature != float64(want) {
			t.Errorf("byte %#02x: Temperature = %v, want %d", b, got.Temperature, want)
		}
	}
}

func TestDecode_Sign(t *testing.T) {
	for deg := 0; deg < 256; deg++ {
		for tenths := 0; tenths < 16; tenths++ {
			got, err := Decode(serviceData(0, 0, 0, 0, byte(tenths), byte(deg), 0))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if deg&0x80 == 0 && got.Temperature > 0 {
				t.Errorf("degrees %#02x tenths %d: Temperature = %v, want <= 0", deg, tenths, got.Temperature)
			}
			if deg&0x80 != 0 && got.Temperature < 0 {
				t.Errorf("degrees %#02x tenths %d: Temperature = %v, want >= 0", deg, tenths, got.Temperature)
			}
		}
	}
}

func TestDecode_Deterministic(t *testing.T) {
	value := serviceData(0x0d00, 0x54, 0x00, 0xe4, 0x07, 0x9a, 0x3c)
	first, err := Decode(value)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := Decode(value)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got != first {
			t.Fatalf("Decode() run %d = %+v, want %+v", i, got, first)
		}
	}
}
