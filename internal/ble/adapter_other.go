//go:build !linux

package ble

import "tinygo.org/x/bluetooth"

// Only BlueZ exposes more than one adapter; id is ignored elsewhere.
func newAdapter(_ string) *bluetooth.Adapter {
	return bluetooth.DefaultAdapter
}
