//go:build linux

package ble

import "tinygo.org/x/bluetooth"

func newAdapter(id string) *bluetooth.Adapter {
	return bluetooth.NewAdapter(id)
}
