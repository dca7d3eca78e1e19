package ble

import (
	"strings"

	"tinygo.org/x/bluetooth"

	"github.com/mittyorz/infra-munin/internal/utils"
)

// Advertising data types, Supplement to the Bluetooth Core Specification, Part A.
const (
	TypeCompleteName     byte = 0x09
	TypeServiceData16    byte = 0x16
	TypeServiceData128   byte = 0x21
	TypeManufacturerData byte = 0xFF
)

// Element descriptions. Consumers match on these strings.
const (
	DescCompleteName     = "Complete Local Name"
	DescServiceData16    = "16-bit Service Data"
	DescServiceData128   = "128-bit Service Data"
	DescManufacturerData = "Manufacturer"
)

// Element is one advertisement data structure. Value is the lowercase hex
// encoding of the structure's data, including any leading UUID or company
// id in little-endian order.
type Element struct {
	Type        byte
	Description string
	Value       string
}

// Event is a single advertisement seen from Address during a scan. A device
// that keeps advertising produces one Event per packet.
type Event struct {
	Address   string
	RSSI      int16
	LocalName string
	Elements  []Element
}

func eventFromScanResult(r bluetooth.ScanResult) Event {
	return buildEvent(r.Address.String(), r.RSSI, r.LocalName(), r.ManufacturerData(), r.ServiceData())
}

func buildEvent(address string, rssi int16, localName string, mfg []bluetooth.ManufacturerDataElement, svc []bluetooth.ServiceDataElement) Event {
	ev := Event{
		Address:   strings.ToLower(address),
		RSSI:      rssi,
		LocalName: localName,
	}

	if localName != "" {
		ev.Elements = append(ev.Elements, Element{
			Type:        TypeCompleteName,
			Description: DescCompleteName,
			Value:       utils.BytesToHex([]byte(localName)),
		})
	}

	for _, md := range mfg {
		raw := make([]byte, 0, 2+len(md.Data))
		raw = append(raw, byte(md.CompanyID), byte(md.CompanyID>>8))
		raw = append(raw, md.Data...)
		ev.Elements = append(ev.Elements, Element{
			Type:        TypeManufacturerData,
			Description: DescManufacturerData,
			Value:       utils.BytesToHex(raw),
		})
	}

	for _, sd := range svc {
		if sd.UUID.Is16Bit() {
			short := sd.UUID.Get16Bit()
			raw := make([]byte, 0, 2+len(sd.Data))
			raw = append(raw, byte(short), byte(short>>8))
			raw = append(raw, sd.Data...)
			ev.Elements = append(ev.Elements, Element{
				Type:        TypeServiceData16,
				Description: DescServiceData16,
				Value:       utils.BytesToHex(raw),
			})
			continue
		}
		ev.Elements = append(ev.Elements, Element{
			Type:        TypeServiceData128,
			Description: DescServiceData128,
			Value:       strings.ReplaceAll(sd.UUID.String(), "-", "") + utils.BytesToHex(sd.Data),
		})
	}

	return ev
}

// serviceUUIDs lists the service data UUIDs of svc for logging: "fd3d" for
// 16-bit UUIDs, the canonical form otherwise.
func serviceUUIDs(svc []bluetooth.ServiceDataElement) []string {
	out := make([]string, 0, len(svc))
	for _, sd := range svc {
		if sd.UUID.Is16Bit() {
			out = append(out, utils.Hex4(sd.UUID.Get16Bit()))
			continue
		}
		out = append(out, sd.UUID.String())
	}
	return out
}
