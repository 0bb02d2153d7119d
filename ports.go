package canport

import (
	"strings"

	"go.bug.st/serial/enumerator"
)

// USB identity reported by the adapter's serial interface.
const (
	VendorID  = "AD50"
	ProductID = "60C4"
)

var enumeratePorts = enumerator.GetDetailedPortsList

// ListPorts returns the serial ports that belong to an slcan adapter, or all
// serial ports when all is set.
func ListPorts(all bool) ([]*enumerator.PortDetails, error) {
	ports, err := enumeratePorts()
	if err != nil {
		return nil, err
	}
	if all {
		return ports, nil
	}
	return FilterPorts(ports, VendorID, ProductID), nil
}

// FilterPorts keeps the USB ports whose vendor and product id match, ignoring case.
func FilterPorts(ports []*enumerator.PortDetails, vid, pid string) []*enumerator.PortDetails {
	var out []*enumerator.PortDetails
	for _, port := range ports {
		if port == nil || !port.IsUSB {
			continue
		}
		if strings.EqualFold(port.VID, vid) && strings.EqualFold(port.PID, pid) {
			out = append(out, port)
		}
	}
	return out
}
