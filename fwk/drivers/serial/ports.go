package serial

import (
	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port detected on the host.
type PortInfo struct {
	Name    string
	USB     bool
	VID     string
	PID     string
	Serial  string
	Product string
}

// Ports lists the serial ports present on the host.
func Ports() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	infos := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		infos = append(infos, PortInfo{
			Name:    p.Name,
			USB:     p.IsUSB,
			VID:     p.VID,
			PID:     p.PID,
			Serial:  p.SerialNumber,
			Product: p.Product,
		})
	}
	return infos, nil
}
