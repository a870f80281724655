package fwk

import (
	"fmt"
	"sync"
)

var System = systemType{
	name:    "root",
	devices: make([]Device, 0, 2),
	devmap:  make(map[string]Device),
}

type systemType struct {
	mu      sync.RWMutex
	name    string
	devices []Device
	devmap  map[string]Device
}

func (sys *systemType) Devices() []Device {
	sys.mu.RLock()
	defer sys.mu.RUnlock()
	return append([]Device(nil), sys.devices...)
}

func (sys *systemType) Name() string {
	return sys.name
}

func (sys *systemType) Register(dev Device) {
	sys.mu.Lock()
	defer sys.mu.Unlock()
	d, dup := sys.devmap[dev.Name()]
	if dup {
		panic(fmt.Errorf(
			"fwk: duplicate device %q\nold=%#v\nnew=%#v",
			dev.Name(),
			d, dev,
		))
	}
	sys.devices = append(sys.devices, dev)
	sys.devmap[dev.Name()] = dev
}

func (sys *systemType) Unregister(name string) {
	sys.mu.Lock()
	defer sys.mu.Unlock()
	if _, ok := sys.devmap[name]; !ok {
		return
	}
	delete(sys.devmap, name)
	for i, dev := range sys.devices {
		if dev.Name() == name {
			sys.devices = append(sys.devices[:i], sys.devices[i+1:]...)
			break
		}
	}
}

func (sys *systemType) Device(name string) Device {
	sys.mu.RLock()
	defer sys.mu.RUnlock()
	return sys.devmap[name]
}
