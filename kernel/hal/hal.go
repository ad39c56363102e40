// Package hal probes for the devices the kernel knows about, initializes
// their drivers and selects the devices used for kernel output.
package hal

import (
	"bytes"
	"io"
	"raspkern/device"
	"raspkern/device/display"
	_ "raspkern/device/uart" // registers the serial console driver
	"raspkern/kernel/kfmt"
	"sort"
)

// managedDevices contains the devices discovered by the HAL.
type managedDevices struct {
	activeSerial  io.Writer
	activeDisplay *display.Display

	// activeDrivers tracks all initialized device drivers.
	activeDrivers []device.Driver
}

var (
	devices managedDevices
	strBuf  bytes.Buffer
)

// ActiveSerial returns the device kernel output is sent to, or nil if no
// serial device was found.
func ActiveSerial() io.Writer {
	return devices.activeSerial
}

// ActiveDisplay returns the status display or nil if none was found.
func ActiveDisplay() *display.Display {
	return devices.activeDisplay
}

// ActiveDrivers returns the drivers that were successfully initialized.
func ActiveDrivers() []device.Driver {
	return devices.activeDrivers
}

// DetectHardware probes for hardware devices and initializes the appropriate
// drivers.
func DetectHardware() {
	// Get driver list and sort by detection priority
	drivers := device.DriverList()
	sort.Sort(drivers)

	probe(drivers)
}

// probe executes the probe function for each driver and invokes
// onDriverInit for each successfully initialized driver.
func probe(driverInfoList device.DriverInfoList) {
	var w = kfmt.PrefixWriter{}

	for _, info := range driverInfoList {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = strBuf.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&w, "initialized\n")
		onDriverInit(drv)
		devices.activeDrivers = append(devices.activeDrivers, drv)
	}
}

// onDriverInit is invoked by probe() whenever a piece of hardware is detected
// and successfully initialized. The first serial device becomes the kfmt
// output sink; buffered early output is replayed to it.
func onDriverInit(drv device.Driver) {
	switch drvImpl := drv.(type) {
	case *display.Display:
		if devices.activeDisplay == nil {
			devices.activeDisplay = drvImpl
		}
	case io.Writer:
		if devices.activeSerial != nil {
			return
		}

		devices.activeSerial = drvImpl
		kfmt.SetOutputSink(drvImpl)
	}
}
