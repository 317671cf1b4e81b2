// Package uart defines the serial port driver contract used by the bridge.
package uart

// A Driver installs ports by device name. The device name is backend
// specific: a path such as /dev/ttyUSB0 for host drivers, the UART number
// for the microcontroller driver, or any label for the simulated driver.
//
// A Port is configured once, before it is shared, in the order
// Configure, AssignPins, SetReadTimeout. After that one goroutine may Read
// while another goroutine Writes.
