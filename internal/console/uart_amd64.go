//go:build linux && amd64

package console

import (
	"kernel64/internal/arch/amd64"

	"go.uber.org/zap/zapcore"
)

// Legacy 16550 UART registers on the PC-class COM1 port, the x86-64
// analogue of src/kernel.go's PL011 UART0_BASE block: this core talks
// to it via port I/O (amd64.PortBus) instead of the Pi's
// memory-mapped mmio_write/mmio_read.
const (
	com1Base = 0x3F8

	regData  = com1Base + 0 // DLAB=0: transmit/receive holding register
	regIER   = com1Base + 1
	regFCR   = com1Base + 2
	regLCR   = com1Base + 3
	regMCR   = com1Base + 4
	regLSR   = com1Base + 5
	dlabLow  = com1Base + 0 // DLAB=1: divisor latch low byte
	dlabHigh = com1Base + 1 // DLAB=1: divisor latch high byte

	lsrTransmitEmpty = 1 << 5
)

// UART is the real hardware console backend, grounded on
// src/kernel.go's uartInit/uartPutc pairing: Init programs the line
// the way uartInit configures the PL011, and Write busy-waits on the
// transmit-empty bit the way uartPutc busy-waits on UART0_FR.
type UART struct {
	bus *amd64.PortBus
}

// NewUART opens COM1 at 38400 baud, 8 data bits, no parity, one stop
// bit, and enables the FIFO. Requires the same I/O-port privilege
// amd64.NewPortBus requests.
func NewUART() (*UART, error) {
	bus, err := amd64.NewPortBus()
	if err != nil {
		return nil, err
	}
	u := &UART{bus: bus}
	u.init()
	return u, nil
}

func (u *UART) init() {
	u.bus.Outb(regIER, 0x00)   // disable all interrupts
	u.bus.Outb(regLCR, 0x80)   // enable DLAB to set baud divisor
	u.bus.Outb(dlabLow, 0x03)  // divisor 3 -> 38400 baud (115200 / 3)
	u.bus.Outb(dlabHigh, 0x00)
	u.bus.Outb(regLCR, 0x03)  // 8N1, DLAB cleared
	u.bus.Outb(regFCR, 0xC7)  // enable FIFO, clear it, 14-byte threshold
	u.bus.Outb(regMCR, 0x0B)  // DTR/RTS set, OUT2 enables IRQs (unused, harmless)
}

// Write implements zapcore.WriteSyncer, sending p a byte at a time,
// waiting on the transmit-holding-register-empty bit before each
// write the way uartPutc waits on UART0_FR's TXFF bit.
func (u *UART) Write(p []byte) (int, error) {
	for _, c := range p {
		for u.bus.Inb(regLSR)&lsrTransmitEmpty == 0 {
		}
		u.bus.Outb(regData, c)
	}
	return len(p), nil
}

// Sync is a no-op: every Write already blocks until the UART has
// accepted the byte, so there is nothing left to flush.
func (u *UART) Sync() error { return nil }

var _ zapcore.WriteSyncer = (*UART)(nil)
