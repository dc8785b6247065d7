// Package pic implements the interrupt-controller driver core
// component A: a legacy 8259A master/slave pair exposed through a
// dispatch-table-shaped interface. See spec.md §3, §4.A.
//
// Grounded on src/mazboot/golang/main/gic_qemu.go's shape (one
// controller, a handful of named register operations, an
// interrupt-handler table indexed by IRQ number); the port-level
// register semantics are grounded on
// other_examples/…BigBossBoolingB-VDATABPro…pic.go.go, a full
// software 8259A emulation.
package pic

import "kernel64/internal/bitfield"

// Handler is the interrupt-service routine signature callers register
// against an IRQ line.
type Handler func()

// Controller is the dispatch table spec.md §3 describes: callers
// depend on this abstraction, never on a concrete chip. legacy8259 is
// this core's one concrete realization, running over either a real or
// a simulated PortBus.
type Controller interface {
	// EnableAll unmasks every IRQ line on both controllers.
	EnableAll()
	// DisableAll masks every IRQ line on both controllers.
	DisableAll()
	// EnableIRQ unmasks IRQ n. n outside 0..15 is a silent no-op.
	EnableIRQ(n int)
	// DisableIRQ masks IRQ n. n outside 0..15 is a silent no-op.
	DisableIRQ(n int)
	// EOI issues an end-of-interrupt acknowledgment for IRQ n. For
	// n >= 8 the slave is acknowledged before the master. n outside
	// 0..15 is a silent no-op.
	EOI(n int)
	// ReadInService returns the 16-bit in-service register, slave in
	// the high byte, master in the low byte.
	ReadInService() uint16
	// ReadRequest returns the 16-bit interrupt-request register,
	// slave in the high byte, master in the low byte.
	ReadRequest() uint16
	// Register installs handler as the service routine for IRQ n and
	// enables delivery of n, mirroring the teacher's
	// registerInterruptHandler + gicEnableInterrupt pairing.
	Register(n int, handler Handler)
	// Dispatch invokes the handler registered for n, if any, after
	// which the caller is responsible for EOI. Nothing in this core
	// calls it outside the tests: the timer handler's HandleTick is
	// called directly.
	Dispatch(n int)
}

// PortBus is the byte-wide I/O port interface the legacy PIC (and the
// PIT, see internal/timer) is programmed through. Two providers exist:
// a real one in internal/arch/amd64 (build tag linux && amd64) and the
// simulated one in this package, used everywhere else including every
// test.
type PortBus interface {
	Outb(port uint16, val byte)
	Inb(port uint16) byte
}

// Legacy 8259A I/O ports, per spec.md §6.
const (
	MasterCmd  = 0x20
	MasterData = 0x21
	SlaveCmd   = 0xA0
	SlaveData  = 0xA1
)

// ICW/OCW command bytes, per the 8259A datasheet and spec.md §4.A/§6.
const (
	icw4Needed  = 0x01
	icw4_8086   = 0x01
	ocw3ReadIRR = 0x0A
	ocw3ReadISR = 0x0B
	eoiNonSpec  = 0x20 // non-specific EOI (OCW2)
)

type legacy8259 struct {
	bus      PortBus
	handlers [16]Handler
}

// NewLegacy returns a Controller driving a legacy 8259A master/slave
// pair over bus. The controller is left uninitialized (all lines
// masked, chips not reprogrammed) until Init is called.
func NewLegacy(bus PortBus) Controller {
	return &legacy8259{bus: bus}
}

// Init reprograms the master/slave pair per spec.md §4.A: hardware
// lines 0..7 map to vector base masterVectorBase, 8..15 to
// slaveVectorBase, cascade on line 2, 8086 mode, all lines masked on
// return.
func Init(c Controller, masterVectorBase, slaveVectorBase byte) {
	l := c.(*legacy8259)
	bus := l.bus

	// Save masks is unnecessary here: Init always fully reprograms,
	// matching spec.md's "leaves all lines masked on return".

	icw1 := bitfieldICW1()

	bus.Outb(MasterCmd, icw1)
	bus.Outb(SlaveCmd, icw1)

	bus.Outb(MasterData, masterVectorBase)
	bus.Outb(SlaveData, slaveVectorBase)

	// ICW3: cascade wiring. Master is told slave lives on IRQ2
	// (bit mask 1<<2); slave is told its cascade identity is 2.
	bus.Outb(MasterData, 1<<2)
	bus.Outb(SlaveData, 2)

	bus.Outb(MasterData, icw4_8086)
	bus.Outb(SlaveData, icw4_8086)

	// Mask everything; callers enable individual lines as needed.
	bus.Outb(MasterData, 0xFF)
	bus.Outb(SlaveData, 0xFF)
}

func bitfieldICW1() byte {
	return bitfield.ICW1Word{Need4: true, Init: true}.Byte()
}

func (l *legacy8259) EnableAll() {
	l.bus.Outb(MasterData, 0x00)
	l.bus.Outb(SlaveData, 0x00)
}

func (l *legacy8259) DisableAll() {
	l.bus.Outb(MasterData, 0xFF)
	l.bus.Outb(SlaveData, 0xFF)
}

func (l *legacy8259) EnableIRQ(n int) {
	if n < 0 || n > 15 {
		return
	}
	port, bit := dataPortAndBit(n)
	mask := l.bus.Inb(port)
	mask &^= 1 << bit
	l.bus.Outb(port, mask)
}

func (l *legacy8259) DisableIRQ(n int) {
	if n < 0 || n > 15 {
		return
	}
	port, bit := dataPortAndBit(n)
	mask := l.bus.Inb(port)
	mask |= 1 << bit
	l.bus.Outb(port, mask)
}

func (l *legacy8259) EOI(n int) {
	if n < 0 || n > 15 {
		return
	}
	if n >= 8 {
		l.bus.Outb(SlaveCmd, eoiNonSpec)
	}
	l.bus.Outb(MasterCmd, eoiNonSpec)
}

func (l *legacy8259) ReadInService() uint16 {
	l.bus.Outb(MasterCmd, ocw3ReadISR)
	l.bus.Outb(SlaveCmd, ocw3ReadISR)
	master := l.bus.Inb(MasterCmd)
	slave := l.bus.Inb(SlaveCmd)
	return uint16(slave)<<8 | uint16(master)
}

func (l *legacy8259) ReadRequest() uint16 {
	l.bus.Outb(MasterCmd, ocw3ReadIRR)
	l.bus.Outb(SlaveCmd, ocw3ReadIRR)
	master := l.bus.Inb(MasterCmd)
	slave := l.bus.Inb(SlaveCmd)
	return uint16(slave)<<8 | uint16(master)
}

func (l *legacy8259) Register(n int, handler Handler) {
	if n < 0 || n > 15 {
		return
	}
	l.handlers[n] = handler
	l.EnableIRQ(n)
}

func (l *legacy8259) Dispatch(n int) {
	if n < 0 || n > 15 {
		return
	}
	if h := l.handlers[n]; h != nil {
		h()
	}
}

func dataPortAndBit(n int) (port uint16, bit uint) {
	if n >= 8 {
		return SlaveData, uint(n % 8)
	}
	return MasterData, uint(n)
}
