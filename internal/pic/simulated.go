package pic

import "sync"

// simulatedChip models one 8259A's programmable state: the
// initialization command word sequence, the interrupt mask register,
// and the registers OCW3 selects for readback. Grounded on
// other_examples/…BigBossBoolingB-VDATABPro…pic.go.go's PICController
// (icwCount/expectOCW/imr/irr/isr/readRegSelect), generalized from a
// VM hypervisor's I/O-trap callback into a synchronous PortBus.
type simulatedChip struct {
	imr           byte
	irr           byte
	isr           byte
	icwStep       int // 0 = idle, 1..3 = expecting ICW2/3/4
	readRegSelect byte // 0 = IRR, 1 = ISR; selected by OCW3
}

func newSimulatedChip() *simulatedChip {
	return &simulatedChip{imr: 0xFF}
}

func (c *simulatedChip) writeCmd(val byte) {
	if val&0x10 != 0 { // ICW1: bit 4 always set
		c.icwStep = 1 // ICW1 consumed here; ICW2 expected on the data port next
		c.imr = 0x00
		c.irr = 0x00
		c.isr = 0x00
		return
	}
	if val&0x18 == 0x08 { // OCW3: bits 4:3 == 0b01
		if val&0x03 == 0x02 {
			c.readRegSelect = 0
		} else if val&0x03 == 0x03 {
			c.readRegSelect = 1
		}
		return
	}
	// OCW2: end-of-interrupt family. This simulation only implements
	// non-specific EOI (0x20), the only form the core ever issues.
	if val == eoiNonSpec {
		// Clear the highest-priority in-service bit.
		for bit := 0; bit < 8; bit++ {
			if c.isr&(1<<bit) != 0 {
				c.isr &^= 1 << bit
				break
			}
		}
	}
}

func (c *simulatedChip) writeData(val byte) {
	// ICW1 always precedes ICW2/3/4 on the data port. This simulation
	// does not need the vector base or cascade identity it carries —
	// IRQ routing is fixed (IRQ n always maps to this core's own
	// handler table) — so ICW2..4 are consumed and ignored, matching
	// spec.md §9's framing of unused wiring as noise to discard once
	// its absence has no observable effect.
	if c.icwStep > 0 {
		c.icwStep++
		if c.icwStep > 3 {
			c.icwStep = 0
		}
		return
	}
	c.imr = val
}

func (c *simulatedChip) readCmd() byte {
	if c.readRegSelect == 1 {
		return c.isr
	}
	return c.irr
}

func (c *simulatedChip) readData() byte {
	return c.imr
}

// raise marks bit as pending in IRR if the line is not masked. A
// masked line's assertion never reaches IRR, matching real 8259A
// behavior and spec.md §8 scenario 5 (IRQ masking).
func (c *simulatedChip) raise(bit uint) bool {
	if c.imr&(1<<bit) != 0 {
		return false
	}
	c.irr |= 1 << bit
	return true
}

// simulatedBus is the default PortBus: an in-memory model of both
// chips wired together the way real hardware wires master and slave.
type simulatedBus struct {
	mu     sync.Mutex
	master *simulatedChip
	slave  *simulatedChip
}

// NewSimulatedBus returns a bus backed entirely by Go state, with no
// real hardware access. This is the default bus used by cmd/kernelsim
// and by every test in this repository. The concrete *SimulatedBus
// return type (rather than PortBus) lets callers also reach RaiseIRQ,
// which PortBus does not expose.
func NewSimulatedBus() *SimulatedBus {
	return &simulatedBus{master: newSimulatedChip(), slave: newSimulatedChip()}
}

func (b *simulatedBus) Outb(port uint16, val byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch port {
	case MasterCmd:
		b.master.writeCmd(val)
	case MasterData:
		b.master.writeData(val)
	case SlaveCmd:
		b.slave.writeCmd(val)
	case SlaveData:
		b.slave.writeData(val)
	}
}

func (b *simulatedBus) Inb(port uint16) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch port {
	case MasterCmd:
		return b.master.readCmd()
	case MasterData:
		return b.master.readData()
	case SlaveCmd:
		return b.slave.readCmd()
	case SlaveData:
		return b.slave.readData()
	}
	return 0
}

// RaiseIRQ simulates an external device asserting IRQ line n. It
// returns false if the line is currently masked (the device's
// assertion is invisible to ReadRequest until EnableIRQ is called),
// matching spec.md §8 scenario 5 (IRQ masking).
func (b *simulatedBus) RaiseIRQ(n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 || n > 15 {
		return false
	}
	if n >= 8 {
		return b.slave.raise(uint(n % 8))
	}
	return b.master.raise(uint(n))
}

// SimulatedBus is the concrete type NewSimulatedBus returns, exported
// so test code and cmd/kernelsim can call RaiseIRQ.
type SimulatedBus = simulatedBus
