package statusexport

import "github.com/me/ticksched/pkg/model"

// Register offsets from the configured base address. 32-bit counters span two
// registers, high word first.
const (
	RegTicksHi = iota
	RegTicksLo
	RegFiresHi
	RegFiresLo
	RegOverrunsHi
	RegOverrunsLo
	RegActive
	RegPendingAdd
	RegPendingRemove
	RegPaused
	RegCapacity
	RegPendingTicks

	BlockSize
)

// Encode lays out s as BlockSize holding registers. Counters wider than the
// field keep their low bits; gauges saturate at 0xFFFF.
func Encode(s model.StatsView) []uint16 {
	regs := make([]uint16, BlockSize)
	put32(regs, RegTicksHi, s.Ticks)
	put32(regs, RegFiresHi, s.Fires)
	put32(regs, RegOverrunsHi, s.Overruns)
	regs[RegActive] = sat(uint64(s.Active))
	regs[RegPendingAdd] = sat(uint64(s.PendingAdd))
	regs[RegPendingRemove] = sat(uint64(s.PendingRemove))
	regs[RegPaused] = sat(uint64(s.Paused))
	regs[RegCapacity] = sat(uint64(s.Capacity))
	regs[RegPendingTicks] = sat(uint64(s.PendingTicks))
	return regs
}

func put32(regs []uint16, at int, v uint64) {
	regs[at] = uint16(v >> 16)
	regs[at+1] = uint16(v)
}

func sat(v uint64) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

// packRegisters converts registers to the big-endian byte payload of a
// write-multiple-registers request.
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
