package interp

import "rv32vm/pkg/rv/cpu"

// handleFence implements FENCE and FENCE.I (Zifencei). Neither has an
// observable effect in this single-hart, non-self-modifying-code model: the
// core has no store buffer to drain and no instruction cache to flush. Both
// forms simply retire and fall through.
func handleFence(rv *cpu.State, instr uint32) bool {
	advancePC(rv)
	return true
}
