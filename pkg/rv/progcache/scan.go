package progcache

import "rv32vm/pkg/rv/decode"

// ScanBlockStarts walks a little-endian RV32 image word by word and returns
// every PC that begins a basic block in the same sense jit.Compiler ends
// one: PC 0 always starts a block, and the instruction right after any
// branch, jump, or instruction the JIT does not translate (loads, stores,
// atomics, floating point, system/CSR) starts the next one. This mirrors
// jit.Compiler's translatable-instruction set without importing the jit
// package — the scan is a static property of the image bytes, independent
// of the JIT backend being available on the host at all.
func ScanBlockStarts(image []byte) []uint32 {
	if len(image) < 4 {
		return nil
	}
	starts := []uint32{0}
	boundaryNext := false

	for pc := uint32(0); int(pc)+4 <= len(image); pc += 4 {
		if boundaryNext && pc != 0 {
			starts = append(starts, pc)
			boundaryNext = false
		}
		word := uint32(image[pc]) | uint32(image[pc+1])<<8 | uint32(image[pc+2])<<16 | uint32(image[pc+3])<<24
		if !blockContinues(word) {
			boundaryNext = true
		}
	}
	return starts
}

// blockContinues reports whether word is one of the instructions
// jit.Compiler folds into the current block rather than ending it.
func blockContinues(word uint32) bool {
	switch decode.Major5(word) {
	case 0b00011, // FENCE/FENCE.I
		0b00100, // OP-IMM
		0b00101, // AUIPC
		0b01100, // OP (M-extension funct7 still ends the block, but that's
		// a codegen-time refusal the static scanner can't see without
		// re-deriving compileOp's funct7 gate; harmless over-approximation,
		// it only means the scan's boundary list is a subset of what the
		// compiler will actually discover, never a superset)
		0b01101: // LUI
		return true
	default:
		return false
	}
}
