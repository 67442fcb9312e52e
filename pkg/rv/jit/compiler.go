//go:build linux && amd64

package jit

import "rv32vm/pkg/rv/decode"

// State field byte offsets, hardcoded rather than computed with
// unsafe.Offsetof — the same idiom the teacher's compiler.go uses for
// StateRegistersOffset and friends. cpu.State's doc comment is the source of
// truth for these; the two must be kept in lockstep by hand.
const (
	stateXOffset         = 0
	statePCOffset        = 256
	stateExceptionOffset = 260
	stateCycleOffset     = 272
)

// excInstMisaligned mirrors cpu.ExcInstMisaligned's numeric value. The
// compiler does not import cpu for this on purpose: the only exception a
// compiled block can ever raise is instruction-misalignment on a taken
// branch or computed jump, and hardcoding the one value it needs keeps the
// compiler's only dependency on cpu.State its *layout*, not its exported
// API (runtime.go, which executes blocks, does import cpu).
const excInstMisaligned = 1

// mExtensionFunct7 mirrors interp/op.go's gate for MUL/DIV/REM within the OP
// major opcode; the JIT does not translate the M extension (see
// compileOp), so this only needs to recognize the case to refuse it.
const mExtensionFunct7 = 0b0000001

// pvmHardwareReg reports which x86-64 callee-saved register holds X[i] for
// the duration of a compiled block, per the register allocation strategy:
// X[1..5] live in hardware, X[0] is never materialized, everything else is
// spilled to cpu.State.
func pvmHardwareReg(x uint32) (Reg, bool) {
	switch x {
	case 1:
		return RBX, true
	case 2:
		return R12, true
	case 3:
		return R13, true
	case 4:
		return R14, true
	case 5:
		return R15, true
	default:
		return 0, false
	}
}

var hardwareGuestRegs = [...]uint32{1, 2, 3, 4, 5}

// Compiler translates one basic block at a time into an ExecutableMemory
// arena. It holds no guest state across calls to CompileBlock.
type Compiler struct {
	mem *ExecutableMemory
	as  *Assembler
}

// NewCompiler targets mem for all future CompileBlock calls.
func NewCompiler(mem *ExecutableMemory) *Compiler {
	return &Compiler{mem: mem}
}

// maxBlockInstrs bounds how many guest instructions one translation unit
// covers, keeping worst-case code size small.
const maxBlockInstrs = 64

// perInstrBudget is a deliberately generous upper bound on x86-64 bytes one
// translated RV32 instruction can produce (a conditional branch's cmov-select
// exit sequence is the largest, well under 200 bytes); used only to size the
// arena reservation, not emitted.
const perInstrBudget = 256

// CompileBlock translates guest instructions starting at startPC until it
// hits a translatable terminator (branch/jump) or a non-translatable
// instruction. It returns ok=false if even the first instruction can't be
// translated — the caller falls back to the interpreter for that PC, since
// the translator must be able to refuse a block.
func (c *Compiler) CompileBlock(fetch Fetcher, startPC uint32) (*CompiledBlock, bool) {
	addr, buf, err := c.mem.Allocate(perInstrBudget * maxBlockInstrs)
	if err != nil {
		return nil, false
	}
	c.as = NewAssembler(buf)

	block := &CompiledBlock{StartPC: startPC, Entry: addr}
	c.emitPrologue()

	pc := startPC
	for block.Instrs < maxBlockInstrs {
		word, ok := fetch.PeekWord(pc)
		if !ok {
			break
		}
		instrs := block.Instrs + 1
		terminated, translated := c.compileInstruction(pc, word, instrs)
		if !translated {
			break
		}
		block.Instrs = instrs
		if terminated {
			return block, true
		}
		pc += 4
	}

	if block.Instrs == 0 {
		return nil, false
	}
	c.emitStaticExit(pc, 0, block.Instrs)
	return block, true
}

// compileInstruction emits code for one guest instruction. terminated
// reports whether the instruction already emitted a block exit (a
// translated branch or jump); translated reports whether it was emitted at
// all — false means the caller must stop the block before this instruction.
// instrs is the retired-instruction count including this one, charged to
// the cycle counter by whichever exit fires.
func (c *Compiler) compileInstruction(pc, word uint32, instrs int) (terminated, translated bool) {
	switch decode.Major5(word) {
	case 0b00011: // FENCE / FENCE.I: no observable effect, falls through
		return false, true
	case 0b00100: // OP-IMM
		return false, c.compileOpImm(word)
	case 0b00101: // AUIPC
		c.compileLoadImmediate(decode.Rd(word), uint32(decode.UImm(word))+pc)
		return false, true
	case 0b01100: // OP
		return false, c.compileOp(word)
	case 0b01101: // LUI
		c.compileLoadImmediate(decode.Rd(word), uint32(decode.UImm(word)))
		return false, true
	case 0b11000: // BRANCH
		if !branchFunct3Valid(decode.Funct3(word)) {
			// funct3 0b010/0b011 are reserved; the interpreter raises
			// ExcIllegalInstruction for them. Refuse the block here so the
			// interpreter, not generated code, is the one that does that.
			return false, false
		}
		c.compileBranch(pc, word, instrs)
		return true, true
	case 0b11001: // JALR
		c.compileJALR(pc, word, instrs)
		return true, true
	case 0b11011: // JAL
		c.compileJAL(pc, word, instrs)
		return true, true
	default:
		// LOAD, STORE, AMO, F-extension, FMADD family, SYSTEM, and any
		// unrecognized opcode: not translated. The block ends here (or, if
		// this is the first instruction, the whole block is refused) and
		// the interpreter executes it next.
		return false, false
	}
}

// --- register access -------------------------------------------------

// loadX loads guest register x into dst, zero-extending x0 via xor rather
// than reading a memory location that was never written (the "mov r,0 ->
// xor r,r" peephole applied to the register-read side).
func (c *Compiler) loadX(x uint32, dst Reg) {
	if x == 0 {
		c.as.XorRegReg32(dst, dst)
		return
	}
	if hw, ok := pvmHardwareReg(x); ok {
		c.as.MovRegReg32(dst, hw)
		return
	}
	c.as.MovRegMem32(dst, RDI, stateXOffset+int32(x)*4)
}

// storeX writes src to guest register rd. Writes to x0 are elided entirely
// — the "writes to X[0] emit nothing" rule.
func (c *Compiler) storeX(rd uint32, src Reg) {
	if rd == 0 {
		return
	}
	if hw, ok := pvmHardwareReg(rd); ok {
		if hw != src {
			c.as.MovRegReg32(hw, src)
		}
		return
	}
	c.as.MovMemReg32(RDI, stateXOffset+int32(rd)*4, src)
}

// compileLoadImmediate materializes a compile-time-constant value into rd,
// used by LUI and AUIPC (whose operand is always known at translation time).
func (c *Compiler) compileLoadImmediate(rd uint32, value uint32) {
	if rd == 0 {
		return
	}
	if hw, ok := pvmHardwareReg(rd); ok {
		if value == 0 {
			c.as.XorRegReg32(hw, hw) // mov r,0 -> xor r,r
		} else {
			c.as.MovRegImm32(hw, value)
		}
		return
	}
	scratch := RAX
	if value == 0 {
		c.as.XorRegReg32(scratch, scratch)
	} else {
		c.as.MovRegImm32(scratch, value)
	}
	c.as.MovMemReg32(RDI, stateXOffset+int32(rd)*4, scratch)
}

// --- prologue / epilogue ----------------------------------------------

// emitPrologue saves the host's callee-saved registers and loads the
// hardware-resident guest registers from cpu.State.
func (c *Compiler) emitPrologue() {
	for _, x := range hardwareGuestRegs {
		hw, _ := pvmHardwareReg(x)
		c.as.Push(hw)
	}
	for _, x := range hardwareGuestRegs {
		hw, _ := pvmHardwareReg(x)
		c.as.MovRegMem32(hw, RDI, stateXOffset+int32(x)*4)
	}
}

// spillHardwareRegs writes every hardware-resident guest register back to
// cpu.State. Called before any block exit.
func (c *Compiler) spillHardwareRegs() {
	for _, x := range hardwareGuestRegs {
		hw, _ := pvmHardwareReg(x)
		c.as.MovMemReg32(RDI, stateXOffset+int32(x)*4, hw)
	}
}

// restoreHostRegs pops the host's callee-saved registers in the reverse
// order emitPrologue pushed them, right before ret.
func (c *Compiler) restoreHostRegs() {
	for i := len(hardwareGuestRegs) - 1; i >= 0; i-- {
		hw, _ := pvmHardwareReg(hardwareGuestRegs[i])
		c.as.Pop(hw)
	}
}

// addCycles adds n to the 64-bit retired-instruction counter, folding a
// whole block's worth of interp.Step's TickCycle calls into one add. Uses
// R10 rather than RAX/RDX/RCX/RSI/R8/R9 deliberately: every exit path calls
// this while a caller-chosen subset of those registers still holds the
// next-PC/exception values it is about to write out, and this must not
// clobber them.
func (c *Compiler) addCycles(n int) {
	c.as.MovRegMem64(R10, RDI, stateCycleOffset)
	c.as.AddRegImm64(R10, int32(n))
	c.as.MovMemReg64(RDI, stateCycleOffset, R10)
}

// emitStaticExit ends the block with a compile-time-known next PC and
// exception code (used by the fallthrough exit, LUI/AUIPC never call this
// directly, and JAL when its target's alignment is already known at
// translation time).
func (c *Compiler) emitStaticExit(nextPC uint32, exc int32, instrs int) {
	c.addCycles(instrs)
	c.spillHardwareRegs()
	c.as.MovRegImm32(RDX, nextPC)
	c.as.MovMemReg32(RDI, statePCOffset, RDX)
	c.as.MovRegImm32(RAX, uint32(exc))
	c.as.MovMemReg32(RDI, stateExceptionOffset, RAX)
	c.as.XorRegReg32(RAX, RAX) // ExitGo == 0
	c.restoreHostRegs()
	c.as.Ret()
}

// emitDynamicExit ends the block with a next PC and exception code computed
// at runtime (used by JALR, whose target depends on a register value).
// Both must already be in the given registers before spilling clobbers
// anything they alias.
func (c *Compiler) emitDynamicExit(nextPC, exc Reg, instrs int) {
	c.addCycles(instrs)
	c.spillHardwareRegs()
	c.as.MovMemReg32(RDI, statePCOffset, nextPC)
	c.as.MovMemReg32(RDI, stateExceptionOffset, exc)
	if nextPC != RDX {
		c.as.MovRegReg32(RDX, nextPC)
	}
	c.as.XorRegReg32(RAX, RAX) // ExitGo == 0
	c.restoreHostRegs()
	c.as.Ret()
}

// --- OP-IMM -------------------------------------------------------------

func (c *Compiler) compileOpImm(word uint32) bool {
	rd := decode.Rd(word)
	rs1 := decode.Rs1(word)
	imm := decode.IImm(word)
	as := c.as

	switch decode.Funct3(word) {
	case 0b000: // ADDI
		c.loadX(rs1, RAX)
		if imm != 0 { // add r,0 -> elide
			as.AddRegImm32(RAX, imm)
		}
		c.storeX(rd, RAX)
	case 0b010: // SLTI (signed)
		c.loadX(rs1, RAX)
		as.CmpRegImm32(RAX, imm)
		as.Setl(RAX)
		c.storeX(rd, RAX)
	case 0b011: // SLTIU (unsigned compare of sign-extended immediate)
		c.loadX(rs1, RAX)
		as.CmpRegImm32(RAX, imm)
		as.Setb(RAX)
		c.storeX(rd, RAX)
	case 0b100: // XORI
		c.loadX(rs1, RAX)
		if imm != 0 {
			as.XorRegImm32(RAX, imm)
		}
		c.storeX(rd, RAX)
	case 0b110: // ORI
		c.loadX(rs1, RAX)
		if imm != 0 {
			as.OrRegImm32(RAX, imm)
		}
		c.storeX(rd, RAX)
	case 0b111: // ANDI
		if imm == 0 {
			as.XorRegReg32(RAX, RAX) // and r,0 -> xor r,r
		} else {
			c.loadX(rs1, RAX)
			as.AndRegImm32(RAX, imm)
		}
		c.storeX(rd, RAX)
	case 0b001: // SLLI
		shamt := decode.Shamt(word)
		c.loadX(rs1, RAX)
		if shamt != 0 { // shl r,0 -> elide
			as.Shl32RegImm8(RAX, byte(shamt))
		}
		c.storeX(rd, RAX)
	case 0b101: // SRLI / SRAI
		shamt := decode.Shamt(word)
		c.loadX(rs1, RAX)
		if shamt != 0 {
			if decode.Funct7(word) == 0b0100000 {
				as.Sar32RegImm8(RAX, byte(shamt))
			} else {
				as.Shr32RegImm8(RAX, byte(shamt))
			}
		}
		c.storeX(rd, RAX)
	default:
		return false
	}
	return true
}

// --- OP ------------------------------------------------------------------

func (c *Compiler) compileOp(word uint32) bool {
	if decode.Funct7(word) == mExtensionFunct7 {
		return false // MUL/DIV/REM family: not translated
	}

	rd := decode.Rd(word)
	rs1 := decode.Rs1(word)
	rs2 := decode.Rs2(word)
	as := c.as

	switch decode.Funct3(word) {
	case 0b000: // ADD / SUB
		c.loadX(rs1, RAX)
		c.loadX(rs2, RCX)
		if decode.Funct7(word) == 0b0100000 {
			as.SubRegReg32(RAX, RCX)
		} else {
			as.AddRegReg32(RAX, RCX)
		}
		c.storeX(rd, RAX)
	case 0b001: // SLL (shift count is rs2's low 5 bits, so it must be in CL)
		c.loadX(rs1, RAX)
		c.loadX(rs2, RCX)
		as.Shl32RegCL(RAX)
		c.storeX(rd, RAX)
	case 0b010: // SLT
		c.loadX(rs1, RAX)
		c.loadX(rs2, RCX)
		as.CmpRegReg32(RAX, RCX)
		as.Setl(RAX)
		c.storeX(rd, RAX)
	case 0b011: // SLTU
		c.loadX(rs1, RAX)
		c.loadX(rs2, RCX)
		as.CmpRegReg32(RAX, RCX)
		as.Setb(RAX)
		c.storeX(rd, RAX)
	case 0b100: // XOR
		c.loadX(rs1, RAX)
		c.loadX(rs2, RCX)
		as.XorRegReg32(RAX, RCX)
		c.storeX(rd, RAX)
	case 0b101: // SRL / SRA
		c.loadX(rs1, RAX)
		c.loadX(rs2, RCX)
		if decode.Funct7(word) == 0b0100000 {
			as.Sar32RegCL(RAX)
		} else {
			as.Shr32RegCL(RAX)
		}
		c.storeX(rd, RAX)
	case 0b110: // OR
		c.loadX(rs1, RAX)
		c.loadX(rs2, RCX)
		as.OrRegReg32(RAX, RCX)
		c.storeX(rd, RAX)
	case 0b111: // AND
		c.loadX(rs1, RAX)
		c.loadX(rs2, RCX)
		as.AndRegReg32(RAX, RCX)
		c.storeX(rd, RAX)
	default:
		return false
	}
	return true
}

// --- control flow ---------------------------------------------------------

// compileJAL implements JAL: link is always PC+4, and the target
// (PC + J-imm) is a compile-time constant, so misalignment is knowable
// without emitting any runtime check.
func (c *Compiler) compileJAL(pc, word uint32, instrs int) {
	link := pc + 4
	target := pc + uint32(decode.JImm(word))
	c.storeX(decode.Rd(word), c.materialize(link))

	exc := int32(0)
	if target&0b11 != 0 {
		exc = excInstMisaligned
	}
	c.emitStaticExit(target, exc, instrs)
}

// compileJALR implements JALR: link is PC+4 (constant), but the target
// depends on a register value, so both the target and its alignment must be
// computed at runtime. The target is computed and captured in RAX *before*
// rd is written — rd may alias rs1's hardware register, and reading rs1
// after that write would read back the just-stored link value instead of
// the operand JALR is defined against.
func (c *Compiler) compileJALR(pc, word uint32, instrs int) {
	as := c.as
	link := pc + 4

	c.loadX(decode.Rs1(word), RAX)
	as.AddRegImm32(RAX, decode.IImm(word))
	as.AndRegImm32(RAX, -2) // clear bit 0, per (X[rs1]+imm) &^ 1: RAX = target

	as.MovRegReg32(RCX, RAX)
	as.AndRegImm32(RCX, 3)
	as.CmpRegImm32(RCX, 0)
	as.MovRegImm32(RDX, 0)
	as.MovRegImm32(RSI, uint32(excInstMisaligned))
	as.Cmovne(RDX, RSI) // target&3 != 0 (bit 0 already clear, so this is bit 1)

	if link == 0 {
		as.XorRegReg32(R8, R8)
	} else {
		as.MovRegImm32(R8, link)
	}
	c.storeX(decode.Rd(word), R8)

	c.emitDynamicExit(RAX, RDX, instrs)
}

// materialize loads a compile-time constant into a scratch register,
// applying the "mov r,0 -> xor r,r" peephole, and returns it.
func (c *Compiler) materialize(value uint32) Reg {
	if value == 0 {
		c.as.XorRegReg32(RAX, RAX)
	} else {
		c.as.MovRegImm32(RAX, value)
	}
	return RAX
}

// branchFunct3Valid reports whether funct3 names one of the six defined
// BRANCH comparisons; 0b010 and 0b011 are reserved.
func branchFunct3Valid(funct3 uint32) bool {
	switch funct3 {
	case 0b000, 0b001, 0b100, 0b101, 0b110, 0b111:
		return true
	default:
		return false
	}
}

// branchCmov maps a BRANCH funct3 to the 64-bit conditional move that
// selects the taken-path exit descriptor over the not-taken one. Only
// called once branchFunct3Valid has confirmed funct3 is one of the six
// defined comparisons.
func branchCmov(as *Assembler, funct3 uint32, dst, src Reg) {
	switch funct3 {
	case 0b000: // BEQ
		as.Cmove(dst, src)
	case 0b001: // BNE
		as.Cmovne(dst, src)
	case 0b100: // BLT
		as.Cmovl(dst, src)
	case 0b101: // BGE
		as.Cmovge(dst, src)
	case 0b110: // BLTU
		as.Cmovb(dst, src)
	case 0b111: // BGEU
		as.Cmovae(dst, src)
	}
}

// compileBranch implements BEQ/BNE/BLT/BGE/BLTU/BGEU. The caller has already
// confirmed funct3 is one of the six defined comparisons. Both the taken and
// not-taken exits are precomputed as constants (fallthrough PC, and taken
// target with its compile-time-knowable misalignment status), then a single
// cmov per field selects between them — no runtime branch is emitted for a
// conditional guest branch at all.
func (c *Compiler) compileBranch(pc, word uint32, instrs int) {
	as := c.as
	fallPC := pc + 4
	takenPC := pc + uint32(decode.BImm(word))
	takenExc := uint32(0)
	if takenPC&0b11 != 0 {
		takenExc = excInstMisaligned
	}

	// Comparison operands go in R8/R9 so they don't collide with the
	// RAX/RCX/RDX/RSI quartet used for the exit-descriptor cmov dance.
	c.loadX(decode.Rs1(word), R8)
	c.loadX(decode.Rs2(word), R9)
	as.CmpRegReg32(R8, R9)

	as.MovRegImm32(RAX, fallPC)
	as.MovRegImm32(RCX, takenPC)
	as.MovRegImm32(RDX, 0)
	as.MovRegImm32(RSI, takenExc)

	funct3 := decode.Funct3(word)
	branchCmov(as, funct3, RAX, RCX)
	branchCmov(as, funct3, RDX, RSI)

	c.emitDynamicExit(RAX, RDX, instrs)
}
