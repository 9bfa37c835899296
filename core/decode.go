// decode.go - Instruction decoder: opcode demux and per-family pattern tables

/*
decode.go turns a raw 32-bit instruction word into a DecodedInst. The top
level switches on the 7-bit major opcode; opcode families that share a
major opcode but differ by funct3 (and, for OP/OP_IMM-shift/SYSTEM, funct7
or a full funct12-style immediate) are disambiguated by a per-family table
of (mask, value) patterns built once at package init and scanned in
declaration order, first match wins, using the pattern DSL in bitfields.go.
An instruction word whose opcode is not one of the eleven major opcodes
this core implements, or whose finer-grained pattern has no match within a
family, decodes to the UNKNOWN form, whose handler traps with
IllegalInstruction.
*/

package core

const (
	opLUI     = 0b0110111
	opAUIPC   = 0b0010111
	opJAL     = 0b1101111
	opJALR    = 0b1100111
	opBRANCH  = 0b1100011
	opLOAD    = 0b0000011
	opSTORE   = 0b0100011
	opOPIMM   = 0b0010011
	opOP      = 0b0110011
	opMISCMEM = 0b0001111
	opSYSTEM  = 0b1110011
)

// patternEntry pairs a compiled pattern with the InstKind it identifies.
type patternEntry struct {
	pat  pattern
	kind InstKind
}

// opPattern builds a (mask, value) pair directly from the fields that
// discriminate an opcode family: the fixed opcode bits, and optionally
// funct3 and/or funct7, leaving every other bit (rd, rs1, rs2, immediates)
// wildcarded. This is the arithmetic form of the same mask/value contract
// compilePattern derives from a literal '0'/'1'/'?' bit-string (see
// bitfields_test.go for a check that the two agree).
func opPattern(op uint32, f3 *uint32, f7 *uint32) pattern {
	p := pattern{mask: 0x7F, value: op & 0x7F}
	if f3 != nil {
		p.mask |= 0x7 << 12
		p.value |= (*f3 & 0x7) << 12
	}
	if f7 != nil {
		p.mask |= 0x7F << 25
		p.value |= (*f7 & 0x7F) << 25
	}
	return p
}

func u32p(v uint32) *uint32 { return &v }

var branchTable = []patternEntry{
	{opPattern(opBRANCH, u32p(0b000), nil), InstBeq},
	{opPattern(opBRANCH, u32p(0b001), nil), InstBne},
	{opPattern(opBRANCH, u32p(0b100), nil), InstBlt},
	{opPattern(opBRANCH, u32p(0b101), nil), InstBge},
	{opPattern(opBRANCH, u32p(0b110), nil), InstBltu},
	{opPattern(opBRANCH, u32p(0b111), nil), InstBgeu},
}

var loadTable = []patternEntry{
	{opPattern(opLOAD, u32p(0b000), nil), InstLb},
	{opPattern(opLOAD, u32p(0b001), nil), InstLh},
	{opPattern(opLOAD, u32p(0b010), nil), InstLw},
	{opPattern(opLOAD, u32p(0b100), nil), InstLbu},
	{opPattern(opLOAD, u32p(0b101), nil), InstLhu},
}

var storeTable = []patternEntry{
	{opPattern(opSTORE, u32p(0b000), nil), InstSb},
	{opPattern(opSTORE, u32p(0b001), nil), InstSh},
	{opPattern(opSTORE, u32p(0b010), nil), InstSw},
}

var opImmTable = []patternEntry{
	{opPattern(opOPIMM, u32p(0b000), nil), InstAddi},
	{opPattern(opOPIMM, u32p(0b010), nil), InstSlti},
	{opPattern(opOPIMM, u32p(0b011), nil), InstSltiu},
	{opPattern(opOPIMM, u32p(0b100), nil), InstXori},
	{opPattern(opOPIMM, u32p(0b110), nil), InstOri},
	{opPattern(opOPIMM, u32p(0b111), nil), InstAndi},
	{opPattern(opOPIMM, u32p(0b001), u32p(0b0000000)), InstSlli},
	{opPattern(opOPIMM, u32p(0b101), u32p(0b0000000)), InstSrli},
	{opPattern(opOPIMM, u32p(0b101), u32p(0b0100000)), InstSrai},
}

var opTable = []patternEntry{
	{opPattern(opOP, u32p(0b000), u32p(0b0000000)), InstAdd},
	{opPattern(opOP, u32p(0b000), u32p(0b0100000)), InstSub},
	{opPattern(opOP, u32p(0b001), u32p(0b0000000)), InstSll},
	{opPattern(opOP, u32p(0b010), u32p(0b0000000)), InstSlt},
	{opPattern(opOP, u32p(0b011), u32p(0b0000000)), InstSltu},
	{opPattern(opOP, u32p(0b100), u32p(0b0000000)), InstXor},
	{opPattern(opOP, u32p(0b101), u32p(0b0000000)), InstSrl},
	{opPattern(opOP, u32p(0b101), u32p(0b0100000)), InstSra},
	{opPattern(opOP, u32p(0b110), u32p(0b0000000)), InstOr},
	{opPattern(opOP, u32p(0b111), u32p(0b0000000)), InstAnd},

	{opPattern(opOP, u32p(0b000), u32p(0b0000001)), InstMul},
	{opPattern(opOP, u32p(0b001), u32p(0b0000001)), InstMulh},
	{opPattern(opOP, u32p(0b010), u32p(0b0000001)), InstMulhsu},
	{opPattern(opOP, u32p(0b011), u32p(0b0000001)), InstMulhu},
	{opPattern(opOP, u32p(0b100), u32p(0b0000001)), InstDiv},
	{opPattern(opOP, u32p(0b101), u32p(0b0000001)), InstDivu},
	{opPattern(opOP, u32p(0b110), u32p(0b0000001)), InstRem},
	{opPattern(opOP, u32p(0b111), u32p(0b0000001)), InstRemu},
}

const (
	sysECALL  = 0x000
	sysEBREAK = 0x001
	sysMRET   = 0x302
)

// decode converts a raw instruction word into its DecodedInst form. It is
// a pure function of x: the same x always yields the same fields and Kind,
// and it never mutates the machine.
func decode(x uint32, isaM bool) DecodedInst {
	switch opcode(x) {
	case opLUI:
		return DecodedInst{Kind: InstLui, Rd: rd(x), Imm: immU(x)}
	case opAUIPC:
		return DecodedInst{Kind: InstAuipc, Rd: rd(x), Imm: immU(x)}
	case opJAL:
		return DecodedInst{Kind: InstJal, Rd: rd(x), Imm: immJ(x)}
	case opJALR:
		return DecodedInst{Kind: InstJalr, Rd: rd(x), Rs1: rs1(x), Imm: immI(x)}
	case opBRANCH:
		return decodeFamily(x, branchTable, immB(x))
	case opLOAD:
		return decodeFamilyLoad(x)
	case opSTORE:
		return decodeFamilyStore(x)
	case opOPIMM:
		return decodeFamilyOpImm(x)
	case opOP:
		table := opTable
		if !isaM {
			table = opTable[:10] // base ALU ops only; RV32M entries excluded
		}
		return decodeFamilyOp(x, table)
	case opMISCMEM:
		// Only funct3 001 is FENCE.I; every other funct3 under MISC-MEM
		// executes as a plain FENCE, there is no reserved encoding here.
		if funct3(x) == 0b001 {
			return DecodedInst{Kind: InstFenceI}
		}
		return DecodedInst{Kind: InstFence}
	case opSYSTEM:
		return decodeSystem(x)
	default:
		return DecodedInst{Kind: InstUnknown}
	}
}

// patternsOf projects a []patternEntry down to the []pattern firstMatch scans.
func patternsOf(entries []patternEntry) []pattern {
	out := make([]pattern, len(entries))
	for i, e := range entries {
		out[i] = e.pat
	}
	return out
}

func decodeFamily(x uint32, table []patternEntry, imm uint32) DecodedInst {
	i := firstMatch(patternsOf(table), x)
	if i < 0 {
		return DecodedInst{Kind: InstUnknown}
	}
	return DecodedInst{Kind: table[i].kind, Rs1: rs1(x), Rs2: rs2(x), Imm: imm}
}

func decodeFamilyLoad(x uint32) DecodedInst {
	i := firstMatch(patternsOf(loadTable), x)
	if i < 0 {
		return DecodedInst{Kind: InstUnknown}
	}
	return DecodedInst{Kind: loadTable[i].kind, Rd: rd(x), Rs1: rs1(x), Imm: immI(x)}
}

func decodeFamilyStore(x uint32) DecodedInst {
	i := firstMatch(patternsOf(storeTable), x)
	if i < 0 {
		return DecodedInst{Kind: InstUnknown}
	}
	return DecodedInst{Kind: storeTable[i].kind, Rs1: rs1(x), Rs2: rs2(x), Imm: immS(x)}
}

func decodeFamilyOpImm(x uint32) DecodedInst {
	i := firstMatch(patternsOf(opImmTable), x)
	if i < 0 {
		return DecodedInst{Kind: InstUnknown}
	}
	kind := opImmTable[i].kind
	imm := immI(x)
	if kind == InstSlli || kind == InstSrli || kind == InstSrai {
		imm = rs2(x) // shift amount lives in the rs2/shamt field, bits [24:20]
	}
	return DecodedInst{Kind: kind, Rd: rd(x), Rs1: rs1(x), Imm: imm}
}

func decodeFamilyOp(x uint32, table []patternEntry) DecodedInst {
	i := firstMatch(patternsOf(table), x)
	if i < 0 {
		return DecodedInst{Kind: InstUnknown}
	}
	return DecodedInst{Kind: table[i].kind, Rd: rd(x), Rs1: rs1(x), Rs2: rs2(x)}
}

func decodeSystem(x uint32) DecodedInst {
	f3 := funct3(x)
	if f3 == 0 {
		switch (x >> 20) & 0xFFF {
		case sysECALL:
			return DecodedInst{Kind: InstEcall}
		case sysEBREAK:
			return DecodedInst{Kind: InstEbreak}
		case sysMRET:
			return DecodedInst{Kind: InstMret}
		default:
			return DecodedInst{Kind: InstUnknown}
		}
	}
	csr := (x >> 20) & 0xFFF
	switch f3 {
	case 0b001:
		return DecodedInst{Kind: InstCsrrw, Rd: rd(x), Rs1: rs1(x), Csr: csr}
	case 0b010:
		return DecodedInst{Kind: InstCsrrs, Rd: rd(x), Rs1: rs1(x), Csr: csr}
	case 0b011:
		return DecodedInst{Kind: InstCsrrc, Rd: rd(x), Rs1: rs1(x), Csr: csr}
	case 0b101:
		return DecodedInst{Kind: InstCsrrwi, Rd: rd(x), Rs1: rs1(x), Csr: csr}
	case 0b110:
		return DecodedInst{Kind: InstCsrrsi, Rd: rd(x), Rs1: rs1(x), Csr: csr}
	case 0b111:
		return DecodedInst{Kind: InstCsrrci, Rd: rd(x), Rs1: rs1(x), Csr: csr}
	default:
		return DecodedInst{Kind: InstUnknown}
	}
}
