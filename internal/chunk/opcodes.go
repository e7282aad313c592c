package chunk

// OpCode is a single bytecode instruction tag. One byte, per spec.md §6
// ("Bytecode format").
type OpCode byte

const (
	OpConstant     OpCode = iota // idx8, push constants[idx8]
	OpConstantLong               // idx24 little-endian, push constants[idx24]
	OpTrue
	OpFalse
	OpMeta
	OpPop
	OpGetLocal         // slot8
	OpSetLocal         // slot8
	OpGetGlobal        // idx8, push globals[constants[idx8]]
	OpGetGlobalLong    // idx24 little-endian
	OpDefineGlobal     // idx8
	OpDefineGlobalLong // idx24 little-endian
	OpSetGlobal        // idx8
	OpSetGlobalLong    // idx24 little-endian
	OpGetUpvalue       // slot8
	OpSetUpvalue       // slot8
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract // open question (c): dedicated subtract instead of negate+add
	OpMultiply
	OpDivide
	OpModulo
	OpPow
	OpNot
	OpNegate
	OpPrint
	OpJump         // off16 big-endian
	OpJumpIfFalse  // off16 big-endian, does not pop
	OpLoop         // off16 big-endian, backward
	OpCall         // argc8
	OpClosure      // constIdx8, then one (isLocal8, index8) pair per upvalue
	OpClosureLong  // constIdx24 little-endian, then one (isLocal8, index8) pair per upvalue
	OpCloseUpvalue
	OpReturn
)

func (op OpCode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "OP_UNKNOWN"
}

var opNames = [...]string{
	"OP_CONSTANT", "OP_CONSTANT_LONG", "OP_TRUE", "OP_FALSE", "OP_META",
	"OP_POP", "OP_GET_LOCAL", "OP_SET_LOCAL", "OP_GET_GLOBAL",
	"OP_GET_GLOBAL_LONG", "OP_DEFINE_GLOBAL", "OP_DEFINE_GLOBAL_LONG",
	"OP_SET_GLOBAL", "OP_SET_GLOBAL_LONG", "OP_GET_UPVALUE", "OP_SET_UPVALUE",
	"OP_EQUAL", "OP_GREATER", "OP_LESS", "OP_ADD", "OP_SUBTRACT",
	"OP_MULTIPLY", "OP_DIVIDE", "OP_MODULO", "OP_POW", "OP_NOT", "OP_NEGATE",
	"OP_PRINT", "OP_JUMP", "OP_JUMP_IF_FALSE", "OP_LOOP", "OP_CALL",
	"OP_CLOSURE", "OP_CLOSURE_LONG", "OP_CLOSE_UPVALUE", "OP_RETURN",
}
