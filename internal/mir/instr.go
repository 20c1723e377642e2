package mir

import (
	"boxelab/internal/types"
)

// InstrKind enumerates instruction kinds in MIR.
type InstrKind uint8

const (
	// InstrAssign represents an assignment instruction.
	InstrAssign InstrKind = iota
	// InstrCall represents a call instruction.
	InstrCall
	// InstrDrop represents a drop instruction.
	InstrDrop
	// InstrStorageLive marks the start of a local's storage.
	InstrStorageLive
	// InstrStorageDead marks the end of a local's storage.
	InstrStorageDead
	// InstrNop represents a no-op instruction.
	InstrNop
)

// Instr represents a MIR instruction.
type Instr struct {
	Kind InstrKind

	Assign      AssignInstr
	Call        CallInstr
	Drop        DropInstr
	StorageLive StorageInstr
	StorageDead StorageInstr
}

// AssignInstr represents an assignment instruction.
type AssignInstr struct {
	Dst Place
	Src RValue
}

// CallInstr represents a function call instruction.
type CallInstr struct {
	HasDst bool
	Dst    Place
	Callee string
	Args   []Operand
}

// DropInstr represents a drop instruction.
type DropInstr struct {
	Place Place
}

// StorageInstr names the local a storage marker applies to.
type StorageInstr struct {
	Local LocalID
}

// StorageLive builds a storage_live marker.
func StorageLive(id LocalID) Instr {
	return Instr{Kind: InstrStorageLive, StorageLive: StorageInstr{Local: id}}
}

// StorageDead builds a storage_dead marker.
func StorageDead(id LocalID) Instr {
	return Instr{Kind: InstrStorageDead, StorageDead: StorageInstr{Local: id}}
}

// Assign builds dst = src.
func Assign(dst Place, src RValue) Instr {
	return Instr{Kind: InstrAssign, Assign: AssignInstr{Dst: dst, Src: src}}
}

// OperandKind distinguishes operand types.
type OperandKind uint8

const (
	// OperandConst represents a constant operand.
	OperandConst OperandKind = iota
	// OperandCopy represents a copy operand.
	OperandCopy
	// OperandMove represents a move operand.
	OperandMove
	// OperandAddrOf represents an address-of operand.
	OperandAddrOf
	// OperandAddrOfMut represents a mutable address-of operand.
	OperandAddrOfMut
)

// Operand represents a MIR operand.
type Operand struct {
	Kind OperandKind
	Type types.TypeID

	Const Const
	Place Place
}

// HasPlace reports whether the operand reads or borrows a place.
func (op *Operand) HasPlace() bool {
	return op != nil && op.Kind != OperandConst
}

// ConstKind distinguishes constant kinds.
type ConstKind uint8

const (
	// ConstInt represents an integer constant.
	ConstInt ConstKind = iota
	// ConstBool represents a boolean constant.
	ConstBool
	// ConstString represents a string constant.
	ConstString
	// ConstUnit represents the unit value.
	ConstUnit
)

// Const represents a MIR constant.
type Const struct {
	Kind ConstKind
	Type types.TypeID

	IntValue    int64
	BoolValue   bool
	StringValue string
}

// RValueKind distinguishes right-hand value kinds.
type RValueKind uint8

const (
	// RValueUse represents a use of a value.
	RValueUse RValueKind = iota
	// RValueUnaryOp represents a unary operation.
	RValueUnaryOp
	// RValueBinaryOp represents a binary operation.
	RValueBinaryOp
	// RValueCast represents a cast operation.
	RValueCast
	// RValueStructLit represents a struct literal.
	RValueStructLit
	// RValueArrayLit represents an array literal.
	RValueArrayLit
	// RValueBox allocates a box around its operand.
	RValueBox
)

// RValue represents a right-hand value in MIR.
type RValue struct {
	Kind RValueKind

	Use       Operand
	Unary     UnaryOp
	Binary    BinaryOp
	Cast      CastOp
	StructLit StructLit
	ArrayLit  ArrayLit
	Box       BoxOp
}

// UseOf wraps an operand into a use rvalue.
func UseOf(op Operand) RValue {
	return RValue{Kind: RValueUse, Use: op}
}

// UnaryOpKind enumerates unary operators.
type UnaryOpKind uint8

const (
	UnaryNeg UnaryOpKind = iota
	UnaryNot
)

func (k UnaryOpKind) String() string {
	switch k {
	case UnaryNeg:
		return "neg"
	case UnaryNot:
		return "not"
	default:
		return "?"
	}
}

// BinaryOpKind enumerates binary operators.
type BinaryOpKind uint8

const (
	BinaryAdd BinaryOpKind = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryEq
	BinaryNe
	BinaryLt
	BinaryLe
	BinaryGt
	BinaryGe
)

var binaryOpNames = [...]string{
	BinaryAdd: "add",
	BinarySub: "sub",
	BinaryMul: "mul",
	BinaryDiv: "div",
	BinaryEq:  "eq",
	BinaryNe:  "ne",
	BinaryLt:  "lt",
	BinaryLe:  "le",
	BinaryGt:  "gt",
	BinaryGe:  "ge",
}

func (k BinaryOpKind) String() string {
	if int(k) < len(binaryOpNames) {
		return binaryOpNames[k]
	}
	return "?"
}

// ParseBinaryOp is the inverse of BinaryOpKind.String.
func ParseBinaryOp(s string) (BinaryOpKind, bool) {
	for i, name := range binaryOpNames {
		if name == s {
			return BinaryOpKind(i), true //nolint:gosec // G115: bounded by table size
		}
	}
	return 0, false
}

// UnaryOp represents a unary operation.
type UnaryOp struct {
	Op      UnaryOpKind
	Operand Operand
}

// BinaryOp represents a binary operation.
type BinaryOp struct {
	Op    BinaryOpKind
	Left  Operand
	Right Operand
}

// CastOp represents a cast operation.
type CastOp struct {
	Value    Operand
	TargetTy types.TypeID
}

// StructLitField represents a struct literal field.
type StructLitField struct {
	Name  string
	Value Operand
}

// StructLit represents a struct literal.
type StructLit struct {
	TypeID types.TypeID
	Fields []StructLitField
}

// ArrayLit represents an array literal.
type ArrayLit struct {
	Elems []Operand
}

// BoxOp moves Value into a fresh heap allocation of type box<T>.
type BoxOp struct {
	Value Operand
}
