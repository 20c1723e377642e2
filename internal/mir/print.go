package mir

import (
	"fmt"
	"io"
	"strings"

	"boxelab/internal/types"
)

// DumpOptions configures MIR dumping.
type DumpOptions struct {
	// Spans prints each local's source span.
	Spans bool
}

// DumpModule writes a human-readable representation of a MIR module.
func DumpModule(w io.Writer, m *Module, typesIn *types.Interner, opts DumpOptions) error {
	if w == nil || m == nil {
		return nil
	}
	funcs := m.SortedFuncs()
	if _, err := fmt.Fprintf(w, "funcs=%d\n", len(funcs)); err != nil {
		return err
	}
	for _, f := range funcs {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if err := DumpFunc(w, f, typesIn, opts); err != nil {
			return err
		}
	}
	return nil
}

// DumpFunc writes one function. Instruction and terminator lines use the
// same syntax the mirtext loader accepts.
func DumpFunc(w io.Writer, f *Func, typesIn *types.Interner, opts DumpOptions) error {
	if w == nil || f == nil {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "fn %s:\n", f.Name)

	sb.WriteString("  locals:\n")
	for i := range f.Locals {
		l := f.Locals[i]
		fmt.Fprintf(&sb, "    _%d: %s", i, FormatType(typesIn, l.Type))
		if flags := formatLocalFlags(l.Flags); flags != "" {
			sb.WriteString(" " + flags)
		}
		if l.Name != "" {
			sb.WriteString(" name=" + l.Name)
		}
		if opts.Spans && !l.Span.Empty() {
			sb.WriteString(" span=" + l.Span.String())
		}
		sb.WriteByte('\n')
	}

	if len(f.DebugInfo) > 0 {
		sb.WriteString("  debug:\n")
		for i := range f.DebugInfo {
			di := &f.DebugInfo[i]
			switch di.Kind {
			case DebugInfoConst:
				fmt.Fprintf(&sb, "    %s => %s\n", di.Name, formatConst(&di.Const))
			default:
				fmt.Fprintf(&sb, "    %s => %s\n", di.Name, FormatPlace(di.Place))
			}
		}
	}

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		fmt.Fprintf(&sb, "  bb%d:\n", bb.ID)
		for j := range bb.Instrs {
			fmt.Fprintf(&sb, "    %s\n", FormatInstr(typesIn, &bb.Instrs[j]))
		}
		fmt.Fprintf(&sb, "    %s\n", FormatTerm(&bb.Term))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FuncString renders f the way DumpFunc does.
func FuncString(f *Func, typesIn *types.Interner) string {
	var sb strings.Builder
	_ = DumpFunc(&sb, f, typesIn, DumpOptions{})
	return sb.String()
}

func formatLocalFlags(f LocalFlags) string {
	if f == 0 {
		return ""
	}
	var parts []string
	if f&LocalFlagCopy != 0 {
		parts = append(parts, "copy")
	}
	if f&LocalFlagMut != 0 {
		parts = append(parts, "mut")
	}
	if f&LocalFlagArg != 0 {
		parts = append(parts, "arg")
	}
	if f&LocalFlagTemp != 0 {
		parts = append(parts, "temp")
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// FormatInstr renders a single instruction.
func FormatInstr(typesIn *types.Interner, ins *Instr) string {
	if ins == nil {
		return "<instr?>"
	}
	switch ins.Kind {
	case InstrAssign:
		return fmt.Sprintf("%s = %s", FormatPlace(ins.Assign.Dst), formatRValue(typesIn, &ins.Assign.Src))
	case InstrCall:
		dst := ""
		if ins.Call.HasDst {
			dst = FormatPlace(ins.Call.Dst) + " = "
		}
		return fmt.Sprintf("%scall %s(%s)", dst, ins.Call.Callee, formatOperands(ins.Call.Args))
	case InstrDrop:
		return fmt.Sprintf("drop %s", FormatPlace(ins.Drop.Place))
	case InstrStorageLive:
		return fmt.Sprintf("storage_live _%d", ins.StorageLive.Local)
	case InstrStorageDead:
		return fmt.Sprintf("storage_dead _%d", ins.StorageDead.Local)
	case InstrNop:
		return "nop"
	default:
		return "<instr?>"
	}
}

// FormatTerm renders a terminator.
func FormatTerm(term *Terminator) string {
	if term == nil {
		return "unreachable"
	}
	switch term.Kind {
	case TermNone:
		return "unreachable"
	case TermReturn:
		if !term.Return.HasValue {
			return "return"
		}
		return fmt.Sprintf("return %s", formatOperand(&term.Return.Value))
	case TermGoto:
		return fmt.Sprintf("goto bb%d", term.Goto.Target)
	case TermIf:
		return fmt.Sprintf("if %s then bb%d else bb%d", formatOperand(&term.If.Cond), term.If.Then, term.If.Else)
	case TermSwitchTag:
		out := fmt.Sprintf("switch_tag %s {", formatOperand(&term.SwitchTag.Value))
		for _, c := range term.SwitchTag.Cases {
			out += fmt.Sprintf(" %s -> bb%d;", c.TagName, c.Target)
		}
		out += fmt.Sprintf(" default -> bb%d; }", term.SwitchTag.Default)
		return out
	case TermYield:
		out := "yield " + formatOperand(&term.Yield.Value)
		if term.Yield.ResumeArg.IsValid() {
			out += " into " + FormatPlace(term.Yield.ResumeArg)
		}
		out += fmt.Sprintf(" resume bb%d", term.Yield.Resume)
		if term.Yield.Drop != NoBlockID {
			out += fmt.Sprintf(" drop bb%d", term.Yield.Drop)
		}
		return out
	case TermUnreachable:
		return "unreachable"
	default:
		return "<term?>"
	}
}

// FormatPlace renders a place: derefs wrap what precedes them in
// parentheses, fields and indices are suffixes.
func FormatPlace(p Place) string {
	if !p.IsValid() {
		return "_?"
	}
	out := fmt.Sprintf("_%d", p.Local)
	for _, proj := range p.Proj {
		switch proj.Kind {
		case PlaceProjDeref:
			out = fmt.Sprintf("(*%s)", out)
		case PlaceProjField:
			if proj.FieldIdx >= 0 {
				out += fmt.Sprintf(".#%d", proj.FieldIdx)
				continue
			}
			if proj.FieldName != "" {
				out += "." + proj.FieldName
			} else {
				out += ".<?>"
			}
		case PlaceProjIndex:
			if proj.IndexLocal != NoLocalID {
				out += fmt.Sprintf("[_%d]", proj.IndexLocal)
			} else {
				out += "[?]"
			}
		default:
			out += ".<?>"
		}
	}
	return out
}

func formatOperands(ops []Operand) string {
	if len(ops) == 0 {
		return ""
	}
	parts := make([]string, len(ops))
	for i := range ops {
		parts[i] = formatOperand(&ops[i])
	}
	return strings.Join(parts, ", ")
}

func formatOperand(op *Operand) string {
	if op == nil {
		return "<op?>"
	}
	switch op.Kind {
	case OperandConst:
		return formatConst(&op.Const)
	case OperandCopy:
		return fmt.Sprintf("copy %s", FormatPlace(op.Place))
	case OperandMove:
		return fmt.Sprintf("move %s", FormatPlace(op.Place))
	case OperandAddrOf:
		return fmt.Sprintf("addr_of %s", FormatPlace(op.Place))
	case OperandAddrOfMut:
		return fmt.Sprintf("addr_of_mut %s", FormatPlace(op.Place))
	default:
		return "<op?>"
	}
}

func formatConst(c *Const) string {
	if c == nil {
		return "const ?"
	}
	switch c.Kind {
	case ConstInt:
		return fmt.Sprintf("const %d", c.IntValue)
	case ConstBool:
		if c.BoolValue {
			return "const true"
		}
		return "const false"
	case ConstString:
		return fmt.Sprintf("const %q", c.StringValue)
	case ConstUnit:
		return "const ()"
	default:
		return "const ?"
	}
}

func formatRValue(typesIn *types.Interner, rv *RValue) string {
	if rv == nil {
		return "<rvalue?>"
	}
	switch rv.Kind {
	case RValueUse:
		return formatOperand(&rv.Use)
	case RValueUnaryOp:
		return fmt.Sprintf("%s(%s)", rv.Unary.Op, formatOperand(&rv.Unary.Operand))
	case RValueBinaryOp:
		return fmt.Sprintf("%s(%s, %s)", rv.Binary.Op, formatOperand(&rv.Binary.Left), formatOperand(&rv.Binary.Right))
	case RValueCast:
		return fmt.Sprintf("cast %s to %s", formatOperand(&rv.Cast.Value), FormatType(typesIn, rv.Cast.TargetTy))
	case RValueStructLit:
		out := fmt.Sprintf("struct_lit %s {", FormatType(typesIn, rv.StructLit.TypeID))
		for i := range rv.StructLit.Fields {
			if i > 0 {
				out += ", "
			}
			f := &rv.StructLit.Fields[i]
			out += fmt.Sprintf("%s=%s", f.Name, formatOperand(&f.Value))
		}
		out += "}"
		return out
	case RValueArrayLit:
		return "array_lit [" + formatOperands(rv.ArrayLit.Elems) + "]"
	case RValueBox:
		return "box " + formatOperand(&rv.Box.Value)
	default:
		return "<rvalue?>"
	}
}

// FormatType renders a type in the syntax the mirtext loader parses.
func FormatType(typesIn *types.Interner, id types.TypeID) string {
	if id == types.NoTypeID {
		return "?"
	}
	if typesIn == nil {
		return fmt.Sprintf("type#%d", id)
	}
	t, ok := typesIn.Lookup(id)
	if !ok {
		return fmt.Sprintf("type#%d", id)
	}
	switch t.Kind {
	case types.KindUnit:
		return "()"
	case types.KindBool:
		return "bool"
	case types.KindString:
		return "string"
	case types.KindInt:
		return formatIntType(t.Width, true)
	case types.KindUint:
		return formatIntType(t.Width, false)
	case types.KindFloat:
		return formatFloatType(t.Width)
	case types.KindPointer:
		return fmt.Sprintf("*%s", FormatType(typesIn, t.Elem))
	case types.KindReference:
		if t.Mutable {
			return fmt.Sprintf("&mut %s", FormatType(typesIn, t.Elem))
		}
		return fmt.Sprintf("&%s", FormatType(typesIn, t.Elem))
	case types.KindBox:
		return fmt.Sprintf("box<%s>", FormatType(typesIn, t.Elem))
	case types.KindArray:
		if t.Count == types.ArrayDynamicLength {
			return fmt.Sprintf("[%s]", FormatType(typesIn, t.Elem))
		}
		return fmt.Sprintf("[%s; %d]", FormatType(typesIn, t.Elem), t.Count)
	case types.KindStruct:
		if info, ok := typesIn.StructInfo(id); ok && info.Name != "" {
			return info.Name
		}
		return fmt.Sprintf("type#%d", id)
	default:
		return fmt.Sprintf("type#%d", id)
	}
}

func formatIntType(width types.Width, signed bool) string {
	prefix := "int"
	if !signed {
		prefix = "uint"
	}
	switch width {
	case types.Width8:
		return prefix + "8"
	case types.Width16:
		return prefix + "16"
	case types.Width32:
		return prefix + "32"
	case types.Width64:
		return prefix + "64"
	default:
		return prefix
	}
}

func formatFloatType(width types.Width) string {
	switch width {
	case types.Width32:
		return "float32"
	case types.Width64:
		return "float64"
	default:
		return "float"
	}
}
