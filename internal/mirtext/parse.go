package mirtext

import (
	"fmt"
	"strconv"
	"strings"

	"boxelab/internal/mir"
	"boxelab/internal/types"
)

// noFieldIdx marks a named field projection whose index is not resolved yet.
const noFieldIdx = -1

type parser struct {
	toks   []token
	pos    int
	types  *types.Interner
	locals []mir.Local
}

func newParser(line string, typesIn *types.Interner, locals []mir.Local) (*parser, error) {
	toks, err := lex(line)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks, types: typesIn, locals: locals}, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return fmt.Errorf("col %d: %s", tok.col, fmt.Sprintf(format, args...))
}

func (p *parser) isPunct(s string) bool {
	tok := p.peek()
	return tok.kind == tokPunct && tok.text == s
}

func (p *parser) acceptPunct(s string) bool {
	if p.isPunct(s) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectPunct(s string) error {
	if p.acceptPunct(s) {
		return nil
	}
	return p.errorf(p.peek(), "expected %q, found %s", s, p.peek())
}

func (p *parser) isKeyword(s string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && tok.text == s
}

func (p *parser) acceptKeyword(s string) bool {
	if p.isKeyword(s) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectKeyword(s string) error {
	if p.acceptKeyword(s) {
		return nil
	}
	return p.errorf(p.peek(), "expected %q, found %s", s, p.peek())
}

func (p *parser) expectEOF() error {
	if tok := p.peek(); tok.kind != tokEOF {
		return p.errorf(tok, "unexpected %s", tok)
	}
	return nil
}

func (p *parser) expectIdent() (token, error) {
	tok := p.next()
	if tok.kind != tokIdent {
		return tok, p.errorf(tok, "expected identifier, found %s", tok)
	}
	return tok, nil
}

func (p *parser) expectInt() (token, error) {
	tok := p.next()
	if tok.kind != tokInt {
		return tok, p.errorf(tok, "expected integer, found %s", tok)
	}
	return tok, nil
}

// numbered parses identifiers of the form <prefix><digits>, such as _3 or bb7.
func (p *parser) numbered(prefix, what string) (int32, error) {
	tok := p.next()
	digits, ok := strings.CutPrefix(tok.text, prefix)
	if tok.kind != tokIdent || !ok || digits == "" {
		return 0, p.errorf(tok, "expected %s, found %s", what, tok)
	}
	n, err := strconv.ParseInt(digits, 10, 32)
	if err != nil {
		return 0, p.errorf(tok, "bad %s %q: %v", what, tok.text, err)
	}
	return int32(n), nil
}

func (p *parser) local() (mir.LocalID, error) {
	n, err := p.numbered("_", "local")
	return mir.LocalID(n), err
}

func (p *parser) block() (mir.BlockID, error) {
	n, err := p.numbered("bb", "block")
	return mir.BlockID(n), err
}

// Types ----------------------------------------------------------------------

var scalarTypes = map[string]types.Type{
	"int8":    types.MakeInt(types.Width8),
	"int16":   types.MakeInt(types.Width16),
	"int32":   types.MakeInt(types.Width32),
	"int64":   types.MakeInt(types.Width64),
	"uint8":   types.MakeUint(types.Width8),
	"uint16":  types.MakeUint(types.Width16),
	"uint32":  types.MakeUint(types.Width32),
	"uint64":  types.MakeUint(types.Width64),
	"float32": types.MakeFloat(types.Width32),
	"float64": types.MakeFloat(types.Width64),
	"int":     types.MakeInt(types.WidthAny),
	"uint":    types.MakeUint(types.WidthAny),
	"float":   types.MakeFloat(types.WidthAny),
	"bool":    {Kind: types.KindBool},
	"string":  {Kind: types.KindString},
}

func (p *parser) parseType() (types.TypeID, error) {
	tok := p.next()
	switch {
	case tok.kind == tokPunct && tok.text == "(":
		if err := p.expectPunct(")"); err != nil {
			return types.NoTypeID, err
		}
		return p.types.Builtins().Unit, nil
	case tok.kind == tokPunct && tok.text == "*":
		elem, err := p.parseType()
		if err != nil {
			return types.NoTypeID, err
		}
		return p.types.PointerTo(elem), nil
	case tok.kind == tokPunct && tok.text == "&":
		mutable := p.acceptKeyword("mut")
		elem, err := p.parseType()
		if err != nil {
			return types.NoTypeID, err
		}
		return p.types.Intern(types.MakeReference(elem, mutable)), nil
	case tok.kind == tokPunct && tok.text == "[":
		elem, err := p.parseType()
		if err != nil {
			return types.NoTypeID, err
		}
		count := types.ArrayDynamicLength
		if p.acceptPunct(";") {
			n, err := p.expectInt()
			if err != nil {
				return types.NoTypeID, err
			}
			v, err := strconv.ParseUint(n.text, 10, 32)
			if err != nil || uint32(v) == types.ArrayDynamicLength {
				return types.NoTypeID, p.errorf(n, "bad array length %s", n.text)
			}
			count = uint32(v)
		}
		if err := p.expectPunct("]"); err != nil {
			return types.NoTypeID, err
		}
		return p.types.Intern(types.MakeArray(elem, count)), nil
	case tok.kind == tokIdent && tok.text == "box":
		if err := p.expectPunct("<"); err != nil {
			return types.NoTypeID, err
		}
		elem, err := p.parseType()
		if err != nil {
			return types.NoTypeID, err
		}
		if err := p.expectPunct(">"); err != nil {
			return types.NoTypeID, err
		}
		return p.types.Intern(types.MakeBox(elem)), nil
	case tok.kind == tokIdent:
		if t, ok := scalarTypes[tok.text]; ok {
			return p.types.Intern(t), nil
		}
		if id, ok := p.types.StructByName(tok.text); ok {
			return id, nil
		}
		return types.NoTypeID, p.errorf(tok, "unknown type %q", tok.text)
	default:
		return types.NoTypeID, p.errorf(tok, "expected type, found %s", tok)
	}
}

// Places ---------------------------------------------------------------------

func (p *parser) parsePlace() (mir.Place, error) {
	place, err := p.parsePlaceChain()
	if err != nil {
		return mir.Place{}, err
	}
	if err := p.resolveFieldNames(&place); err != nil {
		return mir.Place{}, err
	}
	return place, nil
}

// parsePlaceChain reads `_N`, `(*P)` and the `.#i`, `.name`, `[_N]`
// suffixes the printer emits.
func (p *parser) parsePlaceChain() (mir.Place, error) {
	var place mir.Place
	if p.acceptPunct("(") {
		if err := p.expectPunct("*"); err != nil {
			return mir.Place{}, err
		}
		inner, err := p.parsePlaceChain()
		if err != nil {
			return mir.Place{}, err
		}
		if err := p.expectPunct(")"); err != nil {
			return mir.Place{}, err
		}
		place = inner
		place.Proj = append(place.Proj, mir.Deref())
	} else {
		id, err := p.local()
		if err != nil {
			return mir.Place{}, err
		}
		place = mir.LocalPlace(id)
	}

	for {
		switch {
		case p.acceptPunct("."):
			if p.acceptPunct("#") {
				n, err := p.expectInt()
				if err != nil {
					return mir.Place{}, err
				}
				idx, err := strconv.Atoi(n.text)
				if err != nil {
					return mir.Place{}, p.errorf(n, "bad field index %s", n.text)
				}
				place.Proj = append(place.Proj, mir.Field(idx, types.NoTypeID))
				continue
			}
			name, err := p.expectIdent()
			if err != nil {
				return mir.Place{}, err
			}
			place.Proj = append(place.Proj, mir.PlaceProj{
				Kind:      mir.PlaceProjField,
				FieldName: name.text,
				FieldIdx:  noFieldIdx,
			})
		case p.acceptPunct("["):
			idx, err := p.local()
			if err != nil {
				return mir.Place{}, err
			}
			if err := p.expectPunct("]"); err != nil {
				return mir.Place{}, err
			}
			place.Proj = append(place.Proj, mir.Index(idx))
		default:
			return place, nil
		}
	}
}

// resolveFieldNames turns `.name` steps into field indices using the struct
// layout reached so far.
func (p *parser) resolveFieldNames(place *mir.Place) error {
	ty := types.NoTypeID
	if place.Local >= 0 && int(place.Local) < len(p.locals) {
		ty = p.locals[place.Local].Type
	}
	for i := range place.Proj {
		proj := &place.Proj[i]
		if proj.Kind == mir.PlaceProjField && proj.FieldIdx == noFieldIdx {
			idx := -1
			for j, field := range p.types.StructFields(ty) {
				if field.Name == proj.FieldName {
					idx = j
					break
				}
			}
			if idx < 0 {
				return fmt.Errorf("%s: no field %q", mir.FormatType(p.types, ty), proj.FieldName)
			}
			proj.FieldIdx = idx
		}
		ty = mir.ProjectionType(p.types, ty, *proj)
	}
	return nil
}

// Operands and rvalues -------------------------------------------------------

func (p *parser) parseConstLit() (mir.Const, error) {
	b := p.types.Builtins()
	tok := p.next()
	switch {
	case tok.kind == tokInt:
		v, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return mir.Const{}, p.errorf(tok, "bad integer %s", tok.text)
		}
		return mir.Const{Kind: mir.ConstInt, Type: b.Int, IntValue: v}, nil
	case tok.kind == tokIdent && (tok.text == "true" || tok.text == "false"):
		return mir.Const{Kind: mir.ConstBool, Type: b.Bool, BoolValue: tok.text == "true"}, nil
	case tok.kind == tokString:
		return mir.Const{Kind: mir.ConstString, Type: b.String, StringValue: tok.text}, nil
	case tok.kind == tokPunct && tok.text == "(":
		if err := p.expectPunct(")"); err != nil {
			return mir.Const{}, err
		}
		return mir.Const{Kind: mir.ConstUnit, Type: b.Unit}, nil
	default:
		return mir.Const{}, p.errorf(tok, "expected constant, found %s", tok)
	}
}

var placeOperandKinds = map[string]mir.OperandKind{
	"copy":        mir.OperandCopy,
	"move":        mir.OperandMove,
	"addr_of":     mir.OperandAddrOf,
	"addr_of_mut": mir.OperandAddrOfMut,
}

func (p *parser) parseOperand() (mir.Operand, error) {
	tok := p.next()
	if tok.kind == tokIdent && tok.text == "const" {
		c, err := p.parseConstLit()
		if err != nil {
			return mir.Operand{}, err
		}
		return mir.Operand{Kind: mir.OperandConst, Type: c.Type, Const: c}, nil
	}
	kind, ok := placeOperandKinds[tok.text]
	if tok.kind != tokIdent || !ok {
		return mir.Operand{}, p.errorf(tok, "expected operand, found %s", tok)
	}
	place, err := p.parsePlace()
	if err != nil {
		return mir.Operand{}, err
	}
	ty := mir.PlaceType(p.types, p.locals, place)
	if ty != types.NoTypeID && (kind == mir.OperandAddrOf || kind == mir.OperandAddrOfMut) {
		ty = p.types.Intern(types.MakeReference(ty, kind == mir.OperandAddrOfMut))
	}
	return mir.Operand{Kind: kind, Type: ty, Place: place}, nil
}

func (p *parser) parseOperandList(closer string) ([]mir.Operand, error) {
	var ops []mir.Operand
	if p.acceptPunct(closer) {
		return nil, nil
	}
	for {
		op, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		if p.acceptPunct(closer) {
			return ops, nil
		}
		if err := p.expectPunct(","); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseRValue() (mir.RValue, error) {
	tok := p.peek()
	if tok.kind != tokIdent {
		return mir.RValue{}, p.errorf(tok, "expected rvalue, found %s", tok)
	}
	// `copy (*_1)` is an operand over a deref place, not a call.
	_, isOperand := placeOperandKinds[tok.text]
	callLike := !isOperand && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == "("

	switch {
	case tok.text == "cast":
		p.next()
		op, err := p.parseOperand()
		if err != nil {
			return mir.RValue{}, err
		}
		if err := p.expectKeyword("to"); err != nil {
			return mir.RValue{}, err
		}
		target, err := p.parseType()
		if err != nil {
			return mir.RValue{}, err
		}
		return mir.RValue{Kind: mir.RValueCast, Cast: mir.CastOp{Value: op, TargetTy: target}}, nil

	case tok.text == "struct_lit":
		p.next()
		ty, err := p.parseType()
		if err != nil {
			return mir.RValue{}, err
		}
		if err := p.expectPunct("{"); err != nil {
			return mir.RValue{}, err
		}
		lit := mir.StructLit{TypeID: ty}
		for !p.acceptPunct("}") {
			if len(lit.Fields) > 0 {
				if err := p.expectPunct(","); err != nil {
					return mir.RValue{}, err
				}
			}
			name, err := p.expectIdent()
			if err != nil {
				return mir.RValue{}, err
			}
			if err := p.expectPunct("="); err != nil {
				return mir.RValue{}, err
			}
			op, err := p.parseOperand()
			if err != nil {
				return mir.RValue{}, err
			}
			lit.Fields = append(lit.Fields, mir.StructLitField{Name: name.text, Value: op})
		}
		return mir.RValue{Kind: mir.RValueStructLit, StructLit: lit}, nil

	case tok.text == "array_lit":
		p.next()
		if err := p.expectPunct("["); err != nil {
			return mir.RValue{}, err
		}
		elems, err := p.parseOperandList("]")
		if err != nil {
			return mir.RValue{}, err
		}
		return mir.RValue{Kind: mir.RValueArrayLit, ArrayLit: mir.ArrayLit{Elems: elems}}, nil

	case tok.text == "box":
		p.next()
		op, err := p.parseOperand()
		if err != nil {
			return mir.RValue{}, err
		}
		return mir.RValue{Kind: mir.RValueBox, Box: mir.BoxOp{Value: op}}, nil

	case callLike && (tok.text == "neg" || tok.text == "not"):
		p.next()
		p.next()
		op, err := p.parseOperand()
		if err != nil {
			return mir.RValue{}, err
		}
		if err := p.expectPunct(")"); err != nil {
			return mir.RValue{}, err
		}
		kind := mir.UnaryNeg
		if tok.text == "not" {
			kind = mir.UnaryNot
		}
		return mir.RValue{Kind: mir.RValueUnaryOp, Unary: mir.UnaryOp{Op: kind, Operand: op}}, nil

	case callLike:
		kind, ok := mir.ParseBinaryOp(tok.text)
		if !ok {
			return mir.RValue{}, p.errorf(tok, "unknown operator %q", tok.text)
		}
		p.next()
		p.next()
		ops, err := p.parseOperandList(")")
		if err != nil {
			return mir.RValue{}, err
		}
		if len(ops) != 2 {
			return mir.RValue{}, p.errorf(tok, "%s takes 2 operands, got %d", tok.text, len(ops))
		}
		return mir.RValue{Kind: mir.RValueBinaryOp, Binary: mir.BinaryOp{Op: kind, Left: ops[0], Right: ops[1]}}, nil
	}

	op, err := p.parseOperand()
	if err != nil {
		return mir.RValue{}, err
	}
	return mir.UseOf(op), nil
}

// Instructions and terminators -----------------------------------------------

func (p *parser) parseCall(ins *mir.Instr) error {
	callee, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.expectPunct("("); err != nil {
		return err
	}
	args, err := p.parseOperandList(")")
	if err != nil {
		return err
	}
	ins.Kind = mir.InstrCall
	ins.Call.Callee = callee.text
	ins.Call.Args = args
	return nil
}

func (p *parser) parseInstr() (mir.Instr, error) {
	switch {
	case p.acceptKeyword("storage_live"):
		id, err := p.local()
		return mir.StorageLive(id), err
	case p.acceptKeyword("storage_dead"):
		id, err := p.local()
		return mir.StorageDead(id), err
	case p.acceptKeyword("nop"):
		return mir.Instr{Kind: mir.InstrNop}, nil
	case p.acceptKeyword("drop"):
		place, err := p.parsePlace()
		return mir.Instr{Kind: mir.InstrDrop, Drop: mir.DropInstr{Place: place}}, err
	case p.acceptKeyword("call"):
		var ins mir.Instr
		err := p.parseCall(&ins)
		return ins, err
	}

	dst, err := p.parsePlace()
	if err != nil {
		return mir.Instr{}, err
	}
	if err := p.expectPunct("="); err != nil {
		return mir.Instr{}, err
	}
	if p.acceptKeyword("call") {
		ins := mir.Instr{Call: mir.CallInstr{HasDst: true, Dst: dst}}
		if err := p.parseCall(&ins); err != nil {
			return mir.Instr{}, err
		}
		return ins, nil
	}
	src, err := p.parseRValue()
	if err != nil {
		return mir.Instr{}, err
	}
	return mir.Assign(dst, src), nil
}

func (p *parser) parseTerm() (mir.Terminator, error) {
	tok, err := p.expectIdent()
	if err != nil {
		return mir.Terminator{}, err
	}
	switch tok.text {
	case "return":
		if p.peek().kind == tokEOF {
			return mir.Terminator{Kind: mir.TermReturn}, nil
		}
		op, err := p.parseOperand()
		if err != nil {
			return mir.Terminator{}, err
		}
		return mir.Terminator{Kind: mir.TermReturn, Return: mir.ReturnTerm{HasValue: true, Value: op}}, nil

	case "goto":
		target, err := p.block()
		if err != nil {
			return mir.Terminator{}, err
		}
		return mir.Terminator{Kind: mir.TermGoto, Goto: mir.GotoTerm{Target: target}}, nil

	case "if":
		cond, err := p.parseOperand()
		if err != nil {
			return mir.Terminator{}, err
		}
		if err := p.expectKeyword("then"); err != nil {
			return mir.Terminator{}, err
		}
		thenBB, err := p.block()
		if err != nil {
			return mir.Terminator{}, err
		}
		if err := p.expectKeyword("else"); err != nil {
			return mir.Terminator{}, err
		}
		elseBB, err := p.block()
		if err != nil {
			return mir.Terminator{}, err
		}
		return mir.Terminator{Kind: mir.TermIf, If: mir.IfTerm{Cond: cond, Then: thenBB, Else: elseBB}}, nil

	case "switch_tag":
		value, err := p.parseOperand()
		if err != nil {
			return mir.Terminator{}, err
		}
		if err := p.expectPunct("{"); err != nil {
			return mir.Terminator{}, err
		}
		sw := mir.SwitchTagTerm{Value: value, Default: mir.NoBlockID}
		for !p.acceptPunct("}") {
			tag, err := p.expectIdent()
			if err != nil {
				return mir.Terminator{}, err
			}
			if err := p.expectPunct("->"); err != nil {
				return mir.Terminator{}, err
			}
			target, err := p.block()
			if err != nil {
				return mir.Terminator{}, err
			}
			if err := p.expectPunct(";"); err != nil {
				return mir.Terminator{}, err
			}
			if tag.text == "default" {
				sw.Default = target
				continue
			}
			sw.Cases = append(sw.Cases, mir.SwitchTagCase{TagName: tag.text, Target: target})
		}
		if sw.Default == mir.NoBlockID {
			return mir.Terminator{}, p.errorf(tok, "switch_tag without default")
		}
		return mir.Terminator{Kind: mir.TermSwitchTag, SwitchTag: sw}, nil

	case "yield":
		value, err := p.parseOperand()
		if err != nil {
			return mir.Terminator{}, err
		}
		y := mir.YieldTerm{Value: value, ResumeArg: mir.Place{Local: mir.NoLocalID}, Drop: mir.NoBlockID}
		if p.acceptKeyword("into") {
			if y.ResumeArg, err = p.parsePlace(); err != nil {
				return mir.Terminator{}, err
			}
		}
		if err := p.expectKeyword("resume"); err != nil {
			return mir.Terminator{}, err
		}
		if y.Resume, err = p.block(); err != nil {
			return mir.Terminator{}, err
		}
		if p.acceptKeyword("drop") {
			if y.Drop, err = p.block(); err != nil {
				return mir.Terminator{}, err
			}
		}
		return mir.Terminator{Kind: mir.TermYield, Yield: y}, nil

	case "unreachable":
		return mir.Terminator{Kind: mir.TermUnreachable}, nil
	}
	return mir.Terminator{}, p.errorf(tok, "unknown terminator %q", tok.text)
}

// Entry points ---------------------------------------------------------------

func parseLine[T any](line string, typesIn *types.Interner, locals []mir.Local, parse func(*parser) (T, error)) (T, error) {
	var zero T
	p, err := newParser(line, typesIn, locals)
	if err != nil {
		return zero, err
	}
	v, err := parse(p)
	if err != nil {
		return zero, err
	}
	if err := p.expectEOF(); err != nil {
		return zero, err
	}
	return v, nil
}

// ParseType parses a type expression such as box<box<int32>>, *int32,
// &mut Foo or [int32; 4]. Struct names must already be registered.
func ParseType(typesIn *types.Interner, s string) (types.TypeID, error) {
	return parseLine(s, typesIn, nil, (*parser).parseType)
}

// ParsePlace parses a place against the given locals.
func ParsePlace(typesIn *types.Interner, locals []mir.Local, s string) (mir.Place, error) {
	return parseLine(s, typesIn, locals, (*parser).parsePlace)
}

// ParseConst parses a bare constant literal: 5, true, "s" or ().
func ParseConst(typesIn *types.Interner, s string) (mir.Const, error) {
	return parseLine(s, typesIn, nil, (*parser).parseConstLit)
}

// ParseInstr parses one instruction in printer syntax.
func ParseInstr(typesIn *types.Interner, locals []mir.Local, s string) (mir.Instr, error) {
	return parseLine(s, typesIn, locals, (*parser).parseInstr)
}

// ParseTerm parses one terminator in printer syntax.
func ParseTerm(typesIn *types.Interner, locals []mir.Local, s string) (mir.Terminator, error) {
	return parseLine(s, typesIn, locals, (*parser).parseTerm)
}
