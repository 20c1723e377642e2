// Package mirtext loads MIR modules from TOML documents whose instruction
// and terminator lines use the printer's syntax, so dumps round-trip.
package mirtext

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"boxelab/internal/mir"
	"boxelab/internal/source"
	"boxelab/internal/types"
)

// Unit is a loaded module together with the context passes run under.
type Unit struct {
	Path    string
	Module  *mir.Module
	Context *mir.Context
}

type document struct {
	Lang    langConfig     `toml:"lang"`
	Structs []structConfig `toml:"struct"`
	Funcs   []funcConfig   `toml:"fn"`
}

type langConfig struct {
	OwnedBox bool `toml:"owned_box"`
}

type structConfig struct {
	Name   string   `toml:"name"`
	Fields []string `toml:"fields"`
}

type funcConfig struct {
	Name   string        `toml:"name"`
	Result string        `toml:"result"`
	Entry  int           `toml:"entry"`
	Span   []int         `toml:"span"`
	Locals []localConfig `toml:"locals"`
	Debug  []debugConfig `toml:"debug"`
	Blocks []blockConfig `toml:"block"`
}

type localConfig struct {
	Name  string   `toml:"name"`
	Type  string   `toml:"type"`
	Flags []string `toml:"flags"`
	Span  []int    `toml:"span"`
}

type debugConfig struct {
	Name  string `toml:"name"`
	Place string `toml:"place"`
	Const string `toml:"const"`
	Span  []int  `toml:"span"`
}

type blockConfig struct {
	Instrs []string `toml:"instrs"`
	Term   string   `toml:"term"`
}

var localFlagNames = map[string]mir.LocalFlags{
	"copy": mir.LocalFlagCopy,
	"mut":  mir.LocalFlagMut,
	"arg":  mir.LocalFlagArg,
	"temp": mir.LocalFlagTemp,
}

// LoadFile reads and decodes the module at path.
func LoadFile(path string) (*Unit, error) {
	var doc document
	meta, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return build(path, &doc, meta)
}

// Decode builds a unit from TOML text; name is used in error messages.
func Decode(name string, data []byte) (*Unit, error) {
	var doc document
	meta, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", name, err)
	}
	return build(name, &doc, meta)
}

// ReadFile returns the raw bytes of path together with the decoded unit, for
// callers that key caches on the input text.
func ReadFile(path string) ([]byte, *Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	u, err := Decode(path, data)
	if err != nil {
		return nil, nil, err
	}
	return data, u, nil
}

func build(name string, doc *document, meta toml.MetaData) (*Unit, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", name, strings.Join(keys, ", "))
	}

	typesIn := types.NewInterner()
	if err := declareStructs(typesIn, doc.Structs); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	mod := &mir.Module{Funcs: make(map[mir.FuncID]*mir.Func, len(doc.Funcs))}
	seen := make(map[string]bool, len(doc.Funcs))
	var errs []error
	for i := range doc.Funcs {
		fc := &doc.Funcs[i]
		if strings.TrimSpace(fc.Name) == "" {
			errs = append(errs, fmt.Errorf("%s: fn #%d: missing name", name, i))
			continue
		}
		if seen[fc.Name] {
			errs = append(errs, fmt.Errorf("%s: fn %s: defined twice", name, fc.Name))
			continue
		}
		seen[fc.Name] = true

		id, err := safecast.Conv[int32](i)
		if err != nil {
			return nil, fmt.Errorf("%s: too many functions: %w", name, err)
		}
		f, err := buildFunc(typesIn, mir.FuncID(id), fc)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: fn %s: %w", name, fc.Name, err))
			continue
		}
		mod.Funcs[f.ID] = f
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	lang := mir.LangItems{OwnedBox: doc.Lang.OwnedBox}
	if !meta.IsDefined("lang", "owned_box") {
		lang.OwnedBox = typesIn.HasBox()
	}
	return &Unit{
		Path:    name,
		Module:  mod,
		Context: mir.NewContext(typesIn, lang),
	}, nil
}

// declareStructs registers every struct name before resolving fields so
// structs may refer to each other in any order.
func declareStructs(typesIn *types.Interner, structs []structConfig) error {
	ids := make([]types.TypeID, len(structs))
	for i, sc := range structs {
		if strings.TrimSpace(sc.Name) == "" {
			return fmt.Errorf("struct #%d: missing name", i)
		}
		if _, dup := typesIn.StructByName(sc.Name); dup {
			return fmt.Errorf("struct %s: defined twice", sc.Name)
		}
		ids[i] = typesIn.RegisterStruct(sc.Name, source.Span{})
	}
	for i, sc := range structs {
		fields := make([]types.StructField, 0, len(sc.Fields))
		for j, raw := range sc.Fields {
			fieldName, typeText := fmt.Sprintf("#%d", j), raw
			if before, after, ok := strings.Cut(raw, ":"); ok {
				fieldName, typeText = strings.TrimSpace(before), after
			}
			ty, err := ParseType(typesIn, typeText)
			if err != nil {
				return fmt.Errorf("struct %s: field %d: %w", sc.Name, j, err)
			}
			fields = append(fields, types.StructField{Name: fieldName, Type: ty})
		}
		typesIn.SetStructFields(ids[i], fields)
	}
	return nil
}

func buildFunc(typesIn *types.Interner, id mir.FuncID, fc *funcConfig) (*mir.Func, error) {
	file := funcFile(id)
	f := &mir.Func{ID: id, Name: fc.Name, Result: typesIn.Builtins().Unit}

	var err error
	if f.Span, err = parseSpan(file, fc.Span); err != nil {
		return nil, err
	}
	if fc.Result != "" {
		if f.Result, err = ParseType(typesIn, fc.Result); err != nil {
			return nil, fmt.Errorf("result: %w", err)
		}
	}

	f.Locals = make([]mir.Local, 0, len(fc.Locals))
	for i, lc := range fc.Locals {
		local, err := buildLocal(typesIn, file, lc)
		if err != nil {
			return nil, fmt.Errorf("local _%d: %w", i, err)
		}
		f.Locals = append(f.Locals, local)
	}

	f.DebugInfo = make([]mir.VarDebugInfo, 0, len(fc.Debug))
	for _, dc := range fc.Debug {
		di, err := buildDebugInfo(typesIn, f.Locals, file, dc)
		if err != nil {
			return nil, fmt.Errorf("debug %s: %w", dc.Name, err)
		}
		f.DebugInfo = append(f.DebugInfo, di)
	}
	if len(f.DebugInfo) == 0 {
		f.DebugInfo = nil
	}

	if len(fc.Blocks) == 0 {
		return nil, errors.New("no blocks")
	}
	f.Blocks = make([]mir.Block, len(fc.Blocks))
	for i, bc := range fc.Blocks {
		bb := &f.Blocks[i]
		bb.ID = mir.BlockID(i) //nolint:gosec // G115: bounded by block count checked below
		for j, line := range bc.Instrs {
			ins, err := ParseInstr(typesIn, f.Locals, line)
			if err != nil {
				return nil, fmt.Errorf("bb%d[%d]: %q: %w", i, j, line, err)
			}
			bb.Instrs = append(bb.Instrs, ins)
		}
		if strings.TrimSpace(bc.Term) == "" {
			return nil, fmt.Errorf("bb%d: missing term", i)
		}
		if bb.Term, err = ParseTerm(typesIn, f.Locals, bc.Term); err != nil {
			return nil, fmt.Errorf("bb%d: term %q: %w", i, bc.Term, err)
		}
	}
	if _, err := safecast.Conv[int32](len(f.Blocks)); err != nil {
		return nil, fmt.Errorf("too many blocks: %w", err)
	}
	entry, err := safecast.Conv[int32](fc.Entry)
	if err != nil {
		return nil, fmt.Errorf("entry: %w", err)
	}
	f.Entry = mir.BlockID(entry)
	return f, nil
}

func buildLocal(typesIn *types.Interner, file source.FileID, lc localConfig) (mir.Local, error) {
	if strings.TrimSpace(lc.Type) == "" {
		return mir.Local{}, errors.New("missing type")
	}
	ty, err := ParseType(typesIn, lc.Type)
	if err != nil {
		return mir.Local{}, err
	}
	local := mir.Local{Type: ty, Name: lc.Name}
	for _, name := range lc.Flags {
		flag, ok := localFlagNames[name]
		if !ok {
			return mir.Local{}, fmt.Errorf("unknown flag %q", name)
		}
		local.Flags |= flag
	}
	if local.Span, err = parseSpan(file, lc.Span); err != nil {
		return mir.Local{}, err
	}
	return local, nil
}

func buildDebugInfo(typesIn *types.Interner, locals []mir.Local, file source.FileID, dc debugConfig) (mir.VarDebugInfo, error) {
	di := mir.VarDebugInfo{Name: dc.Name}
	var err error
	if di.Span, err = parseSpan(file, dc.Span); err != nil {
		return mir.VarDebugInfo{}, err
	}
	switch {
	case dc.Place != "" && dc.Const != "":
		return mir.VarDebugInfo{}, errors.New("both place and const given")
	case dc.Place != "":
		di.Kind = mir.DebugInfoPlace
		di.Place, err = ParsePlace(typesIn, locals, dc.Place)
	case dc.Const != "":
		di.Kind = mir.DebugInfoConst
		di.Const, err = ParseConst(typesIn, dc.Const)
	default:
		return mir.VarDebugInfo{}, errors.New("needs place or const")
	}
	if err != nil {
		return mir.VarDebugInfo{}, err
	}
	return di, nil
}

// funcFile gives each function its own span file so spans of different
// functions never compare equal.
func funcFile(id mir.FuncID) source.FileID {
	return source.FileID(id) + 1 //nolint:gosec // G115: ids are non-negative
}

func parseSpan(file source.FileID, bounds []int) (source.Span, error) {
	if len(bounds) == 0 {
		return source.Span{}, nil
	}
	if len(bounds) != 2 {
		return source.Span{}, fmt.Errorf("span must be [start, end], got %d values", len(bounds))
	}
	start, err := safecast.Conv[uint32](bounds[0])
	if err != nil {
		return source.Span{}, fmt.Errorf("span start: %w", err)
	}
	end, err := safecast.Conv[uint32](bounds[1])
	if err != nil {
		return source.Span{}, fmt.Errorf("span end: %w", err)
	}
	if end < start {
		return source.Span{}, fmt.Errorf("span end %d before start %d", end, start)
	}
	return source.Span{File: file, Start: start, End: end}, nil
}
