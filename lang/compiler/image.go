package compiler

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/lumen-lang/lumen/lang/token"
)

// This file implements the binary program image format: the artifact a
// host embeds, ships or caches instead of recompiling from source every
// run. Layout, in order:
//
//	magic (4 bytes) | version (u16) |
//	#constants (u32) | constant kind tags (1 byte each) |
//	#numbers (u32) | numbers (f64 each) |
//	#strings (u32) | (u32 length + UTF-8 bytes) each |
//	#names (u32) | (u32 length + UTF-8 bytes) each |
//	#functions (u32) | function table |
//	bytecode length (u32) | bytecode bytes |
//	debug section length (u32) | debug bytes
//
// Function table entry: entryOffset (u32, into the concatenated bytecode
// stream), codeLen (u32), numArgs/numLocals/numUpvalues/maxStack (u16
// each), hasVarArgs/isSequence (1 byte, bit 0/bit 1), debugName (u32
// length + UTF-8 bytes), cells (u16 count + one u16 local index each),
// handlers (u16 count + four u32 fields each: PC0, PC1, CatchPC,
// FinallyPC). maxStack/cells/handlers are load-bearing at run time (Pool
// buffer sizing, cell spilling, exception unwinding), so they live in the
// function table rather than the debug section below, which is the only
// part of the image a program can run correctly without.
//
// One deliberate deviation from a literal "two separate constant pools"
// reading: the live Program.Constants is a single slice mixing int64,
// float64 and string in declaration order, and the CONSTANT opcode
// addresses it by a single index into that order. Splitting into a numbers
// pool and a strings pool on the wire, the way the spec's ProgramImage
// describes it, would require remapping every CONSTANT operand at decode
// time to a different index space. Instead the kind-tag array records,
// for each original slot, which of the two pools below holds it and in
// what position, so Decode can reassemble Program.Constants in its
// original interleaved order and every CONSTANT operand survives
// unchanged. int64 constants are stored as their exact float64
// equivalent (kindInt and kindFloat share the numbers pool): the VM's own
// Number representation is already float64-only (see
// machine.makeToplevelFunction), so this loses no runtime behavior, only
// the disassembler's int-vs-float spelling, which the kind tag itself
// preserves.
var imageMagic = [4]byte{'l', 'u', 'm', 'n'}

const constKindInt byte = 0
const constKindFloat byte = 1
const constKindString byte = 2

const (
	funcFlagVarArgs  byte = 1 << 0
	funcFlagSequence byte = 1 << 1
)

// Encode serializes p to the binary program image format. It fails only if
// a constant is not an int64, float64 or string; counts and offsets are
// written with fixed-width casts and are not range-checked.
func (p *Program) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(imageMagic[:])
	writeU16(&buf, Version)

	if err := encodeConstants(&buf, p.Constants); err != nil {
		return nil, err
	}
	encodeStrings(&buf, p.Names)

	allFuncs := append([]*Funcode{p.Toplevel}, p.Functions...)
	var code bytes.Buffer
	entries := make([]funcTableEntry, len(allFuncs))
	for i, fn := range allFuncs {
		entries[i] = funcTableEntry{
			entryOffset: uint32(code.Len()),
			codeLen:     uint32(len(fn.Code)),
			numArgs:     uint16(fn.NumParams),
			numLocals:   uint16(len(fn.Locals)),
			numUpvalues: uint16(len(fn.Freevars)),
			maxStack:    uint16(fn.MaxStack),
			hasVarArgs:  fn.HasVarargs,
			isSequence:  fn.IsSequence,
			debugName:   fn.Name,
			cells:       fn.Cells,
			handlers:    fn.Handlers,
		}
		code.Write(fn.Code)
	}

	writeU32(&buf, uint32(len(entries)))
	for _, e := range entries {
		e.encode(&buf)
	}

	writeU32(&buf, uint32(code.Len()))
	buf.Write(code.Bytes())

	debug := encodeDebug(allFuncs)
	writeU32(&buf, uint32(len(debug)))
	buf.Write(debug)

	return buf.Bytes(), nil
}

// DecodeImage validates the magic and version header and decodes b into a
// Program. The returned Program's Funcodes reference the original
// function-local Code slices (sliced out of the concatenated bytecode
// stream at the recorded offsets), so CONSTANT/jump/local addressing all
// still resolve exactly as they did before encoding.
func DecodeImage(b []byte) (*Program, error) {
	r := &imageReader{b: b}

	var magic [4]byte
	r.read(magic[:])
	if magic != imageMagic {
		return nil, fmt.Errorf("invalid program image: bad magic %x", magic)
	}
	version := r.u16()
	if version != Version {
		return nil, fmt.Errorf("invalid program image: unsupported version %d (want %d)", version, Version)
	}

	constants, err := decodeConstants(r)
	if err != nil {
		return nil, err
	}
	names := decodeStrings(r)

	nfuncs := int(r.u32())
	entries := make([]funcTableEntry, nfuncs)
	for i := range entries {
		entries[i] = decodeFuncTableEntry(r)
	}

	codeLen := r.u32()
	code := r.read(make([]byte, codeLen))

	debugLen := r.u32()
	debug := r.read(make([]byte, debugLen))
	if r.err != nil {
		return nil, r.err
	}

	p := &Program{Constants: constants, Names: names}
	funcs := make([]*Funcode, nfuncs)
	for i, e := range entries {
		if e.entryOffset+e.codeLen > uint32(len(code)) {
			return nil, fmt.Errorf("invalid program image: function %q code range out of bounds", e.debugName)
		}
		fn := &Funcode{
			Prog:       p,
			Name:       e.debugName,
			Code:       code[e.entryOffset : e.entryOffset+e.codeLen],
			NumParams:  int(e.numArgs),
			MaxStack:   int(e.maxStack),
			HasVarargs: e.hasVarArgs,
			IsSequence: e.isSequence,
			Cells:      e.cells,
			Handlers:   e.handlers,
		}
		fn.Locals = make([]Binding, e.numLocals)
		fn.Freevars = make([]Binding, e.numUpvalues)
		funcs[i] = fn
	}
	if err := decodeDebug(debug, funcs); err != nil {
		return nil, err
	}

	if len(funcs) == 0 {
		return nil, fmt.Errorf("invalid program image: no functions")
	}
	p.Toplevel = funcs[0]
	p.Functions = funcs[1:]
	return p, nil
}

type funcTableEntry struct {
	entryOffset, codeLen             uint32
	numArgs, numLocals, numUpvalues uint16
	maxStack                        uint16
	hasVarArgs, isSequence          bool
	debugName                       string
	cells                           []int
	handlers                        []Handler
}

func (e funcTableEntry) encode(buf *bytes.Buffer) {
	writeU32(buf, e.entryOffset)
	writeU32(buf, e.codeLen)
	writeU16(buf, e.numArgs)
	writeU16(buf, e.numLocals)
	writeU16(buf, e.numUpvalues)
	writeU16(buf, e.maxStack)
	var flags byte
	if e.hasVarArgs {
		flags |= funcFlagVarArgs
	}
	if e.isSequence {
		flags |= funcFlagSequence
	}
	buf.WriteByte(flags)
	writeString(buf, e.debugName)

	writeU16(buf, uint16(len(e.cells)))
	for _, c := range e.cells {
		writeU16(buf, uint16(c))
	}

	writeU16(buf, uint16(len(e.handlers)))
	for _, h := range e.handlers {
		writeU32(buf, h.PC0)
		writeU32(buf, h.PC1)
		writeU32(buf, h.CatchPC)
		writeU32(buf, h.FinallyPC)
	}
}

func decodeFuncTableEntry(r *imageReader) funcTableEntry {
	var e funcTableEntry
	e.entryOffset = r.u32()
	e.codeLen = r.u32()
	e.numArgs = r.u16()
	e.numLocals = r.u16()
	e.numUpvalues = r.u16()
	e.maxStack = r.u16()
	flags := r.byte()
	e.hasVarArgs = flags&funcFlagVarArgs != 0
	e.isSequence = flags&funcFlagSequence != 0
	e.debugName = r.string()

	ncells := int(r.u16())
	e.cells = make([]int, ncells)
	for i := range e.cells {
		e.cells[i] = int(r.u16())
	}

	nhandlers := int(r.u16())
	e.handlers = make([]Handler, nhandlers)
	for i := range e.handlers {
		e.handlers[i] = Handler{
			PC0:       r.u32(),
			PC1:       r.u32(),
			CatchPC:   r.u32(),
			FinallyPC: r.u32(),
		}
	}
	return e
}

func encodeConstants(buf *bytes.Buffer, constants []interface{}) error {
	kinds := make([]byte, len(constants))
	var numbers []float64
	var strs []string
	for i, c := range constants {
		switch c := c.(type) {
		case int64:
			kinds[i] = constKindInt
			numbers = append(numbers, float64(c))
		case float64:
			kinds[i] = constKindFloat
			numbers = append(numbers, c)
		case string:
			kinds[i] = constKindString
			strs = append(strs, c)
		default:
			return fmt.Errorf("invalid program image: unsupported constant type %T", c)
		}
	}

	writeU32(buf, uint32(len(kinds)))
	buf.Write(kinds)

	writeU32(buf, uint32(len(numbers)))
	for _, n := range numbers {
		writeU64(buf, math.Float64bits(n))
	}

	encodeStrings(buf, strs)
	return nil
}

func decodeConstants(r *imageReader) ([]interface{}, error) {
	nkinds := int(r.u32())
	kinds := r.read(make([]byte, nkinds))

	nnumbers := int(r.u32())
	numbers := make([]float64, nnumbers)
	for i := range numbers {
		numbers[i] = math.Float64frombits(r.u64())
	}

	strs := decodeStrings(r)
	if r.err != nil {
		return nil, r.err
	}

	constants := make([]interface{}, nkinds)
	var ni, si int
	for i, k := range kinds {
		switch k {
		case constKindInt:
			if ni >= len(numbers) {
				return nil, fmt.Errorf("invalid program image: numbers pool exhausted")
			}
			constants[i] = int64(numbers[ni])
			ni++
		case constKindFloat:
			if ni >= len(numbers) {
				return nil, fmt.Errorf("invalid program image: numbers pool exhausted")
			}
			constants[i] = numbers[ni]
			ni++
		case constKindString:
			if si >= len(strs) {
				return nil, fmt.Errorf("invalid program image: strings pool exhausted")
			}
			constants[i] = strs[si]
			si++
		default:
			return nil, fmt.Errorf("invalid program image: unknown constant kind %d", k)
		}
	}
	return constants, nil
}

func encodeStrings(buf *bytes.Buffer, strs []string) {
	writeU32(buf, uint32(len(strs)))
	for _, s := range strs {
		writeString(buf, s)
	}
}

func decodeStrings(r *imageReader) []string {
	n := int(r.u32())
	strs := make([]string, n)
	for i := range strs {
		strs[i] = r.string()
	}
	return strs
}

// encodeDebug packages each function's pc->source-position table and local
// names, keyed by function index so decodeDebug can attach them back to
// the Funcodes built from the function table. It is a supplementary
// section: a program image with a zero-length debug section still
// executes correctly, it just cannot report source positions for runtime
// errors.
func encodeDebug(funcs []*Funcode) []byte {
	var buf bytes.Buffer
	writeU32(&buf, uint32(len(funcs)))
	for _, fn := range funcs {
		writeU32(&buf, uint32(len(fn.Locals)))
		for _, l := range fn.Locals {
			writeString(&buf, l.Name)
		}
		writeU32(&buf, uint32(len(fn.pclinetab)))
		for i, pc := range fn.pclinetab {
			writeU32(&buf, pc)
			writeU32(&buf, uint32(fn.poslist[i]))
		}
	}
	return buf.Bytes()
}

func decodeDebug(b []byte, funcs []*Funcode) error {
	if len(b) == 0 {
		return nil
	}
	r := &imageReader{b: b}
	nfuncs := int(r.u32())
	if nfuncs != len(funcs) {
		return fmt.Errorf("invalid program image: debug section names %d functions, function table has %d", nfuncs, len(funcs))
	}
	for _, fn := range funcs {
		nlocals := int(r.u32())
		for i := 0; i < nlocals; i++ {
			name := r.string()
			if i < len(fn.Locals) {
				fn.Locals[i].Name = name
			}
		}
		nlines := int(r.u32())
		fn.pclinetab = make([]uint32, nlines)
		fn.poslist = make([]token.Pos, nlines)
		for i := 0; i < nlines; i++ {
			fn.pclinetab[i] = r.u32()
			fn.poslist[i] = token.Pos(r.u32())
		}
	}
	return r.err
}

type imageReader struct {
	b   []byte
	err error
}

func (r *imageReader) read(p []byte) []byte {
	if r.err != nil {
		return p
	}
	if len(r.b) < len(p) {
		r.err = fmt.Errorf("invalid program image: unexpected end of data")
		return p
	}
	copy(p, r.b[:len(p)])
	r.b = r.b[len(p):]
	return p
}

func (r *imageReader) byte() byte {
	var b [1]byte
	r.read(b[:])
	return b[0]
}

func (r *imageReader) u16() uint16 {
	var b [2]byte
	r.read(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (r *imageReader) u32() uint32 {
	var b [4]byte
	r.read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (r *imageReader) u64() uint64 {
	var b [8]byte
	r.read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (r *imageReader) string() string {
	n := r.u32()
	return string(r.read(make([]byte, n)))
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}
