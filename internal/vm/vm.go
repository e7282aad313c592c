// Package vm implements the bytecode dispatch loop of spec.md §4.7: a
// stack-based interpreter over a compact instruction set, with call
// frames, closures, open/closed upvalues, and cooperative GC triggering.
package vm

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"emo/internal/chunk"
	"emo/internal/compiler"
	"emo/internal/errors"
	"emo/internal/heap"
	"emo/internal/object"
	"emo/internal/table"
	"emo/internal/value"
)

// FramesMax bounds call-frame recursion (spec.md §3's invariant
// frameCount ≤ FRAMES_MAX).
const FramesMax = 64

// maxLocalsPerFrame mirrors the compiler's 256-local ceiling, so StackMax
// is a hard, known upper bound — letting the value stack live in a fixed
// array whose backing storage never moves. That stability is what makes
// Upvalue.Location (a raw *value.Value into this array) safe to hold onto
// across pushes: a growable slice could reallocate and strand it.
const maxLocalsPerFrame = 256
const StackMax = FramesMax * maxLocalsPerFrame

// InterpretResult is the outcome of an Interpret call (spec.md §6).
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

type callFrame struct {
	closure *object.Closure
	ip      int
	base    int // index into vm.stack of this frame's slot 0
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithStressGC forces a collection on every heap growth, the mode
// spec.md §8's property 4 exercises.
func WithStressGC() Option {
	return func(v *VM) { v.alloc.GC.StressMode = true }
}

// WithOutput redirects PRINT output away from os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(v *VM) { v.out = w }
}

// WithNativeClock registers the baseline `clock()` native from spec.md §6.
func WithNativeClock() Option {
	return func(v *VM) { v.RegisterClock() }
}

// VM is the embeddable interpreter: init_vm()/free_vm() map to New/Close
// (Close only releases native resources; Go's GC reclaims the VM and its
// heap objects once dropped), interpret(source) is Interpret, and native
// registration is RegisterNative.
type VM struct {
	stack      [StackMax]value.Value
	stackTop   int
	frames     [FramesMax]callFrame
	frameCount int

	globals      *table.Table
	openUpvalues *object.Upvalue

	alloc     *heap.Allocator
	out       io.Writer
	startTime time.Time
}

func New(opts ...Option) *VM {
	v := &VM{
		globals:   table.New(),
		alloc:     heap.New(),
		out:       os.Stdout,
		startTime: time.Now(),
	}
	v.alloc.SetRoots(v)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Allocator exposes the shared heap allocator so natives (internal/natives)
// can intern strings and build heap objects with the same GC the VM uses.
func (v *VM) Allocator() *heap.Allocator { return v.alloc }

// Globals exposes the global table, mainly so natives can look up or stash
// values without going through script-level assignment.
func (v *VM) Globals() *table.Table { return v.globals }

// Out exposes the configured print sink.
func (v *VM) Out() io.Writer { return v.out }

// StartTime exposes the moment this VM was constructed, the epoch
// `clock()` measures against; natives that need a time base (e.g.
// humanize_time) share it instead of taking their own snapshot.
func (v *VM) StartTime() time.Time { return v.startTime }

// RegisterNative installs a native callable under name, reachable from
// script code as a global (spec.md §6's embedding contract).
func (v *VM) RegisterNative(name string, fn object.NativeFn) {
	nativeObj := v.alloc.NewNative(name, fn)
	nameStr := v.alloc.InternString([]byte(name), value.FromObj(nativeObj))
	v.globals.Set(value.FromObj(nameStr), value.FromObj(nativeObj))
}

// Close releases every still-open native resource (an unclosed DB handle
// or websocket connection) reachable on the heap. It is the free_vm
// counterpart for resources: ordinary heap objects need no explicit free
// since Go's own GC reclaims them once memory.GC.sweep unlinks them.
func (v *VM) Close() {
	v.alloc.GC.Each(func(o object.Obj) {
		if r, ok := o.(*object.Resource); ok {
			_ = r.Close()
		}
	})
}

// RegisterClock installs the `clock()` native from spec.md §6, returning
// seconds elapsed since this VM was constructed.
func (v *VM) RegisterClock() {
	v.RegisterNative("clock", func(args []value.Value) (value.Value, error) {
		return value.Number(time.Since(v.startTime).Seconds()), nil
	})
}

// ---- stack primitives ----

func (v *VM) push(val value.Value) {
	v.stack[v.stackTop] = val
	v.stackTop++
}

func (v *VM) pop() value.Value {
	v.stackTop--
	return v.stack[v.stackTop]
}

func (v *VM) peek(distance int) value.Value {
	return v.stack[v.stackTop-1-distance]
}

func (v *VM) resetStack() {
	v.stackTop = 0
	v.frameCount = 0
	v.openUpvalues = nil
}

// Interpret compiles source and, on success, runs it to completion. This
// is the single embedding entry point of spec.md §6.
func (v *VM) Interpret(source string) (InterpretResult, *errors.LangError) {
	fn, compileErr := compiler.Compile(source, v.alloc)
	if compileErr != nil {
		return InterpretCompileError, compileErr
	}

	closure := v.alloc.NewClosure(fn)
	v.push(value.FromObj(closure))
	if err := v.callValue(value.FromObj(closure), 0); err != nil {
		return InterpretRuntimeError, err
	}

	return v.run()
}

// call pushes a new frame for closure, verifying arity and recursion
// depth (spec.md §4.7's calling convention).
func (v *VM) call(closure *object.Closure, argCount int) *errors.LangError {
	if argCount != closure.Function.Arity {
		return v.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if v.frameCount == FramesMax {
		return v.runtimeError("Stack overflow.")
	}
	frame := &v.frames[v.frameCount]
	v.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.base = v.stackTop - argCount - 1
	return nil
}

// callValue dispatches a callable value by its object kind (spec.md
// §4.7's "CALL: ... must be callable; dispatch by object type").
func (v *VM) callValue(callee value.Value, argCount int) *errors.LangError {
	if callee.IsObj() {
		switch o := callee.AsObj().(type) {
		case *object.Closure:
			return v.call(o, argCount)
		case *object.Native:
			args := v.stack[v.stackTop-argCount : v.stackTop]
			result, err := o.Fn(args)
			v.stackTop -= argCount + 1
			if err != nil {
				return v.runtimeError("%s", err.Error())
			}
			v.push(result)
			return nil
		}
	}
	return v.runtimeError("Can only call functions.")
}

// captureUpvalue finds or creates an open upvalue over the stack slot at
// absolute index slotIndex, keeping vm.openUpvalues sorted by descending
// stack address as spec.md §3 requires.
func (v *VM) captureUpvalue(slotIndex int) *object.Upvalue {
	var prev *object.Upvalue
	curr := v.openUpvalues
	for curr != nil && curr.StackIndex > slotIndex {
		prev = curr
		curr = curr.NextOpen
	}
	if curr != nil && curr.StackIndex == slotIndex {
		return curr
	}
	created := v.alloc.NewUpvalue(&v.stack[slotIndex], slotIndex)
	created.NextOpen = curr
	if prev == nil {
		v.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues hoists every open upvalue at or above absolute stack index
// last into its own Closed storage and detaches it from the open list.
func (v *VM) closeUpvalues(last int) {
	for v.openUpvalues != nil && v.openUpvalues.StackIndex >= last {
		uv := v.openUpvalues
		uv.Close()
		v.openUpvalues = uv.NextOpen
	}
}

// ---- runtime errors ----

func (v *VM) runtimeError(format string, args ...interface{}) *errors.LangError {
	msg := fmt.Sprintf(format, args...)
	line := 0
	var stack []errors.StackFrame
	for i := v.frameCount - 1; i >= 0; i-- {
		f := &v.frames[i]
		fnLine := f.closure.Function.Chunk.GetLine(f.ip - 1)
		if i == v.frameCount-1 {
			line = fnLine
		}
		name := ""
		if f.closure.Function.Name != nil {
			name = string(f.closure.Function.Name.Chars)
		}
		stack = append(stack, errors.StackFrame{Function: name, Line: fnLine})
	}
	v.resetStack()
	return errors.NewRuntimeError(msg, line).WithStack(stack)
}

// ---- dispatch loop ----

func (v *VM) run() (InterpretResult, *errors.LangError) {
	frame := &v.frames[v.frameCount-1]

	readByte := func() byte {
		b := frame.closure.Function.Chunk.Code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() int {
		hi := readByte()
		lo := readByte()
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() value.Value {
		return frame.closure.Function.Chunk.Constants[readByte()]
	}
	readConstantLong := func() value.Value {
		b0 := int(readByte())
		b1 := int(readByte())
		b2 := int(readByte())
		idx := b0 | b1<<8 | b2<<16
		return frame.closure.Function.Chunk.Constants[idx]
	}

	for {
		op := chunk.OpCode(readByte())
		switch op {
		case chunk.OpConstant:
			v.push(readConstant())
		case chunk.OpConstantLong:
			v.push(readConstantLong())
		case chunk.OpTrue:
			v.push(value.Bool(true))
		case chunk.OpFalse:
			v.push(value.Bool(false))
		case chunk.OpMeta:
			v.push(value.Meta)
		case chunk.OpPop:
			v.pop()

		case chunk.OpGetLocal:
			slot := int(readByte())
			v.push(v.stack[frame.base+slot])
		case chunk.OpSetLocal:
			slot := int(readByte())
			v.stack[frame.base+slot] = v.peek(0)

		case chunk.OpGetGlobal, chunk.OpGetGlobalLong:
			var name value.Value
			if op == chunk.OpGetGlobalLong {
				name = readConstantLong()
			} else {
				name = readConstant()
			}
			val, ok := v.globals.Get(name)
			if !ok {
				return InterpretRuntimeError, v.runtimeError("Undefined variable '%s'.", name.String())
			}
			v.push(val)
		case chunk.OpDefineGlobal, chunk.OpDefineGlobalLong:
			var name value.Value
			if op == chunk.OpDefineGlobalLong {
				name = readConstantLong()
			} else {
				name = readConstant()
			}
			v.globals.Set(name, v.peek(0))
			v.pop()
		case chunk.OpSetGlobal, chunk.OpSetGlobalLong:
			var name value.Value
			if op == chunk.OpSetGlobalLong {
				name = readConstantLong()
			} else {
				name = readConstant()
			}
			if v.globals.Set(name, v.peek(0)) {
				v.globals.Delete(name)
				return InterpretRuntimeError, v.runtimeError("Undefined variable '%s'.", name.String())
			}

		case chunk.OpGetUpvalue:
			slot := int(readByte())
			v.push(*frame.closure.Upvalues[slot].Location)
		case chunk.OpSetUpvalue:
			slot := int(readByte())
			*frame.closure.Upvalues[slot].Location = v.peek(0)

		case chunk.OpEqual:
			b := v.pop()
			a := v.pop()
			v.push(value.Bool(value.Equal(a, b)))
		case chunk.OpGreater:
			if e := v.binaryCompare(func(a, b float64) bool { return a > b }); e != nil {
				return InterpretRuntimeError, e
			}
		case chunk.OpLess:
			if e := v.binaryCompare(func(a, b float64) bool { return a < b }); e != nil {
				return InterpretRuntimeError, e
			}

		case chunk.OpAdd:
			if e := v.add(); e != nil {
				return InterpretRuntimeError, e
			}
		case chunk.OpSubtract:
			if e := v.binaryNumeric(func(a, b float64) float64 { return a - b }); e != nil {
				return InterpretRuntimeError, e
			}
		case chunk.OpMultiply:
			if e := v.binaryNumeric(func(a, b float64) float64 { return a * b }); e != nil {
				return InterpretRuntimeError, e
			}
		case chunk.OpDivide:
			if e := v.binaryNumeric(func(a, b float64) float64 { return a / b }); e != nil {
				return InterpretRuntimeError, e
			}
		case chunk.OpModulo:
			if e := v.binaryNumeric(math.Mod); e != nil {
				return InterpretRuntimeError, e
			}
		case chunk.OpPow:
			if e := v.binaryNumeric(math.Pow); e != nil {
				return InterpretRuntimeError, e
			}

		case chunk.OpNot:
			v.push(value.Bool(!v.pop().Truthy()))
		case chunk.OpNegate:
			if !v.peek(0).IsNumber() {
				return InterpretRuntimeError, v.runtimeError("Operand must be a number.")
			}
			v.push(value.Number(-v.pop().AsNumber()))

		case chunk.OpPrint:
			fmt.Fprintln(v.out, v.pop().String())

		case chunk.OpJump:
			offset := readShort()
			frame.ip += offset
		case chunk.OpJumpIfFalse:
			offset := readShort()
			if !v.peek(0).Truthy() {
				frame.ip += offset
			}
		case chunk.OpLoop:
			offset := readShort()
			frame.ip -= offset

		case chunk.OpCall:
			argCount := int(readByte())
			if e := v.callValue(v.peek(argCount), argCount); e != nil {
				return InterpretRuntimeError, e
			}
			frame = &v.frames[v.frameCount-1]

		case chunk.OpClosure, chunk.OpClosureLong:
			var fnVal value.Value
			if op == chunk.OpClosureLong {
				fnVal = readConstantLong()
			} else {
				fnVal = readConstant()
			}
			fn := fnVal.AsObj().(*object.Function)
			closure := v.alloc.NewClosure(fn)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := int(readByte())
				if isLocal != 0 {
					closure.Upvalues[i] = v.captureUpvalue(frame.base + index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			v.push(value.FromObj(closure))

		case chunk.OpCloseUpvalue:
			v.closeUpvalues(v.stackTop - 1)
			v.pop()

		case chunk.OpReturn:
			result := v.pop()
			v.closeUpvalues(frame.base)
			v.frameCount--
			if v.frameCount == 0 {
				v.pop()
				return InterpretOK, nil
			}
			v.stackTop = frame.base
			v.push(result)
			frame = &v.frames[v.frameCount-1]

		default:
			return InterpretRuntimeError, v.runtimeError("Unknown opcode.")
		}
	}
}

func (v *VM) binaryNumeric(f func(a, b float64) float64) *errors.LangError {
	if !v.peek(0).IsNumber() || !v.peek(1).IsNumber() {
		return v.runtimeError("Operands must be numbers.")
	}
	b := v.pop().AsNumber()
	a := v.pop().AsNumber()
	v.push(value.Number(f(a, b)))
	return nil
}

func (v *VM) binaryCompare(f func(a, b float64) bool) *errors.LangError {
	if !v.peek(0).IsNumber() || !v.peek(1).IsNumber() {
		return v.runtimeError("Operands must be numbers.")
	}
	b := v.pop().AsNumber()
	a := v.pop().AsNumber()
	v.push(value.Bool(f(a, b)))
	return nil
}

// add is OP_ADD's polymorphic arithmetic-or-concatenation behavior
// (spec.md §4.6/§4.7).
func (v *VM) add() *errors.LangError {
	bv := v.peek(0)
	av := v.peek(1)
	switch {
	case av.IsNumber() && bv.IsNumber():
		b := v.pop().AsNumber()
		a := v.pop().AsNumber()
		v.push(value.Number(a + b))
	case isString(av) && isString(bv):
		b := v.pop().AsObj().(*object.String)
		a := v.pop().AsObj().(*object.String)
		result := v.alloc.Concat(a, b)
		v.push(value.FromObj(result))
	default:
		return v.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

func isString(val value.Value) bool {
	if !val.IsObj() {
		return false
	}
	_, ok := val.AsObj().(*object.String)
	return ok
}
