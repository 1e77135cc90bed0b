package recorder

import (
	"fmt"
	"strings"

	"github.com/gogpu/shadow/device"
)

// Op identifies a device method.
type Op uint8

const (
	OpCreateBuffer Op = iota
	OpDeleteBuffer
	OpBindBuffer
	OpBufferData
	OpBufferSubData
	OpCreateVertexArray
	OpDeleteVertexArray
	OpBindVertexArray
	OpEnableVertexAttribArray
	OpVertexAttribPointer
	OpVertexAttribIPointer
	OpVertexAttribDivisor
	OpCompileShader
	OpDeleteShader
	OpLinkProgram
	OpDeleteProgram
	OpUseProgram
	OpActiveAttributes
	OpUniformLocation
	OpUniform
	OpEnable
	OpDisable
	OpBlendFuncSeparate
	OpBlendEquation
	OpCullFace
	OpDepthFunc
	OpDrawArrays
	OpDrawArraysInstanced
	OpError

	opCount
)

var opNames = [opCount]string{
	OpCreateBuffer:            "CreateBuffer",
	OpDeleteBuffer:            "DeleteBuffer",
	OpBindBuffer:              "BindBuffer",
	OpBufferData:              "BufferData",
	OpBufferSubData:           "BufferSubData",
	OpCreateVertexArray:       "CreateVertexArray",
	OpDeleteVertexArray:       "DeleteVertexArray",
	OpBindVertexArray:         "BindVertexArray",
	OpEnableVertexAttribArray: "EnableVertexAttribArray",
	OpVertexAttribPointer:     "VertexAttribPointer",
	OpVertexAttribIPointer:    "VertexAttribIPointer",
	OpVertexAttribDivisor:     "VertexAttribDivisor",
	OpCompileShader:           "CompileShader",
	OpDeleteShader:            "DeleteShader",
	OpLinkProgram:             "LinkProgram",
	OpDeleteProgram:           "DeleteProgram",
	OpUseProgram:              "UseProgram",
	OpActiveAttributes:        "ActiveAttributes",
	OpUniformLocation:         "UniformLocation",
	OpUniform:                 "Uniform",
	OpEnable:                  "Enable",
	OpDisable:                 "Disable",
	OpBlendFuncSeparate:       "BlendFuncSeparate",
	OpBlendEquation:           "BlendEquation",
	OpCullFace:                "CullFace",
	OpDepthFunc:               "DepthFunc",
	OpDrawArrays:              "DrawArrays",
	OpDrawArraysInstanced:     "DrawArraysInstanced",
	OpError:                   "Error",
}

func (o Op) String() string {
	if o < opCount {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Mutates reports whether the operation changes device state. Queries and
// draws do not.
func (o Op) Mutates() bool {
	switch o {
	case OpActiveAttributes, OpUniformLocation, OpError, OpDrawArrays, OpDrawArraysInstanced:
		return false
	}
	return o < opCount
}

// Call is one recorded device method invocation.
type Call struct {
	Op Op

	// Object is the handle the call created or acted on, 0 if none.
	Object uint32

	// Args is a compact rendering of the remaining arguments.
	Args string
}

func (c Call) String() string {
	var b strings.Builder
	b.WriteString(c.Op.String())
	b.WriteByte('(')
	if c.Object != 0 {
		fmt.Fprintf(&b, "%d", c.Object)
		if c.Args != "" {
			b.WriteString(", ")
		}
	}
	b.WriteString(c.Args)
	b.WriteByte(')')
	return b.String()
}

// DrawCall is a draw recorded together with the state it used.
type DrawCall struct {
	Mode        device.DrawMode
	First       int
	Count       int
	Instances   int // 0 for a non-instanced draw
	Program     device.Program
	VertexArray device.VertexArray
}

// Log is a sequence of recorded calls.
type Log []Call

// Count returns how many calls of op the log holds.
func (l Log) Count(op Op) int {
	n := 0
	for _, c := range l {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Mutations returns how many calls in the log change device state.
func (l Log) Mutations() int {
	n := 0
	for _, c := range l {
		if c.Op.Mutates() {
			n++
		}
	}
	return n
}

func (l Log) String() string {
	var b strings.Builder
	for i, c := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(c.String())
	}
	return b.String()
}
