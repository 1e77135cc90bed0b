package gles

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// functions holds the GL entry points the device calls.
type functions struct {
	GetError  func() uint32
	GetString func(name uint32) string

	GenBuffers    func(n int32, buffers *uint32)
	DeleteBuffers func(n int32, buffers *uint32)
	BindBuffer    func(target, buffer uint32)
	BufferData    func(target uint32, size int, data unsafe.Pointer, usage uint32)
	BufferSubData func(target uint32, offset, size int, data unsafe.Pointer)

	GenVertexArrays         func(n int32, arrays *uint32)
	DeleteVertexArrays      func(n int32, arrays *uint32)
	BindVertexArray         func(array uint32)
	EnableVertexAttribArray func(index uint32)
	VertexAttribPointer     func(index uint32, size int32, typ uint32, normalized bool, stride int32, offset uintptr)
	VertexAttribIPointer    func(index uint32, size int32, typ uint32, stride int32, offset uintptr)
	VertexAttribDivisor     func(index, divisor uint32)

	CreateShader       func(typ uint32) uint32
	ShaderSource       func(shader uint32, count int32, sources **byte, lengths *int32)
	CompileShader      func(shader uint32)
	GetShaderiv        func(shader, pname uint32, params *int32)
	GetShaderInfoLog   func(shader uint32, bufSize int32, length *int32, log *byte)
	DeleteShader       func(shader uint32)
	CreateProgram      func() uint32
	AttachShader       func(program, shader uint32)
	LinkProgram        func(program uint32)
	GetProgramiv       func(program, pname uint32, params *int32)
	GetProgramInfoLog  func(program uint32, bufSize int32, length *int32, log *byte)
	DeleteProgram      func(program uint32)
	UseProgram         func(program uint32)
	GetActiveAttrib    func(program, index uint32, bufSize int32, length, size *int32, typ *uint32, name *byte)
	GetAttribLocation  func(program uint32, name string) int32
	GetUniformLocation func(program uint32, name string) int32

	Uniform1fv        func(location, count int32, v *float32)
	Uniform2fv        func(location, count int32, v *float32)
	Uniform3fv        func(location, count int32, v *float32)
	Uniform4fv        func(location, count int32, v *float32)
	Uniform1iv        func(location, count int32, v *int32)
	Uniform2iv        func(location, count int32, v *int32)
	Uniform3iv        func(location, count int32, v *int32)
	Uniform4iv        func(location, count int32, v *int32)
	Uniform1uiv       func(location, count int32, v *uint32)
	Uniform2uiv       func(location, count int32, v *uint32)
	Uniform3uiv       func(location, count int32, v *uint32)
	Uniform4uiv       func(location, count int32, v *uint32)
	UniformMatrix2fv  func(location, count int32, transpose bool, v *float32)
	UniformMatrix3fv  func(location, count int32, transpose bool, v *float32)
	UniformMatrix4fv  func(location, count int32, transpose bool, v *float32)
	Enable            func(capability uint32)
	Disable           func(capability uint32)
	BlendFuncSeparate func(srcRGB, dstRGB, srcAlpha, dstAlpha uint32)
	BlendEquation     func(mode uint32)
	CullFace          func(mode uint32)
	DepthFunc         func(fn uint32)

	DrawArrays          func(mode uint32, first, count int32)
	DrawArraysInstanced func(mode uint32, first, count, instances int32)

	Viewport   func(x, y, width, height int32)
	ClearColor func(r, g, b, a float32)
	Clear      func(mask uint32)
	ReadPixels func(x, y, width, height int32, format, typ uint32, pixels unsafe.Pointer)
	Finish     func()
}

// load resolves every entry point, first from lib and then through getProc.
func (f *functions) load(lib uintptr, getProc func(name string) uintptr) error {
	entries := []struct {
		fptr any
		name string
	}{
		{&f.GetError, "glGetError"},
		{&f.GetString, "glGetString"},
		{&f.GenBuffers, "glGenBuffers"},
		{&f.DeleteBuffers, "glDeleteBuffers"},
		{&f.BindBuffer, "glBindBuffer"},
		{&f.BufferData, "glBufferData"},
		{&f.BufferSubData, "glBufferSubData"},
		{&f.GenVertexArrays, "glGenVertexArrays"},
		{&f.DeleteVertexArrays, "glDeleteVertexArrays"},
		{&f.BindVertexArray, "glBindVertexArray"},
		{&f.EnableVertexAttribArray, "glEnableVertexAttribArray"},
		{&f.VertexAttribPointer, "glVertexAttribPointer"},
		{&f.VertexAttribIPointer, "glVertexAttribIPointer"},
		{&f.VertexAttribDivisor, "glVertexAttribDivisor"},
		{&f.CreateShader, "glCreateShader"},
		{&f.ShaderSource, "glShaderSource"},
		{&f.CompileShader, "glCompileShader"},
		{&f.GetShaderiv, "glGetShaderiv"},
		{&f.GetShaderInfoLog, "glGetShaderInfoLog"},
		{&f.DeleteShader, "glDeleteShader"},
		{&f.CreateProgram, "glCreateProgram"},
		{&f.AttachShader, "glAttachShader"},
		{&f.LinkProgram, "glLinkProgram"},
		{&f.GetProgramiv, "glGetProgramiv"},
		{&f.GetProgramInfoLog, "glGetProgramInfoLog"},
		{&f.DeleteProgram, "glDeleteProgram"},
		{&f.UseProgram, "glUseProgram"},
		{&f.GetActiveAttrib, "glGetActiveAttrib"},
		{&f.GetAttribLocation, "glGetAttribLocation"},
		{&f.GetUniformLocation, "glGetUniformLocation"},
		{&f.Uniform1fv, "glUniform1fv"},
		{&f.Uniform2fv, "glUniform2fv"},
		{&f.Uniform3fv, "glUniform3fv"},
		{&f.Uniform4fv, "glUniform4fv"},
		{&f.Uniform1iv, "glUniform1iv"},
		{&f.Uniform2iv, "glUniform2iv"},
		{&f.Uniform3iv, "glUniform3iv"},
		{&f.Uniform4iv, "glUniform4iv"},
		{&f.Uniform1uiv, "glUniform1uiv"},
		{&f.Uniform2uiv, "glUniform2uiv"},
		{&f.Uniform3uiv, "glUniform3uiv"},
		{&f.Uniform4uiv, "glUniform4uiv"},
		{&f.UniformMatrix2fv, "glUniformMatrix2fv"},
		{&f.UniformMatrix3fv, "glUniformMatrix3fv"},
		{&f.UniformMatrix4fv, "glUniformMatrix4fv"},
		{&f.Enable, "glEnable"},
		{&f.Disable, "glDisable"},
		{&f.BlendFuncSeparate, "glBlendFuncSeparate"},
		{&f.BlendEquation, "glBlendEquation"},
		{&f.CullFace, "glCullFace"},
		{&f.DepthFunc, "glDepthFunc"},
		{&f.DrawArrays, "glDrawArrays"},
		{&f.DrawArraysInstanced, "glDrawArraysInstanced"},
		{&f.Viewport, "glViewport"},
		{&f.ClearColor, "glClearColor"},
		{&f.Clear, "glClear"},
		{&f.ReadPixels, "glReadPixels"},
		{&f.Finish, "glFinish"},
	}
	for _, e := range entries {
		addr, err := purego.Dlsym(lib, e.name)
		if err != nil || addr == 0 {
			addr = getProc(e.name)
		}
		if addr == 0 {
			return fmt.Errorf("%w: %s", ErrMissingFunction, e.name)
		}
		purego.RegisterFunc(e.fptr, addr)
	}
	return nil
}
