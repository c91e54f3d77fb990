package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.5-core/gl"

	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/gpu"
)

// CreateProgram compiles and links a program. Compile and link failures are
// returned as *gpu.ShaderError carrying the info log.
func (d *Device) CreateProgram(vertexSource, fragmentSource string) (gpu.Program, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragmentShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	// Check linking status.
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(logText))
		gl.DeleteProgram(program)
		return 0, &gpu.ShaderError{Stage: "linking", Log: trimLog(logText)}
	}
	gl.DetachShader(program, vertexShader)
	gl.DetachShader(program, fragmentShader)
	return gpu.Program(program), nil
}

func (d *Device) DeleteProgram(p gpu.Program) {
	if p == d.program {
		d.program = 0
	}
	gl.DeleteProgram(uint32(p))
}

// compileShader compiles a single shader from source.
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(cstr(source))
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	// Check compilation status.
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, &gpu.ShaderError{Stage: "compilation", Log: trimLog(logText)}
	}
	return shader, nil
}

// CreateTexture uploads an RGBA8 image with linear filtering and edge
// clamping.
func (d *Device) CreateTexture(width, height int, rgba []byte) (drawlist.TextureID, error) {
	if width <= 0 || height <= 0 || len(rgba) != width*height*4 {
		return 0, fmt.Errorf("texture %dx%d needs %d bytes of RGBA, got %d", width, height, width*height*4, len(rgba))
	}
	var tex uint32
	gl.CreateTextures(gl.TEXTURE_2D, 1, &tex)
	gl.TextureParameteri(tex, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TextureParameteri(tex, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TextureParameteri(tex, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TextureParameteri(tex, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TextureStorage2D(tex, 1, gl.RGBA8, int32(width), int32(height))
	gl.TextureSubImage2D(tex, 0, 0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba))
	if err := glError(); err != nil {
		gl.DeleteTextures(1, &tex)
		return 0, err
	}
	return drawlist.TextureID(tex), nil
}

func (d *Device) DeleteTexture(id drawlist.TextureID) {
	tex := uint32(id)
	gl.DeleteTextures(1, &tex)
}

// cstr returns s NUL-terminated, as gl.Strs requires.
func cstr(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

// trimLog strips the NUL padding and trailing whitespace of an info log.
func trimLog(s string) string {
	return strings.TrimRight(s, "\x00\n\r\t ")
}
