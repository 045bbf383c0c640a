package gldevice

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// program is a linked shader program and the uniform locations the device sets.
type program struct {
	handle     uint32
	view       int32
	projection int32
	world      int32
	jointCount int32
	skinning   int32
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(msg))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile shader: %s", strings.TrimRight(msg, "\x00"))
	}
	return shader, nil
}

func newProgram(vertexSource, fragmentSource string) (*program, error) {
	vs, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fs)

	handle := gl.CreateProgram()
	gl.AttachShader(handle, vs)
	gl.AttachShader(handle, fs)
	gl.LinkProgram(handle)

	var status int32
	gl.GetProgramiv(handle, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(handle, gl.INFO_LOG_LENGTH, &logLength)
		log := make([]byte, logLength+1)
		gl.GetProgramInfoLog(handle, logLength, nil, &log[0])
		gl.DeleteProgram(handle)
		return nil, fmt.Errorf("program link: %s", strings.TrimRight(string(log), "\x00"))
	}

	// Missing uniforms resolve to -1, which gl.Uniform* ignores.
	return &program{
		handle:     handle,
		view:       gl.GetUniformLocation(handle, gl.Str("view\x00")),
		projection: gl.GetUniformLocation(handle, gl.Str("projection\x00")),
		world:      gl.GetUniformLocation(handle, gl.Str("world\x00")),
		jointCount: gl.GetUniformLocation(handle, gl.Str("joint_count\x00")),
		skinning:   gl.GetUniformLocation(handle, gl.Str("skinning\x00")),
	}, nil
}
