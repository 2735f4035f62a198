// Package shader provides shader source loading and OpenGL program compilation.
package shader

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// ErrShaderNotFound is returned when an override shader file does not exist.
var ErrShaderNotFound = errors.New("shader file not found")

// WarpVertexShader is the built-in vertex shader for the warp mesh.
//
//go:embed warp.vert
var WarpVertexShader string

// WarpFragmentShader is the built-in fisheye to equirectangular fragment shader.
//
//go:embed warp.frag
var WarpFragmentShader string

// Sources is a vertex/fragment shader pair.
type Sources struct {
	Vertex   string
	Fragment string
}

// Load returns the built-in warp shaders, replacing each stage whose override
// path is non-empty with the contents of that file.
func Load(vertexPath, fragmentPath string) (Sources, error) {
	src := Sources{Vertex: WarpVertexShader, Fragment: WarpFragmentShader}

	if vertexPath != "" {
		text, err := LoadText(vertexPath)
		if err != nil {
			return Sources{}, fmt.Errorf("vertex shader: %w", err)
		}
		src.Vertex = text
	}
	if fragmentPath != "" {
		text, err := LoadText(fragmentPath)
		if err != nil {
			return Sources{}, fmt.Errorf("fragment shader: %w", err)
		}
		src.Fragment = text
	}
	return src, nil
}

// LoadText reads a shader source file.
func LoadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrShaderNotFound, path)
		}
		return "", fmt.Errorf("reading shader %s: %w", path, err)
	}
	return string(data), nil
}

// CompileProgram compiles vertex and fragment shaders and links them into a program.
// Returns the program ID or an error if compilation/linking fails.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", string(log[:logLen]))
	}

	return program, nil
}

// compileShader compiles a single shader of the given type.
func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, string(log[:logLen]))
	}

	return shader, nil
}
