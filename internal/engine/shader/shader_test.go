package shader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinSources(t *testing.T) {
	for name, src := range map[string]string{"vertex": WarpVertexShader, "fragment": WarpFragmentShader} {
		if !strings.Contains(src, "#version") || !strings.Contains(src, "void main") {
			t.Errorf("%s shader does not look like GLSL", name)
		}
	}

	// Names the renderer binds by.
	for _, uniform := range []string{"image", "tbl", "rmat", "gap", "skip_stitch"} {
		if !strings.Contains(WarpFragmentShader, uniform) {
			t.Errorf("fragment shader lacks uniform %q", uniform)
		}
	}
	if !strings.Contains(WarpVertexShader, "in vec2 pv") {
		t.Error("vertex shader lacks pv attribute")
	}
}

func TestLoad_Defaults(t *testing.T) {
	src, err := Load("", "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if src.Vertex != WarpVertexShader || src.Fragment != WarpFragmentShader {
		t.Error("expected built-in sources")
	}
}

func TestLoad_Override(t *testing.T) {
	dir := t.TempDir()
	fragPath := filepath.Join(dir, "custom.frag")
	custom := "#version 410 core\nout vec4 c;\nvoid main() { c = vec4(1.0); }\n"
	if err := os.WriteFile(fragPath, []byte(custom), 0644); err != nil {
		t.Fatalf("failed to write shader: %v", err)
	}

	src, err := Load("", fragPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if src.Vertex != WarpVertexShader {
		t.Error("vertex stage should keep the built-in source")
	}
	if src.Fragment != custom {
		t.Errorf("fragment = %q, want override", src.Fragment)
	}
}

func TestLoad_MissingOverride(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.vert")

	_, err := Load(missing, "")
	if !errors.Is(err, ErrShaderNotFound) {
		t.Fatalf("expected ErrShaderNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("error should name the path: %v", err)
	}
}
