package window

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"
)

func TestWindowFlags(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    uint32
		without uint32
	}{
		{"windowed", Config{}, sdl.WINDOW_OPENGL | sdl.WINDOW_RESIZABLE, sdl.WINDOW_FULLSCREEN_DESKTOP | sdl.WINDOW_HIDDEN},
		{"fullscreen", Config{Fullscreen: true}, sdl.WINDOW_OPENGL | sdl.WINDOW_FULLSCREEN_DESKTOP, sdl.WINDOW_HIDDEN},
		{"hidden", Config{Hidden: true, Fullscreen: true}, sdl.WINDOW_OPENGL | sdl.WINDOW_HIDDEN, sdl.WINDOW_FULLSCREEN_DESKTOP | sdl.WINDOW_RESIZABLE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := windowFlags(tt.cfg)
			if got&tt.want != tt.want {
				t.Errorf("windowFlags() = %#x, missing %#x", got, tt.want&^got)
			}
			if got&tt.without != 0 {
				t.Errorf("windowFlags() = %#x, unexpected %#x", got, got&tt.without)
			}
		})
	}
}

func TestNewRejectsEmptySize(t *testing.T) {
	if _, err := New(Config{Width: 0, Height: 10}); err == nil {
		t.Error("expected error for zero width")
	}
}
