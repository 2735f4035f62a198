package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// restore puts the no-op logger back after a test replaced it.
func restore(t *testing.T) {
	t.Cleanup(func() {
		Sync()
		Log = zap.NewNop()
		Sugar = Log.Sugar()
	})
}

func TestLogRotation(t *testing.T) {
	restore(t)
	dir := t.TempDir()
	logFile := filepath.Join(dir, "warp.log")

	// 1MB is the smallest size lumberjack rotates at.
	cfg := FileConfig{
		Path:       logFile,
		MaxSizeMB:  1,
		MaxBackups: 2,
		MaxAgeDays: 1,
	}
	if err := InitWithFileConfig("debug", cfg, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	longMessage := strings.Repeat("x", 200)
	for i := 0; i < 15000; i++ {
		Sugar.Infof("frame %d rendered: %s", i, longMessage)
	}
	Sync()

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read log dir: %v", err)
	}

	var rotated []string
	current := false
	for _, f := range files {
		switch {
		case f.Name() == "warp.log":
			current = true
		case strings.HasPrefix(f.Name(), "warp-") && strings.HasSuffix(f.Name(), ".log"):
			rotated = append(rotated, f.Name())
		}
	}
	if !current {
		t.Error("current log file missing")
	}
	if len(rotated) == 0 {
		t.Errorf("no rotated files in %v", files)
	}
	for _, name := range rotated {
		// warp-YYYY-MM-DDTHH-MM-SS.SSS.log
		if !strings.Contains(name, "-20") {
			t.Errorf("rotated file %s lacks a timestamp", name)
		}
	}
}

func TestLogLevels(t *testing.T) {
	restore(t)
	dir := t.TempDir()

	all := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	tests := []struct {
		level string
		first int // index into all of the lowest level written
	}{
		{"error", 3},
		{"warn", 2},
		{"info", 1},
		{"", 1},
		{"debug", 0},
	}

	for _, tt := range tests {
		name := tt.level
		if name == "" {
			name = "default"
		}
		t.Run(name, func(t *testing.T) {
			logFile := filepath.Join(dir, name+".log")
			if err := InitWithFileConfig(tt.level, FileConfig{Path: logFile, MaxSizeMB: 10}, false); err != nil {
				t.Fatalf("failed to init logger: %v", err)
			}

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")
			Sync()

			content, err := os.ReadFile(logFile)
			if err != nil {
				t.Fatalf("failed to read log file: %v", err)
			}
			for i, lvl := range all {
				if got, want := strings.Contains(string(content), lvl), i >= tt.first; got != want {
					t.Errorf("%s present = %v, want %v", lvl, got, want)
				}
			}
		})
	}
}

func TestInvalidLevel(t *testing.T) {
	restore(t)
	if err := InitWithFileConfig("verbose", FileConfig{}, false); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNamed(t *testing.T) {
	restore(t)
	logFile := filepath.Join(t.TempDir(), "named.log")
	if err := InitWithFileConfig("info", FileConfig{Path: logFile, MaxSizeMB: 1}, false); err != nil {
		t.Fatal(err)
	}

	Named("source", zap.String("kind", "pipeline")).Info("started")
	Sync()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	line := string(content)
	if !strings.Contains(line, "source") || !strings.Contains(line, `"kind": "pipeline"`) {
		t.Errorf("log line %q lacks component name or fields", line)
	}
	if !strings.Contains(line, "logger_test.go") {
		t.Errorf("log line %q does not report the caller", line)
	}
}

func TestNopBeforeInit(t *testing.T) {
	restore(t)
	Log = zap.NewNop()
	Sugar = Log.Sugar()

	// Must not panic without Init.
	Debug("frame", zap.Int("seq", 1))
	Info("frame")
	With(zap.String("element", "warp")).Warn("frame")
	Named("warp").Error("frame")
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/test.log")
	want := FileConfig{Path: "/tmp/test.log", MaxSizeMB: 20, MaxBackups: 5, MaxAgeDays: 14, Compress: true}
	if cfg != want {
		t.Errorf("DefaultFileConfig() = %+v, want %+v", cfg, want)
	}
}
