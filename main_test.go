package main

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/df07/go-bvh/pkg/bvh"
)

func run(args ...string) error {
	return newApp().Run(append([]string{"go-bvh"}, args...))
}

func TestStatsCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"all layouts", []string{"stats", "two-triangles"}},
		{"single layout", []string{"stats", "--layout", "wide4", "grid"}},
		{"default scene", []string{"stats"}},
		{"build flags", []string{"stats", "--bins", "4", "--max-leaf", "2", "sphere"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(tt.args...); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestStatsCommand_Errors(t *testing.T) {
	if err := run("stats", "nonexistent"); err == nil {
		t.Error("Expected error for unknown scene")
	}
	if err := run("stats", "--layout", "octree"); !errors.Is(err, bvh.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for unknown layout, got %v", err)
	}
	if err := run("stats", "--bins", "1"); !errors.Is(err, bvh.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for one bin, got %v", err)
	}
}

func TestRenderCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sphere.png")

	err := run("render", "--out", out, "--mode", "normal", "--width", "40", "--height", "30", "--layout", "soa", "sphere")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("Expected output file: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("Expected 40x30 image, got %v", img.Bounds())
	}
}

func TestRenderCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	if err := run("render", "--out", filepath.Join(dir, "a.png"), "--mode", "wireframe"); err == nil {
		t.Error("Expected error for unknown mode")
	}
	if err := run("render", "--out", filepath.Join(dir, "b.png"), "--width", "0"); err == nil {
		t.Error("Expected error for zero width")
	}
}

func TestBenchCommand(t *testing.T) {
	if err := run("bench", "--rays", "500", "--threads", "3", "--refit", "grid"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := run("bench", "--rays", "0"); err == nil {
		t.Error("Expected error for zero rays")
	}
}

func TestListCommand(t *testing.T) {
	if err := run("list"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestConfigFlag(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`{"build": {"layout": "soa", "bins": 16}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := run("--config", good, "stats", "two-triangles"); err != nil {
		t.Errorf("Unexpected error with valid config: %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"build": {"bins": 0}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := run("--config", bad, "stats"); !errors.Is(err, bvh.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for invalid config, got %v", err)
	}

	if err := run("--config", filepath.Join(dir, "missing.json"), "stats"); err == nil {
		t.Error("Expected error for missing config file")
	}
}
