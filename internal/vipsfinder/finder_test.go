package vipsfinder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/artemshloyda/rtconvert/internal/format"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"vips-8.14.2\n", "8.14.2"},
		{"vips 8.15.1", "8.15.1"},
		{"8.13.0", "8.13.0"},
	}

	for _, tt := range tests {
		if got := parseVersion(tt.input); got != tt.expected {
			t.Errorf("parseVersion(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestParseSaverClasses(t *testing.T) {
	output := `VipsOperation (operation), operations
  VipsForeign (foreign), load and save images and vips
    VipsForeignLoadPng (pngload_base), load png base class
    VipsForeignSaveJpegFile (jpegsave), save image to jpeg file
    VipsForeignSaveJpegBuffer (jpegsave_buffer), save image to jpeg buffer
    VipsForeignSaveSpngFile (pngsave), save image to file as PNG
    VipsForeignSaveWebpFile (webpsave), save as WebP
    VipsForeignSaveTiffFile (tiffsave), save image to tiff file
    VipsForeignSaveCgifFile (gifsave), save as gif
`
	got := ParseSaverClasses(output)
	expected := []format.Format{format.JPEG, format.PNG, format.WEBP, format.GIF}

	if len(got) != len(expected) {
		t.Fatalf("ParseSaverClasses() = %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("format[%d] = %s, expected %s", i, got[i], expected[i])
		}
	}
}

func TestSupportedFormats_Fallback(t *testing.T) {
	v := &VipsInfo{Path: "vips"}

	failing := func(string, ...string) ([]byte, error) { return nil, errors.New("no vips") }
	if got := v.supportedFormats(failing); len(got) != len(fallbackFormats) {
		t.Errorf("expected fallback formats, got %v", got)
	}

	empty := func(string, ...string) ([]byte, error) { return []byte("VipsOperation (operation)"), nil }
	if got := v.supportedFormats(empty); len(got) != len(fallbackFormats) {
		t.Errorf("expected fallback formats, got %v", got)
	}
}

func TestFind_CustomPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "vips")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	f := NewFinder(bin)
	f.EnvVar = "RTCONVERT_VIPS_TEST_UNSET"
	f.lookPath = func(string) (string, error) { return "", errors.New("not in PATH") }
	f.run = func(string, ...string) ([]byte, error) { return []byte("vips-8.15.0\n"), nil }

	info, err := f.Find()
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if info.Path != bin {
		t.Errorf("Path = %q, expected %q", info.Path, bin)
	}
	if info.Version != "8.15.0" {
		t.Errorf("Version = %q, expected 8.15.0", info.Version)
	}
}

func TestFind_NotFound(t *testing.T) {
	f := NewFinder(filepath.Join(t.TempDir(), "missing"))
	f.EnvVar = "RTCONVERT_VIPS_TEST_UNSET"
	f.lookPath = func(string) (string, error) { return "", errors.New("not in PATH") }
	f.run = func(string, ...string) ([]byte, error) { return nil, errors.New("exec failed") }

	if _, err := f.Find(); err == nil {
		t.Error("expected error when vips is missing")
	}
}
