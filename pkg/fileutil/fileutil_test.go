package fileutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestProvider_CaseInsensitive(t *testing.T) {
	fsys := fstest.MapFS{
		"NSS/Boot.NSB":       {Data: []byte("boot")},
		"cg/BG/Sky01.png":    {Data: []byte("png")},
		"sound/se/click.wav": {Data: []byte("wav")},
	}
	p, err := NewFSProvider(fsys, "")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"nss/boot.nsb", "boot"},
		{"\\NSS\\BOOT.NSB", "boot"},
		{"/cg/bg/sky01.PNG", "png"},
		{"sound/se/click.wav", "wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := p.ReadFile(tt.name)
			if err != nil {
				t.Fatalf("ReadFile(%q) failed: %v", tt.name, err)
			}
			if string(data) != tt.want {
				t.Errorf("ReadFile(%q) = %q, want %q", tt.name, data, tt.want)
			}
		})
	}

	if _, err := p.ReadFile("nss/missing.nsb"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
	if p.Exists("cg/missing.png") {
		t.Error("Exists reported a missing file")
	}
	for _, name := range []string{"", "/", "\\"} {
		if _, err := p.Resolve(name); !errors.Is(err, fs.ErrInvalid) {
			t.Errorf("Resolve(%q) = %v, want fs.ErrInvalid", name, err)
		}
	}
}

func TestProvider_Open(t *testing.T) {
	p, _ := NewFSProvider(fstest.MapFS{"a/B.txt": {Data: []byte("stream")}}, "")
	f, err := p.Open("A/b.TXT")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "stream" {
		t.Errorf("got %q", data)
	}
}

func TestNewFSProvider_Base(t *testing.T) {
	fsys := fstest.MapFS{"titles/demo/nss/boot.nsa": {Data: []byte("x")}}
	p, err := NewFSProvider(fsys, "titles/demo")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Exists("NSS/BOOT.NSA") {
		t.Error("expected file under base directory")
	}
}

func TestDirProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Nss"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Nss", "Func.nsa"), []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewDirProvider(dir)
	data, err := p.ReadFile("nss/func.nsa")
	if err != nil || string(data) != "ok" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}
}

func TestMulti(t *testing.T) {
	patch, _ := NewFSProvider(fstest.MapFS{"a.txt": {Data: []byte("patched")}}, "")
	base, _ := NewFSProvider(fstest.MapFS{
		"a.txt": {Data: []byte("original")},
		"b.txt": {Data: []byte("base")},
	}, "")
	m := Multi{patch, base}

	if data, _ := m.ReadFile("a.txt"); string(data) != "patched" {
		t.Errorf("a.txt = %q, want patched", data)
	}
	if data, _ := m.ReadFile("b.txt"); string(data) != "base" {
		t.Errorf("b.txt = %q, want base", data)
	}
	if _, err := m.ReadFile("c.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
	if !m.Exists("b.txt") || m.Exists("c.txt") {
		t.Error("Exists mismatch")
	}
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"\\nss\\boot.nss": "nss/boot.nss",
		"/a/../b":         "b",
		"":                ".",
		"/":               ".",
		"\\..\\":          ".",
	}
	for in, want := range tests {
		if got := CleanPath(in); got != want {
			t.Errorf("CleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}
