package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Engine.StartScript != DefaultStartScript {
		t.Errorf("StartScript = %q", c.Engine.StartScript)
	}
	if c.Engine.StepsPerFrame != DefaultSteps {
		t.Errorf("StepsPerFrame = %d", c.Engine.StepsPerFrame)
	}
	if c.Window.Width != 800 || c.Window.Height != 600 {
		t.Errorf("window = %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Debug.Enabled {
		t.Error("debugger must be off by default")
	}
}

func TestParse(t *testing.T) {
	doc := `
[engine]
start_script = "boot.nsb"
start_symbol = "chapter.start"
steps_per_frame = 4
save_key = "secret"

[window]
width = 640
title = "デモ"

[audio]
soundfont = "GeneralUser.sf2"
muted = true

[debug]
enabled = true
breakpoints = ["boot.nsb:3", "sub/chapter.nsb:10"]
`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if c.Engine.StartScript != "boot.nsb" || c.Engine.StartSymbol != "chapter.start" {
		t.Errorf("engine = %+v", c.Engine)
	}
	if c.Engine.StepsPerFrame != 4 || c.Engine.SaveKey != "secret" {
		t.Errorf("engine = %+v", c.Engine)
	}
	if c.Engine.SaveDir != DefaultSaveDir {
		t.Errorf("missing save_dir should default, got %q", c.Engine.SaveDir)
	}
	if c.Window.Width != 640 || c.Window.Height != DefaultHeight || c.Window.Title != "デモ" {
		t.Errorf("window = %+v", c.Window)
	}
	if c.Audio.SoundFont != "GeneralUser.sf2" || !c.Audio.Muted {
		t.Errorf("audio = %+v", c.Audio)
	}

	bps, err := c.ParsedBreakpoints()
	if err != nil {
		t.Fatal(err)
	}
	want := []Breakpoint{{"boot.nsb", 3}, {"sub/chapter.nsb", 10}}
	if len(bps) != len(want) {
		t.Fatalf("breakpoints = %+v", bps)
	}
	for i := range want {
		if bps[i] != want[i] {
			t.Errorf("breakpoint %d = %+v, want %+v", i, bps[i], want[i])
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"構文エラー", "[engine\n", "parse error"},
		{"未知のキー", "[engine]\nstart = 1\n", "unknown keys: engine.start"},
		{"型の不一致", "[window]\nwidth = \"wide\"\n", "parse error"},
		{"不正なブレークポイント", "[debug]\nbreakpoints = [\"main.nsb\"]\n", "invalid breakpoint"},
		{"負の行番号", "[debug]\nbreakpoints = [\"main.nsb:-1\"]\n", "bad line number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("ファイルなしはデフォルト", func(t *testing.T) {
		dir := t.TempDir()
		c, err := Load(dir)
		if err != nil {
			t.Fatal(err)
		}
		if c.Dir != dir || c.Engine.StartScript != DefaultStartScript {
			t.Errorf("config = %+v", c)
		}
		if c.SavePath() != filepath.Join(dir, DefaultSaveDir) {
			t.Errorf("SavePath = %q", c.SavePath())
		}
	})

	t.Run("ファイルを読む", func(t *testing.T) {
		dir := t.TempDir()
		doc := "[engine]\nsave_dir = \"/var/saves\"\n"
		if err := os.WriteFile(filepath.Join(dir, FileName), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
		c, err := Load(dir)
		if err != nil {
			t.Fatal(err)
		}
		if c.SavePath() != "/var/saves" {
			t.Errorf("absolute save_dir resolved to %q", c.SavePath())
		}
	})

	t.Run("壊れたファイルはエラー", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, FileName)
		if err := os.WriteFile(path, []byte("[[["), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(dir)
		if err == nil || !strings.Contains(err.Error(), path) {
			t.Errorf("expected error naming %s, got %v", path, err)
		}
	})

	t.Run("明示的なファイルは必須", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
