// Package config loads the nsbi.toml engine configuration of a game
// directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up in a game directory.
const FileName = "nsbi.toml"

// Defaults applied to keys missing from the file.
const (
	DefaultStartScript = "main.nsb"
	DefaultSteps       = 1
	DefaultSaveDir     = "save"
	DefaultWidth       = 800
	DefaultHeight      = 600
	DefaultTitle       = "nsbi"
	DefaultFontSize    = 16
)

// Config is the content of nsbi.toml.
type Config struct {
	Engine Engine `toml:"engine"`
	Window Window `toml:"window"`
	Audio  Audio  `toml:"audio"`
	Debug  Debug  `toml:"debug"`

	// Dir is the directory holding the file, set at load time.
	Dir string `toml:"-"`
}

// Engine configures the interpreter.
type Engine struct {
	StartScript   string `toml:"start_script"`
	StartSymbol   string `toml:"start_symbol"`
	StepsPerFrame int    `toml:"steps_per_frame"`
	SaveDir       string `toml:"save_dir"`
	SaveKey       string `toml:"save_key"`
}

// Window configures the game window.
type Window struct {
	Width    int     `toml:"width"`
	Height   int     `toml:"height"`
	Title    string  `toml:"title"`
	Font     string  `toml:"font"`
	FontSize float64 `toml:"font_size"`
}

// Audio configures playback.
type Audio struct {
	SoundFont string `toml:"soundfont"`
	Muted     bool   `toml:"muted"`
}

// Debug configures the console debugger.
type Debug struct {
	Enabled     bool     `toml:"enabled"`
	Breakpoints []string `toml:"breakpoints"`
}

// Breakpoint is a parsed "script:line" entry.
type Breakpoint struct {
	Script string
	Line   int
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Parse decodes a configuration document.
func Parse(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads nsbi.toml from dir. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		c := Default()
		c.Dir = dir
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return loadData(path, dir, data)
}

// LoadFile reads an explicitly named configuration file, which must exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return loadData(path, filepath.Dir(path), data)
}

func loadData(path, dir string, data []byte) (*Config, error) {
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Dir = dir
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.StartScript == "" {
		c.Engine.StartScript = DefaultStartScript
	}
	if c.Engine.StepsPerFrame <= 0 {
		c.Engine.StepsPerFrame = DefaultSteps
	}
	if c.Engine.SaveDir == "" {
		c.Engine.SaveDir = DefaultSaveDir
	}
	if c.Window.Width <= 0 {
		c.Window.Width = DefaultWidth
	}
	if c.Window.Height <= 0 {
		c.Window.Height = DefaultHeight
	}
	if c.Window.Title == "" {
		c.Window.Title = DefaultTitle
	}
	if c.Window.FontSize <= 0 {
		c.Window.FontSize = DefaultFontSize
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if _, err := c.ParsedBreakpoints(); err != nil {
		return err
	}
	return nil
}

// ParsedBreakpoints parses the [debug] breakpoints list. Lines are
// 0-indexed, as the debugger console prints them.
func (c *Config) ParsedBreakpoints() ([]Breakpoint, error) {
	out := make([]Breakpoint, 0, len(c.Debug.Breakpoints))
	for _, s := range c.Debug.Breakpoints {
		bp, err := ParseBreakpoint(s)
		if err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, nil
}

// ParseBreakpoint parses "script:line".
func ParseBreakpoint(s string) (Breakpoint, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return Breakpoint{}, fmt.Errorf("invalid breakpoint %q: want script:line", s)
	}
	line, err := strconv.Atoi(s[i+1:])
	if err != nil || line < 0 {
		return Breakpoint{}, fmt.Errorf("invalid breakpoint %q: bad line number", s)
	}
	return Breakpoint{Script: s[:i], Line: line}, nil
}

// SavePath returns the save directory, resolved against Dir when relative.
func (c *Config) SavePath() string {
	if filepath.IsAbs(c.Engine.SaveDir) || c.Dir == "" {
		return c.Engine.SaveDir
	}
	return filepath.Join(c.Dir, c.Engine.SaveDir)
}
