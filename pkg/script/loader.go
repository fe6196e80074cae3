package script

import (
	"bytes"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/zurustar/nsbi/pkg/logger"
)

// Provider reads raw resource bytes. fileutil.FileSystem satisfies it.
type Provider interface {
	ReadFile(name string) ([]byte, error)
}

// Loader loads scripts through a Provider and caches them by path.
// Paths are normalised so that "nss/boot.nss", "NSS/BOOT.NSB" and
// "nss/boot" address the same script.
type Loader struct {
	provider Provider
	scripts  map[string]*Script
	mu       sync.Mutex
	log      *slog.Logger
}

// NewLoader Loaderを作成
func NewLoader(provider Provider) *Loader {
	return &Loader{
		provider: provider,
		scripts:  make(map[string]*Script),
		log:      logger.GetLogger(),
	}
}

// Key normalises a script path into its cache key.
func Key(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	p = strings.ToLower(p)
	switch path.Ext(p) {
	case ".nss", ".nsb", ".nsa":
		p = strings.TrimSuffix(p, path.Ext(p))
	}
	return p
}

// Add registers an already decoded script under its own name.
func (l *Loader) Add(s *Script) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scripts[Key(s.Name())] = s
}

// Get returns the script for a path, loading it on first use.
// The NSB form (with its MAP file) is preferred; the textual .nsa form is
// the fallback.
func (l *Loader) Get(p string) (*Script, error) {
	key := Key(p)

	l.mu.Lock()
	if s, ok := l.scripts[key]; ok {
		l.mu.Unlock()
		return s, nil
	}
	l.mu.Unlock()

	s, err := l.load(p, key)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.scripts[key]; ok {
		return cached, nil
	}
	l.scripts[key] = s
	l.log.Debug("Script loaded", "path", p, "lines", s.Len(), "symbols", len(s.symbols))
	return s, nil
}

// Loaded returns every cached script.
func (l *Loader) Loaded() []*Script {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Script, 0, len(l.scripts))
	for _, s := range l.scripts {
		out = append(out, s)
	}
	return out
}

func (l *Loader) load(p, key string) (*Script, error) {
	if l.provider == nil {
		return nil, fmt.Errorf("script %s: no resource provider", p)
	}

	base := strings.TrimSuffix(p, path.Ext(p))
	if path.Ext(p) == "" || !isScriptExt(path.Ext(p)) {
		base = p
	}

	if nsb, err := l.provider.ReadFile(base + ".nsb"); err == nil {
		mapData, err := l.provider.ReadFile(base + ".map")
		if err != nil {
			l.log.Warn("Script has no symbol map", "path", base+".map", "error", err)
			mapData = nil
		}
		return Decode(key, nsb, mapData)
	}

	src, err := l.provider.ReadFile(base + ".nsa")
	if err != nil {
		return nil, fmt.Errorf("script %s not found: %w", p, err)
	}
	return Assemble(key, bytes.NewReader(src))
}

func isScriptExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".nss", ".nsb", ".nsa":
		return true
	}
	return false
}
