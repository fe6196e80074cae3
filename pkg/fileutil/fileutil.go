// Package fileutil provides the resource provider the interpreter reads
// scripts, images and sounds through. Game data shipped for case-insensitive
// file systems is resolved one path component at a time, ignoring case.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// FileSystem は実ファイルシステムと埋め込みファイルシステムを統一的に扱うインターフェース
type FileSystem interface {
	// Open はファイルを開く（大文字小文字を無視）
	Open(name string) (fs.File, error)
	// ReadFile はファイルの内容を読み込む（大文字小文字を無視）
	ReadFile(name string) ([]byte, error)
	// Exists はファイルが存在するかを返す
	Exists(name string) bool
}

// Provider resolves resources inside an fs.FS.
type Provider struct {
	fsys fs.FS
	name string
}

// NewDirProvider は実ディレクトリ用のProviderを作成する
func NewDirProvider(dir string) *Provider {
	return &Provider{fsys: os.DirFS(dir), name: dir}
}

// NewFSProvider は埋め込みファイルシステム用のProviderを作成する
// base が空でなければそのサブディレクトリをルートとして扱う
func NewFSProvider(fsys fs.FS, base string) (*Provider, error) {
	if base != "" && base != "." {
		sub, err := fs.Sub(fsys, base)
		if err != nil {
			return nil, fmt.Errorf("invalid base %s: %w", base, err)
		}
		fsys = sub
	}
	return &Provider{fsys: fsys, name: base}, nil
}

// String returns the root the provider was created for.
func (p *Provider) String() string {
	return p.name
}

// Open opens a resource for streaming.
func (p *Provider) Open(name string) (fs.File, error) {
	actual, err := p.Resolve(name)
	if err != nil {
		return nil, err
	}
	return p.fsys.Open(actual)
}

// ReadFile reads a whole resource.
func (p *Provider) ReadFile(name string) ([]byte, error) {
	actual, err := p.Resolve(name)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(p.fsys, actual)
}

// Exists reports whether a resource can be resolved.
func (p *Provider) Exists(name string) bool {
	_, err := p.Resolve(name)
	return err == nil
}

// Resolve maps a script-supplied path onto the actual path inside the file
// system, matching every component case-insensitively.
func (p *Provider) Resolve(name string) (string, error) {
	clean := CleanPath(name)
	if clean == "." {
		return "", &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	// まず直接アクセスを試みる
	if _, err := fs.Stat(p.fsys, clean); err == nil {
		return clean, nil
	}

	dir := "."
	for _, part := range strings.Split(clean, "/") {
		actual, err := FindFileCaseInsensitiveFS(p.fsys, dir, part)
		if err != nil {
			return "", &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		dir = actual
	}
	return dir, nil
}

// CleanPath normalises separators and strips leading slashes so that
// script paths like "\nss\boot.nss" and "/nss/boot.nss" address the same file.
func CleanPath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if clean := strings.TrimPrefix(path.Clean("/"+name), "/"); clean != "" {
		return clean
	}
	return "."
}

// FindFileCaseInsensitiveFS searches dir for an entry named filename,
// ignoring case, and returns its path inside fsys.
func FindFileCaseInsensitiveFS(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if strings.EqualFold(entry.Name(), filename) {
			return path.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, fs.ErrNotExist)
}

// Multi searches several file systems in order; earlier entries win.
// Patch directories are layered in front of the base game data this way.
type Multi []FileSystem

// Open implements FileSystem.
func (m Multi) Open(name string) (fs.File, error) {
	for _, f := range m {
		if file, err := f.Open(name); err == nil {
			return file, nil
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// ReadFile implements FileSystem.
func (m Multi) ReadFile(name string) ([]byte, error) {
	var firstErr error
	for _, f := range m {
		data, err := f.ReadFile(name)
		if err == nil {
			return data, nil
		}
		if firstErr == nil || !errors.Is(err, fs.ErrNotExist) {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return nil, firstErr
}

// Exists implements FileSystem.
func (m Multi) Exists(name string) bool {
	for _, f := range m {
		if f.Exists(name) {
			return true
		}
	}
	return false
}
