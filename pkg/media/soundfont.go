package media

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/zurustar/nsbi/pkg/fileutil"
)

// ErrSoundFontNotFound is returned when the SoundFont file cannot be read.
var ErrSoundFontNotFound = fmt.Errorf("SoundFont file not found")

// ReadSoundFont reads a SoundFont file through fsys, or from the real
// file system when fsys is nil or does not have it.
func ReadSoundFont(fsys fileutil.FileSystem, path string) ([]byte, error) {
	if fsys != nil {
		if data, err := fsys.ReadFile(path); err == nil {
			return data, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSoundFontNotFound, path)
	}
	return data, nil
}

// LoadSoundFont reads and parses a SoundFont file.
func LoadSoundFont(fsys fileutil.FileSystem, path string) (*meltysynth.SoundFont, error) {
	data, err := ReadSoundFont(fsys, path)
	if err != nil {
		return nil, err
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SoundFont: %w", err)
	}
	return sf, nil
}
