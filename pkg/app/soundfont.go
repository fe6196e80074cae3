package app

import (
	"os"
	"path/filepath"

	"github.com/zurustar/nsbi/pkg/fileutil"
)

// DefaultSoundFontName is the SoundFont looked for when none is configured.
const DefaultSoundFontName = "GeneralUser-GS.sf2"

// findSoundFont returns the SoundFont path to hand to the media system,
// or "" when there is none. The search order is:
//  1. the configured path, used as is
//  2. the game's resources (directory and embedded game)
//  3. the current directory
func findSoundFont(fsys fileutil.FileSystem, configured string) string {
	if configured != "" {
		return configured
	}
	if fsys != nil && fsys.Exists(DefaultSoundFontName) {
		return DefaultSoundFontName
	}
	if _, err := os.Stat(DefaultSoundFontName); err == nil {
		if abs, err := filepath.Abs(DefaultSoundFontName); err == nil {
			return abs
		}
		return DefaultSoundFontName
	}
	return ""
}
