package vm

import (
	"errors"
	"image"
	"time"
)

// ErrUnavailable is returned by the null collaborators used when the
// interpreter runs without a surface or media backend.
var ErrUnavailable = errors.New("feature unavailable")

// Clock supplies the time used for waits and motions.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock the interpreter uses by default.
var SystemClock Clock = systemClock{}

// Surface is the presentation layer the interpreter draws through. Add
// and Remove are called from the interpreter; implementations defer any
// GPU work to their own draw loop.
type Surface interface {
	Size() (width, height int)
	LoadImage(name string) (image.Image, error)
	Add(t *Texture)
	Remove(t *Texture)
}

// Media opens playables.
type Media interface {
	Open(name string, kind int32) (Playable, error)
}

// Playable is an audio or video stream.
type Playable interface {
	Play()
	Stop()
	Pause()
	Resume()
	SetVolume(volume float64) // 0.0 - 1.0
	SetLoop(loop bool)
	IsPlaying() bool
	Position() time.Duration
	Duration() time.Duration
	Close() error
}

// SaveStore persists save slots.
type SaveStore interface {
	Save(slot int, data *SaveData) error
	Load(slot int) (*SaveData, error)
}

type nullSurface struct{}

func (nullSurface) Size() (int, int) { return 800, 600 }

func (nullSurface) LoadImage(string) (image.Image, error) { return nil, ErrUnavailable }

func (nullSurface) Add(*Texture) {}

func (nullSurface) Remove(*Texture) {}

type nullMedia struct{}

func (nullMedia) Open(string, int32) (Playable, error) { return nil, ErrUnavailable }
