// Package window runs the interpreter inside an Ebitengine game loop, or
// in a plain loop when there is no display.
package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/zurustar/nsbi/pkg/logger"
	"github.com/zurustar/nsbi/pkg/vm"
)

// DefaultSteps is the number of scheduler ticks run per frame.
const DefaultSteps = 1

// FrameInterval matches Ebitengine's default tick rate.
const FrameInterval = time.Second / 60

// Runner is the part of the interpreter the loop drives.
type Runner interface {
	Run(n int)
	Done() bool
	Stop()
	PushEvent(e vm.Event)
}

// Renderer draws the interpreter's textures.
type Renderer interface {
	Size() (width, height int)
	Flush()
	Draw(screen *ebiten.Image)
}

// Poller is polled once per frame before the interpreter runs. The
// debugger implements it.
type Poller interface {
	Poll()
}

// Game implements ebiten.Game.
type Game struct {
	runner   Runner
	renderer Renderer
	poller   Poller

	steps      int
	timeout    time.Duration
	startTime  time.Time
	exitOnDone bool
	now        func() time.Time

	lastX, lastY int
	log          *slog.Logger
}

// Option configures a Game.
type Option func(*Game)

// WithSteps sets the scheduler ticks per frame.
func WithSteps(n int) Option {
	return func(g *Game) {
		if n > 0 {
			g.steps = n
		}
	}
}

// WithTimeout ends the loop after d. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(g *Game) {
		g.timeout = d
	}
}

// WithPoller polls p once per frame.
func WithPoller(p Poller) Option {
	return func(g *Game) {
		g.poller = p
	}
}

// WithExitOnDone closes the window once the main script has finished.
func WithExitOnDone(on bool) Option {
	return func(g *Game) {
		g.exitOnDone = on
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(g *Game) {
		g.log = log
	}
}

// NewGame creates a Game driving runner and drawing with renderer.
func NewGame(runner Runner, renderer Renderer, opts ...Option) *Game {
	g := &Game{
		runner:     runner,
		renderer:   renderer,
		steps:      DefaultSteps,
		exitOnDone: true,
		now:        time.Now,
		log:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.startTime = g.now()
	return g
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.log.Info("Escape pressed, stopping")
		g.runner.Stop()
		return ebiten.Termination
	}
	g.processMouseEvents()
	g.processKeyboardEvents()
	return g.step()
}

// step runs one frame of interpretation.
func (g *Game) step() error {
	if g.timeout > 0 && g.now().Sub(g.startTime) >= g.timeout {
		g.log.Info("Timeout reached, stopping", "timeout", g.timeout)
		g.runner.Stop()
		return ebiten.Termination
	}
	if g.poller != nil {
		g.poller.Poll()
	}
	g.runner.Run(g.steps)
	g.renderer.Flush()
	if g.exitOnDone && g.runner.Done() {
		g.log.Info("Script finished")
		return ebiten.Termination
	}
	return nil
}

func (g *Game) processMouseEvents() {
	x, y := g.clamp(ebiten.CursorPosition())
	now := g.now()

	if x != g.lastX || y != g.lastY {
		g.runner.PushEvent(vm.Event{Type: vm.EventMove, X: x, Y: y, Timestamp: now})
		g.lastX, g.lastY = x, y
	}
	// クリックはボタンを離した時点で完了
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		g.runner.PushEvent(vm.Event{Type: vm.EventClick, X: x, Y: y, Timestamp: now})
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		g.runner.PushEvent(vm.Event{Type: vm.EventRightClick, X: x, Y: y, Timestamp: now})
	}
}

var namedKeys = []struct {
	key  ebiten.Key
	name string
}{
	{ebiten.KeyEnter, "Enter"},
	{ebiten.KeySpace, "Space"},
	{ebiten.KeyUp, "Up"},
	{ebiten.KeyDown, "Down"},
	{ebiten.KeyLeft, "Left"},
	{ebiten.KeyRight, "Right"},
	{ebiten.KeyControl, "Control"},
}

func (g *Game) processKeyboardEvents() {
	now := g.now()
	for _, k := range namedKeys {
		if inpututil.IsKeyJustPressed(k.key) {
			g.runner.PushEvent(vm.Event{Type: vm.EventKey, Key: k.name, Timestamp: now})
		}
	}
	for k := ebiten.KeyA; k <= ebiten.KeyZ; k++ {
		if inpututil.IsKeyJustPressed(k) {
			name := string(rune('a' + (k - ebiten.KeyA)))
			g.runner.PushEvent(vm.Event{Type: vm.EventKey, Key: name, Timestamp: now})
		}
	}
}

// clamp keeps a cursor position inside the logical screen.
func (g *Game) clamp(x, y int) (int, int) {
	w, h := g.renderer.Size()
	x = max(0, min(x, w-1))
	y = max(0, min(y, h-1))
	return x, y
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	g.renderer.Draw(screen)
}

// Layout implements ebiten.Game. The logical screen always has the
// renderer's size and Ebitengine scales it into the window.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.renderer.Size()
}

// Run opens a window and runs game until it terminates.
func Run(game *Game, title string) error {
	w, h := game.renderer.Size()
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(game); err != nil {
		return fmt.Errorf("failed to run game: %w", err)
	}
	return nil
}

// HeadlessConfig configures RunHeadless.
type HeadlessConfig struct {
	Steps    int           // scheduler ticks per frame
	Interval time.Duration // time between frames; zero runs frames back to back
	Timeout  time.Duration // zero means no limit
	Poller   Poller
	Logger   *slog.Logger
}

// RunHeadless drives runner without a window until it is done, the
// timeout expires or ctx is cancelled. An expired timeout is not an error.
func RunHeadless(ctx context.Context, runner Runner, cfg HeadlessConfig) error {
	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	steps := cfg.Steps
	if steps <= 0 {
		steps = DefaultSteps
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var tick <-chan time.Time
	if cfg.Interval > 0 {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	frames := 0
	for {
		if cfg.Poller != nil {
			cfg.Poller.Poll()
		}
		runner.Run(steps)
		frames++
		if runner.Done() {
			log.Info("Script finished", "frames", frames)
			return nil
		}

		if tick != nil {
			select {
			case <-ctx.Done():
			case <-tick:
			}
		}
		if err := ctx.Err(); err != nil {
			runner.Stop()
			if errors.Is(err, context.DeadlineExceeded) {
				log.Info("Timeout reached, terminating", "frames", frames)
				return nil
			}
			return err
		}
	}
}
