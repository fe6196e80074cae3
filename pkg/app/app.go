// Package app wires the interpreter to its configuration, resources,
// presentation and debugger, and runs it.
package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/zurustar/nsbi/pkg/cli"
	"github.com/zurustar/nsbi/pkg/config"
	"github.com/zurustar/nsbi/pkg/debugger"
	"github.com/zurustar/nsbi/pkg/fileutil"
	"github.com/zurustar/nsbi/pkg/graphics"
	"github.com/zurustar/nsbi/pkg/logger"
	"github.com/zurustar/nsbi/pkg/media"
	"github.com/zurustar/nsbi/pkg/savefile"
	"github.com/zurustar/nsbi/pkg/vm"
	"github.com/zurustar/nsbi/pkg/window"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config   *cli.Config
	settings *config.Config
	log      *slog.Logger

	gameFS fs.FS // 埋め込みゲーム（nil なら使わない）
	stdin  io.Reader
	stdout io.Writer

	provider fileutil.FileSystem
	surface  vm.Surface
	interp   *vm.Interpreter
	debugger *debugger.Debugger
	closers  []func()
}

// Option configures an Application.
type Option func(*Application)

// WithGameFS layers an embedded game under the game directory.
func WithGameFS(fsys fs.FS) Option {
	return func(app *Application) {
		app.gameFS = fsys
	}
}

// WithStdio replaces the console used by the debugger and help output.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(app *Application) {
		app.stdin = in
		app.stdout = out
	}
}

// New Applicationを作成
func New(opts ...Option) *Application {
	app := &Application{
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	cfg, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}
	app.config = cfg

	if cfg.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. ロガーの初期化
	if err := logger.InitLogger(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log = logger.GetLogger()
	app.log.Info("Application started", "game", cfg.GameDir, "headless", cfg.Headless)

	// 3. 設定ファイルの読み込み
	if err := app.loadSettings(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if app.settings.Debug.Enabled && app.stdout == os.Stdout {
		// デバッガのコンソールとログを分ける
		if err := logger.InitLoggerWithWriter(cfg.LogLevel, os.Stderr); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		app.log = logger.GetLogger()
	}

	// 4. リソースとインタプリタの構築
	if err := app.build(); err != nil {
		return err
	}
	defer app.close()

	// 5. 起動スクリプトの実行
	engine := app.settings.Engine
	if err := app.interp.Start(engine.StartScript, engine.StartSymbol); err != nil {
		return fmt.Errorf("failed to start %s: %w", engine.StartScript, err)
	}

	if err := app.loop(context.Background()); err != nil {
		return err
	}

	app.log.Info("Application terminated normally")
	return nil
}

// loadSettings reads nsbi.toml and applies command-line overrides.
func (app *Application) loadSettings() error {
	var (
		settings *config.Config
		err      error
	)
	if app.config.ConfigPath != "" {
		settings, err = config.LoadFile(app.config.ConfigPath)
	} else {
		settings, err = config.Load(app.config.GameDir)
	}
	if err != nil {
		return err
	}
	// 保存先は設定ファイルではなくゲームディレクトリ基準
	settings.Dir = app.config.GameDir

	if app.config.StartScript != "" {
		settings.Engine.StartScript = app.config.StartScript
		settings.Engine.StartSymbol = app.config.StartSymbol
	}
	if app.config.Steps > 0 {
		settings.Engine.StepsPerFrame = app.config.Steps
	}
	if app.config.Debug {
		settings.Debug.Enabled = true
	}
	app.settings = settings
	app.log.Debug("Config loaded", "start", settings.Engine.StartScript, "symbol", settings.Engine.StartSymbol,
		"steps", settings.Engine.StepsPerFrame, "debug", settings.Debug.Enabled)
	return nil
}

// build creates the resource provider, presentation, media and the
// interpreter.
func (app *Application) build() error {
	provider, err := app.buildProvider()
	if err != nil {
		return fmt.Errorf("failed to open game: %w", err)
	}
	app.provider = provider

	app.surface = app.buildSurface()
	mediaBackend := app.buildMedia()

	opts := []vm.Option{
		vm.WithLogger(app.log),
		vm.WithProvider(provider),
		vm.WithSurface(app.surface),
		vm.WithMedia(mediaBackend),
		vm.WithSaveStore(savefile.NewStore(app.settings.SavePath(), []byte(app.settings.Engine.SaveKey))),
	}
	app.interp = vm.New(opts...)
	app.closers = append(app.closers, app.interp.Close)

	if app.settings.Debug.Enabled {
		if err := app.attachDebugger(); err != nil {
			return err
		}
	}
	return nil
}

// buildProvider は実ディレクトリを優先し、埋め込みゲームを下に重ねる
func (app *Application) buildProvider() (fileutil.FileSystem, error) {
	dir := fileutil.NewDirProvider(app.config.GameDir)
	if app.gameFS == nil {
		return dir, nil
	}
	embedded, err := fileutil.NewFSProvider(app.gameFS, ".")
	if err != nil {
		return nil, err
	}
	return fileutil.Multi{dir, embedded}, nil
}

func (app *Application) buildSurface() vm.Surface {
	w := app.settings.Window
	if app.config.Headless {
		return graphics.NewHeadless(app.provider,
			graphics.WithHeadlessLogger(app.log),
			graphics.WithHeadlessSize(w.Width, w.Height),
		)
	}
	opts := []graphics.Option{
		graphics.WithLogger(app.log),
		graphics.WithSize(w.Width, w.Height),
	}
	if w.Font != "" {
		opts = append(opts, graphics.WithFont(w.Font, w.FontSize))
	}
	return graphics.NewSurface(app.provider, opts...)
}

func (app *Application) buildMedia() vm.Media {
	if app.config.Headless {
		app.log.Info("Headless mode: sounds are timed but not played")
		return media.NewSilent(app.provider, vm.SystemClock)
	}
	opts := []media.Option{
		media.WithLogger(app.log),
		media.WithMuted(app.settings.Audio.Muted),
	}
	if sf := findSoundFont(app.provider, app.settings.Audio.SoundFont); sf != "" {
		app.log.Info("SoundFont found", "path", sf)
		opts = append(opts, media.WithSoundFont(sf))
	} else {
		app.log.Warn("No SoundFont found, MIDI files will not play")
	}
	system := media.NewSystem(app.provider, opts...)
	app.closers = append(app.closers, system.Close)
	return system
}

// attachDebugger starts the console debugger and sets the configured
// breakpoints.
func (app *Application) attachDebugger() error {
	breakpoints, err := app.settings.ParsedBreakpoints()
	if err != nil {
		return err
	}
	prompt := false
	if f, ok := app.stdin.(*os.File); ok {
		prompt = term.IsTerminal(int(f.Fd()))
	}
	app.debugger = debugger.New(app.interp, app.stdin, app.stdout,
		debugger.WithPrompt(prompt),
		debugger.WithLogger(app.log),
	)
	for _, bp := range breakpoints {
		app.interp.AddBreakpoint(bp.Script, bp.Line)
	}
	app.log.Info("Debugger attached", "breakpoints", len(breakpoints), "prompt", prompt)
	return nil
}

// loop はヘッドレスループかウィンドウでインタプリタを実行する
func (app *Application) loop(ctx context.Context) error {
	var poller window.Poller
	if app.debugger != nil {
		poller = app.debugger
	}
	steps := app.settings.Engine.StepsPerFrame

	if app.config.Headless {
		return window.RunHeadless(ctx, app.interp, window.HeadlessConfig{
			Steps:    steps,
			Interval: window.FrameInterval,
			Timeout:  app.config.Timeout,
			Poller:   poller,
			Logger:   app.log,
		})
	}

	renderer, ok := app.surface.(window.Renderer)
	if !ok {
		return fmt.Errorf("surface %T cannot be drawn in a window", app.surface)
	}
	opts := []window.Option{
		window.WithSteps(steps),
		window.WithTimeout(app.config.Timeout),
		window.WithLogger(app.log),
	}
	if poller != nil {
		opts = append(opts, window.WithPoller(poller))
	}
	game := window.NewGame(app.interp, renderer, opts...)
	return window.Run(game, app.settings.Window.Title)
}

func (app *Application) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}
