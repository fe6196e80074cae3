package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	GameDir     string        // ゲームのディレクトリ
	StartScript string        // 起動スクリプト（空なら nsbi.toml の設定）
	StartSymbol string        // 起動シンボル
	ConfigPath  string        // 設定ファイルのパス（空ならゲームディレクトリの nsbi.toml）
	Steps       int           // フレームあたりのスケジューラ実行回数（0 は設定ファイルに従う）
	Timeout     time.Duration // タイムアウト時間（0は無制限）
	LogLevel    string        // ログレベル（debug, info, warn, error）
	Headless    bool          // ヘッドレスモード
	Debug       bool          // デバッガを有効にする
	ShowHelp    bool          // ヘルプ表示フラグ
}

// boolFlags は値を取らないフラグ
var boolFlags = map[string]bool{
	"h": true, "help": true,
	"headless": true,
	"d": true, "debug": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("nsbi", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	var timeoutSec int
	var start string
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.BoolVar(&config.Debug, "debug", false, "デバッガを有効にする")
	fs.BoolVar(&config.Debug, "d", false, "デバッガを有効にする（短縮形）")
	fs.StringVar(&config.ConfigPath, "config", "", "設定ファイル")
	fs.StringVar(&config.ConfigPath, "c", "", "設定ファイル（短縮形）")
	fs.StringVar(&start, "start", "", "起動スクリプト[:シンボル]")
	fs.IntVar(&config.Steps, "steps", 0, "フレームあたりの実行回数")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		config.Headless = envBool("HEADLESS")
	}
	if !config.Debug {
		config.Debug = envBool("NSBI_DEBUG")
	}
	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}
	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	if config.Steps < 0 {
		return nil, fmt.Errorf("steps must be non-negative, got %d", config.Steps)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	if start != "" {
		config.StartScript, config.StartSymbol = splitStart(start)
	}

	// 位置引数（ゲームのパス）
	if fs.NArg() > 0 {
		path := fs.Arg(0)

		// スクリプトファイルが指定された場合、ディレクトリと起動スクリプトに分離
		if isScriptFile(path) {
			config.GameDir = filepath.Dir(path)
			if config.StartScript == "" {
				config.StartScript = filepath.Base(path)
			}
		} else {
			config.GameDir = path
		}
	}
	if config.GameDir == "" {
		config.GameDir = "."
	}

	return config, nil
}

func envBool(name string) bool {
	v := strings.ToLower(os.Getenv(name))
	return v == "1" || v == "true"
}

// splitStart は "script:symbol" を分割する
func splitStart(s string) (string, string) {
	if i := strings.LastIndexByte(s, ':'); i > 0 && isScriptFile(s[:i]) {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func isScriptFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nsb", ".nss", ".nsa":
		return true
	}
	return false
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// -t 5 のように次の引数が値の場合
			name := strings.TrimLeft(arg, "-")
			if strings.Contains(name, "=") || boolFlags[name] {
				continue
			}
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `nsbi - NSB/NSS script interpreter

Usage:
  nsbi [options] [game-path]

Arguments:
  game-path     ゲームのディレクトリ、または起動スクリプト（.nsb/.nss/.nsa）のパス
                省略時はカレントディレクトリ

Options:
  -t, --timeout <seconds>     指定秒数後にプログラムを終了（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  -c, --config <file>         設定ファイル（デフォルト: <game-path>/nsbi.toml）
  --start <script[:symbol]>   起動スクリプトとシンボル
  --steps <n>                 フレームあたりのスケジューラ実行回数
  --headless                  ヘッドレスモード（GUIなし）
  -d, --debug                 コンソールデバッガを有効化
  -h, --help                  このヘルプを表示

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  NSBI_DEBUG=1                コンソールデバッガを有効化

Examples:
  nsbi /path/to/game                  nsbi.toml の設定で起動
  nsbi /path/to/game/boot.nsb         起動スクリプトを明示的に指定
  nsbi --start boot.nsb:chapter.start /path/to/game
  nsbi --headless --timeout 10 /path/to/game
  nsbi -d /path/to/game               デバッガ付きで起動
`)
}
