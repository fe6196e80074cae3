package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// clearEnv は環境変数による上書きを無効にする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"HEADLESS", "TIMEOUT", "LOG_LEVEL", "NSBI_DEBUG"} {
		t.Setenv(name, "")
	}
}

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name:     "デフォルト設定",
			args:     []string{},
			expected: Config{GameDir: ".", LogLevel: "info"},
		},
		{
			name:     "ゲームパス指定",
			args:     []string{"/path/to/game"},
			expected: Config{GameDir: "/path/to/game", LogLevel: "info"},
		},
		{
			name:     "タイムアウト指定",
			args:     []string{"--timeout", "10"},
			expected: Config{GameDir: ".", Timeout: 10 * time.Second, LogLevel: "info"},
		},
		{
			name:     "タイムアウト指定（短縮形）",
			args:     []string{"-t", "5"},
			expected: Config{GameDir: ".", Timeout: 5 * time.Second, LogLevel: "info"},
		},
		{
			name:     "ログレベル指定（短縮形）",
			args:     []string{"-l", "error"},
			expected: Config{GameDir: ".", LogLevel: "error"},
		},
		{
			name:     "ヘッドレスモード",
			args:     []string{"--headless"},
			expected: Config{GameDir: ".", LogLevel: "info", Headless: true},
		},
		{
			name:     "デバッガ（短縮形）とゲームパス",
			args:     []string{"-d", "/path/to/game"},
			expected: Config{GameDir: "/path/to/game", LogLevel: "info", Debug: true},
		},
		{
			name:     "ヘルプ表示",
			args:     []string{"-h"},
			expected: Config{GameDir: ".", LogLevel: "info", ShowHelp: true},
		},
		{
			name:     "設定ファイルと実行回数",
			args:     []string{"-c", "alt.toml", "--steps", "8", "game"},
			expected: Config{GameDir: "game", ConfigPath: "alt.toml", Steps: 8, LogLevel: "info"},
		},
		{
			name:     "起動スクリプトとシンボル",
			args:     []string{"--start", "boot.nsb:chapter.start", "game"},
			expected: Config{GameDir: "game", StartScript: "boot.nsb", StartSymbol: "chapter.start", LogLevel: "info"},
		},
		{
			name:     "起動スクリプトのみ",
			args:     []string{"--start=sub/boot.nss"},
			expected: Config{GameDir: ".", StartScript: "sub/boot.nss", LogLevel: "info"},
		},
		{
			name:     "位置引数が最初（順序に関係なく動作）",
			args:     []string{"/path/to/game", "--timeout", "10", "--headless"},
			expected: Config{GameDir: "/path/to/game", Timeout: 10 * time.Second, LogLevel: "info", Headless: true},
		},
		{
			name:     "スクリプトファイルパス指定",
			args:     []string{"--headless", "games/demo/BOOT.NSB", "--timeout", "5"},
			expected: Config{GameDir: "games/demo", StartScript: "BOOT.NSB", Timeout: 5 * time.Second, LogLevel: "info", Headless: true},
		},
		{
			name:     "--start がスクリプトパスより優先",
			args:     []string{"--start", "other.nsb", "games/demo/boot.nsb"},
			expected: Config{GameDir: "games/demo", StartScript: "other.nsb", LogLevel: "info"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *config != tt.expected {
				t.Errorf("ParseArgs(%q) = %+v, want %+v", tt.args, *config, tt.expected)
			}
		})
	}
}

func TestParseArgs_Env(t *testing.T) {
	t.Run("環境変数で設定", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("HEADLESS", "1")
		t.Setenv("TIMEOUT", "7")
		t.Setenv("LOG_LEVEL", "DEBUG")
		t.Setenv("NSBI_DEBUG", "true")
		config, err := ParseArgs(nil)
		if err != nil {
			t.Fatal(err)
		}
		if !config.Headless || !config.Debug || config.Timeout != 7*time.Second || config.LogLevel != "debug" {
			t.Errorf("config = %+v", *config)
		}
	})

	t.Run("フラグが優先", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TIMEOUT", "7")
		t.Setenv("LOG_LEVEL", "warn")
		config, err := ParseArgs([]string{"-t", "3", "-l", "error"})
		if err != nil {
			t.Fatal(err)
		}
		if config.Timeout != 3*time.Second || config.LogLevel != "error" {
			t.Errorf("config = %+v", *config)
		}
	})

	t.Run("不正なTIMEOUTは無視", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TIMEOUT", "soon")
		config, err := ParseArgs(nil)
		if err != nil {
			t.Fatal(err)
		}
		if config.Timeout != 0 {
			t.Errorf("Timeout = %v", config.Timeout)
		}
	})
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"負のタイムアウト", []string{"--timeout", "-10"}},
		{"無効なログレベル", []string{"--log-level", "invalid"}},
		{"無効なログレベル（短縮形）", []string{"-l", "trace"}},
		{"負の実行回数", []string{"--steps=-1"}},
		{"未知のフラグ", []string{"--fullscreen"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := ParseArgs(tt.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"game", "-t", "5"}, []string{"-t", "5", "game"}},
		{[]string{"--headless", "game"}, []string{"--headless", "game"}},
		{[]string{"-d", "game", "-l", "debug"}, []string{"-d", "-l", "debug", "game"}},
		{[]string{"--steps=4", "game"}, []string{"--steps=4", "game"}},
	}
	for _, tt := range tests {
		got := reorderArgs(tt.args)
		if strings.Join(got, " ") != strings.Join(tt.want, " ") {
			t.Errorf("reorderArgs(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&buf)
	for _, want := range []string{"--headless", "--debug", "--config", "NSBI_DEBUG"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help text lacks %q", want)
		}
	}
}
