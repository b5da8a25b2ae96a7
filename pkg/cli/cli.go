package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zurustar/hvm/pkg/opcode"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	ProgramPath string // 実行するプログラムファイルのパス
	InitPath    string // 初期メモリファイルのパス（空なら未指定）
	ConfigPath  string // 設定ファイル（TOML）のパス
	DumpPath    string // 終了時の状態スナップショットの出力先
	LogLevel    string // ログレベル（空なら設定ファイルまたはデフォルト）
	Trace       bool   // 命令ごとのトレース出力
	TraceSet    bool   // Traceがフラグまたは環境変数で明示的に指定されたか
	ShowHelp    bool   // ヘルプ表示フラグ
}

// UsageError は引数の誤りを表す。呼び出し側は使い方を表示して終了する
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return "usage: " + e.Reason
}

// 値を取らないフラグ
var boolFlags = map[string]bool{
	"-h": true, "--h": true,
	"-help": true, "--help": true,
	"-trace": true, "--trace": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	if len(args) == 0 {
		return nil, &UsageError{Reason: "no program file given"}
	}

	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("hvm", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	fs.StringVar(&config.InitPath, "init", "", "初期メモリファイル")
	fs.StringVar(&config.ConfigPath, "config", "", "設定ファイル（TOML）")
	fs.StringVar(&config.DumpPath, "dump", "", "終了時の状態をCBORで書き出すファイル")
	fs.StringVar(&config.LogLevel, "log-level", "", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "", "ログレベル（短縮形）")
	fs.BoolVar(&config.Trace, "trace", false, "命令ごとのトレースを標準エラー出力に表示")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, &UsageError{Reason: err.Error()}
	}

	if config.ShowHelp {
		return config, nil
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "trace" {
			config.TraceSet = true
		}
	})

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.TraceSet {
		if traceEnv := os.Getenv("HVM_TRACE"); traceEnv != "" {
			config.Trace = traceEnv == "1" || strings.ToLower(traceEnv) == "true"
			config.TraceSet = true
		}
	}
	if config.LogLevel == "" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	// ログレベルの検証
	if config.LogLevel != "" {
		validLogLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLogLevels[config.LogLevel] {
			return nil, &UsageError{Reason: fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)}
		}
	}

	// 位置引数（プログラムファイル）はちょうど1つ
	switch fs.NArg() {
	case 0:
		return nil, &UsageError{Reason: "no program file given"}
	case 1:
		config.ProgramPath = fs.Arg(0)
	default:
		return nil, &UsageError{Reason: fmt.Sprintf("unexpected argument %q", fs.Arg(1))}
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string
	dangling := false // 値を取るフラグが末尾にあり値がない

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" 以降はすべて位置引数
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// "--init=path" の形式は次の引数を消費しない
			if strings.Contains(arg, "=") || boolFlags[arg] {
				continue
			}

			// 次の引数を値として取り込む
			if i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			} else {
				dangling = true
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	// "-" で始まる位置引数をフラグと誤認しないよう区切りを入れる
	if len(positional) > 0 && !dangling {
		flags = append(flags, "--")
	}
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `hvm - stack machine interpreter

Usage:
  hvm [options] <program-file>

Arguments:
  program-file    実行するプログラム（1バイト1命令）

Options:
  --init <path>               初期メモリファイル（カンマ区切りの整数: cell0,cell1,...）
  --trace                     命令ごとに位置・命令・スタックを標準エラー出力に表示
  --dump <path>               正常終了時のマシン状態をCBORで書き出す
  --config <path>             設定ファイル（デフォルト: ./hvm.toml があれば使用）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: warn）
  -h, --help                  このヘルプを表示

Environment Variables:
  HVM_TRACE=1                 トレースを有効化
  LOG_LEVEL=<level>           ログレベル

Instructions:
  0-9   push digit
`)
	for _, info := range opcode.All() {
		fmt.Fprintf(w, "  %c     %-11s %s\n", byte(info.Op), info.Name, info.Effect)
	}
	fmt.Fprint(w, `
Examples:
  hvm prog.hvm                    プログラムを実行
  hvm --init mem.txt prog.hvm     メモリを初期化してから実行
  hvm --trace prog.hvm            トレース付きで実行
`)
}
