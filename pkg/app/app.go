package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zurustar/hvm/pkg/cli"
	"github.com/zurustar/hvm/pkg/config"
	"github.com/zurustar/hvm/pkg/fileutil"
	"github.com/zurustar/hvm/pkg/logger"
	"github.com/zurustar/hvm/pkg/script"
	"github.com/zurustar/hvm/pkg/snapshot"
	"github.com/zurustar/hvm/pkg/vm"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config  *cli.Config
	log     *slog.Logger
	stdout  io.Writer // プログラムの出力先
	stderr  io.Writer // トレース・ログ・使い方の出力先
	workDir string    // hvm.toml を探すディレクトリ
}

// New Applicationを作成
func New(stdout, stderr io.Writer) *Application {
	return &Application{
		stdout:  stdout,
		stderr:  stderr,
		workDir: ".",
	}
}

// Run アプリケーションを実行
// 実行時エラーの場合、出力バッファは書き出さずにエラーを返す
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		cli.PrintHelp(app.stderr)
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. 設定ファイルの読み込み
	if err := app.loadSettings(); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// 3. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("Application started", "program", app.config.ProgramPath, "init", app.config.InitPath, "trace", app.config.Trace)

	// 4. プログラムと初期メモリの読み込み（ファイル名は厳密に一致させる）
	loader := script.NewLoader(fileutil.NewRealFS(""))
	program, err := loader.LoadProgram(app.config.ProgramPath)
	if err != nil {
		return fmt.Errorf("failed to load program: %w", err)
	}

	opts := []vm.Option{vm.WithLogger(app.log)}
	if app.config.InitPath != "" {
		image, err := loader.LoadMemoryImage(app.config.InitPath)
		if err != nil {
			return fmt.Errorf("failed to load memory image: %w", err)
		}
		opts = append(opts, vm.WithMemoryImage(image))
	}
	if app.config.Trace {
		opts = append(opts, vm.WithTracer(vm.NewWriterTracer(app.stderr)))
	}

	// 5. 実行
	machine := vm.New(program, opts...)
	if err := machine.Run(); err != nil {
		return fmt.Errorf("execution aborted: %w", err)
	}

	// 6. 状態スナップショットの書き出し（失敗時は何も出力しない）
	if app.config.DumpPath != "" {
		if err := snapshot.WriteFile(app.config.DumpPath, snapshot.FromState(machine.State())); err != nil {
			return fmt.Errorf("failed to dump state: %w", err)
		}
		app.log.Info("State dumped", "path", app.config.DumpPath)
	}

	// 7. 出力バッファの書き出し（正常終了時のみ）
	if err := machine.Output().Flush(app.stdout); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	app.log.Info("Application terminated normally", "steps", machine.Steps())
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// loadSettings 設定ファイルを読み込んでコマンドライン引数に反映
// --config の指定がなければ作業ディレクトリの hvm.toml を探す
func (app *Application) loadSettings() error {
	var (
		settings *config.Settings
		err      error
	)
	if app.config.ConfigPath != "" {
		settings, err = config.Load(app.config.ConfigPath)
	} else {
		settings, err = config.FindAndLoad(app.workDir)
	}
	if err != nil {
		return vm.NewLoadError("cannot load settings", err)
	}

	settings.Apply(app.config)
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel, app.stderr); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// 終了コード
const (
	ExitOK       = 0
	ExitInternal = 1
	ExitUsage    = 2
)

var exitCodes = map[vm.ErrorType]int{
	vm.ErrorLoad:               3,
	vm.ErrorStackUnderflow:     10,
	vm.ErrorCallStackUnderflow: 11,
	vm.ErrorOutOfRange:         12,
	vm.ErrorIllegalOpcode:      13,
	vm.ErrorInvalidCodepoint:   14,
	vm.ErrorDivideByZero:       15,
}

// ExitCode エラーの種類に応じた終了コードを返す
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usageErr *cli.UsageError
	if errors.As(err, &usageErr) {
		return ExitUsage
	}

	var runtimeErr *vm.RuntimeError
	if errors.As(err, &runtimeErr) {
		if code, ok := exitCodes[runtimeErr.Type]; ok {
			return code
		}
	}

	return ExitInternal
}
