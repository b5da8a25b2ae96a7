package script

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zurustar/hvm/pkg/fileutil"
	"github.com/zurustar/hvm/pkg/logger"
	"github.com/zurustar/hvm/pkg/vm"
)

// Loader はプログラムと初期メモリファイルの読み込みを行う
type Loader struct {
	fs  fileutil.FileSystem
	log *slog.Logger
}

// NewLoader Loaderを作成
func NewLoader(fsys fileutil.FileSystem) *Loader {
	return &Loader{
		fs:  fsys,
		log: logger.GetLogger(),
	}
}

// LoadProgram プログラムファイルを読み込む
// ファイルの内容はそのまま1バイト1命令として扱う（文字コード変換はしない）
func (l *Loader) LoadProgram(name string) ([]byte, error) {
	data, err := l.fs.ReadFile(name)
	if err != nil {
		return nil, vm.NewLoadError(fmt.Sprintf("cannot read program %s", name), err)
	}

	l.log.Info("Program loaded", "name", name, "size", len(data))
	return data, nil
}

// LoadMemoryImage 初期メモリファイルを読み込んで値の列を返す
func (l *Loader) LoadMemoryImage(name string) ([]vm.Word, error) {
	data, err := l.fs.ReadFile(name)
	if err != nil {
		return nil, vm.NewLoadError(fmt.Sprintf("cannot read memory image %s", name), err)
	}

	values, err := ParseMemoryImage(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	l.log.Info("Memory image loaded", "name", name, "cells", len(values))
	if len(values) > vm.MemoryCapacity {
		l.log.Warn("Memory image larger than memory, extra cells ignored", "cells", len(values), "capacity", vm.MemoryCapacity)
	}
	return values, nil
}

// ParseMemoryImage 初期メモリの内容を解析する
// 形式: カンマ区切りの10進整数（空白はすべて無視、空の要素は読み飛ばす）
// BOM付きUTF-8とUTF-16も受け付ける
func ParseMemoryImage(r io.Reader) ([]vm.Word, error) {
	text, err := decodeText(r)
	if err != nil {
		return nil, vm.NewLoadError("cannot decode memory image", err)
	}

	// 空白をすべて除去
	text = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	var values []vm.Word
	for i, token := range strings.Split(text, ",") {
		if token == "" {
			continue
		}
		n, err := strconv.ParseInt(token, 10, 32)
		if err != nil {
			return nil, vm.NewLoadError(fmt.Sprintf("memory image token %d (%q) is not a 32-bit integer", i, token), err)
		}
		values = append(values, vm.Word(n))
	}

	return values, nil
}

// decodeText BOMを見てUTF-8に変換（BOMがなければUTF-8として扱う）
func decodeText(r io.Reader) (string, error) {
	decoder := xunicode.BOMOverride(xunicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(r, decoder))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
