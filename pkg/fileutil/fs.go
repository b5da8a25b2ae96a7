// Package fileutil provides unified access to the real file system and to
// fs.FS implementations for loading programs and memory images.
package fileutil

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileSystem は実ファイルシステムとfs.FSを統一的に扱うインターフェース
type FileSystem interface {
	// ReadFile はファイルの内容を読み込む
	ReadFile(name string) ([]byte, error)
	// BasePath はベースパスを返す
	BasePath() string
}

// RealFS は実ファイルシステムへのアクセスを提供する
type RealFS struct {
	basePath     string
	caseFallback bool
}

// NewRealFS は実ファイルシステム用のFileSystemを作成する
// basePathが空の場合、相対パスはカレントディレクトリから解決する
func NewRealFS(basePath string) *RealFS {
	return &RealFS{basePath: basePath}
}

// WithCaseFallback 見つからないファイルを大文字小文字を無視して探すようにする
func (r *RealFS) WithCaseFallback() *RealFS {
	r.caseFallback = true
	return r
}

func (r *RealFS) ReadFile(name string) ([]byte, error) {
	p := r.resolvePath(name)

	// まず直接アクセスを試みる
	data, err := os.ReadFile(p)
	if err == nil || !r.caseFallback || !os.IsNotExist(err) {
		return data, err
	}

	// 大文字小文字を無視して検索
	actual, findErr := FindFileCaseInsensitive(filepath.Dir(p), filepath.Base(p))
	if findErr != nil {
		return nil, err
	}
	return os.ReadFile(actual)
}

func (r *RealFS) BasePath() string {
	return r.basePath
}

func (r *RealFS) resolvePath(name string) string {
	if r.basePath != "" && !filepath.IsAbs(name) {
		return filepath.Join(r.basePath, name)
	}
	return name
}

// FSys はfs.FS（embed.FSやfstest.MapFSなど）へのアクセスを提供する
type FSys struct {
	fsys         fs.FS
	basePath     string
	caseFallback bool
}

// NewFSys はfs.FS用のFileSystemを作成する
func NewFSys(fsys fs.FS, basePath string) *FSys {
	return &FSys{fsys: fsys, basePath: basePath}
}

// WithCaseFallback 見つからないファイルを大文字小文字を無視して探すようにする
func (e *FSys) WithCaseFallback() *FSys {
	e.caseFallback = true
	return e
}

func (e *FSys) ReadFile(name string) ([]byte, error) {
	p := e.resolvePath(name)

	data, err := fs.ReadFile(e.fsys, p)
	if err == nil || !e.caseFallback {
		return data, err
	}

	// 大文字小文字を無視して検索（fs.FSでは "/" を使用）
	actual, findErr := FindFileCaseInsensitiveFS(e.fsys, path.Dir(p), path.Base(p))
	if findErr != nil {
		return nil, err
	}
	return fs.ReadFile(e.fsys, actual)
}

func (e *FSys) BasePath() string {
	return e.basePath
}

func (e *FSys) resolvePath(name string) string {
	// 先頭の "/" や "\" を除去
	cleanName := strings.TrimPrefix(strings.TrimPrefix(name, "/"), "\\")
	if e.basePath != "" {
		return path.Join(e.basePath, cleanName)
	}
	return cleanName
}
