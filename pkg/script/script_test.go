package script

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	xunicode "golang.org/x/text/encoding/unicode"

	"github.com/zurustar/hvm/pkg/fileutil"
	"github.com/zurustar/hvm/pkg/vm"
)

func isLoadError(err error) bool {
	var rerr *vm.RuntimeError
	return errors.As(err, &rerr) && rerr.Type == vm.ErrorLoad
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader(fileutil.NewRealFS("/test/path"))
	if loader == nil {
		t.Fatal("NewLoader returned nil")
	}
	if loader.fs.BasePath() != "/test/path" {
		t.Errorf("expected basePath '/test/path', got %q", loader.fs.BasePath())
	}
}

func TestLoadProgram(t *testing.T) {
	tmpDir := t.TempDir()
	// 非ASCIIバイトも含めてそのまま読み込まれることを確認
	content := []byte("12+p!\xe3\x81\x82")
	if err := os.WriteFile(filepath.Join(tmpDir, "prog.hvm"), content, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	loader := NewLoader(fileutil.NewRealFS(tmpDir))
	program, err := loader.LoadProgram("prog.hvm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(program) != string(content) {
		t.Errorf("program = %q, want %q", program, content)
	}
}

func TestLoadProgram_Missing(t *testing.T) {
	loader := NewLoader(fileutil.NewRealFS(t.TempDir()))
	_, err := loader.LoadProgram("missing.hvm")
	if !isLoadError(err) {
		t.Errorf("expected LOAD_ERROR, got %v", err)
	}
}

func TestLoadMemoryImage(t *testing.T) {
	mapFS := fstest.MapFS{
		"mem.txt": {Data: []byte("1, 2,3")},
		"bad.txt": {Data: []byte("1,x,3")},
	}
	loader := NewLoader(fileutil.NewFSys(mapFS, ""))

	values, err := loader.LoadMemoryImage("mem.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []vm.Word{1, 2, 3}
	if !equalWords(values, want) {
		t.Errorf("values = %v, want %v", values, want)
	}

	if _, err := loader.LoadMemoryImage("bad.txt"); !isLoadError(err) {
		t.Errorf("expected LOAD_ERROR for malformed token, got %v", err)
	}
	if _, err := loader.LoadMemoryImage("none.txt"); !isLoadError(err) {
		t.Errorf("expected LOAD_ERROR for missing file, got %v", err)
	}
}

func TestParseMemoryImage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []vm.Word
		wantErr bool
	}{
		{name: "空", input: "", want: nil},
		{name: "空白のみ", input: " \n\t", want: nil},
		{name: "基本", input: "1,2,3", want: []vm.Word{1, 2, 3}},
		{name: "空白を含む", input: "1, 2,3", want: []vm.Word{1, 2, 3}},
		{name: "改行区切り", input: "10,\n-20,\r\n+30\n", want: []vm.Word{10, -20, 30}},
		{name: "数字の途中の空白", input: "1 2, 3", want: []vm.Word{12, 3}},
		{name: "空の要素", input: ",,5,,6,", want: []vm.Word{5, 6}},
		{name: "境界値", input: "2147483647,-2147483648", want: []vm.Word{2147483647, -2147483648}},
		{name: "BOM付きUTF-8", input: "\xef\xbb\xbf7,8", want: []vm.Word{7, 8}},
		{name: "範囲外", input: "2147483648", wantErr: true},
		{name: "数値でない", input: "1,a", wantErr: true},
		{name: "16進", input: "0x10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMemoryImage(strings.NewReader(tt.input))
			if tt.wantErr {
				if !isLoadError(err) {
					t.Errorf("expected LOAD_ERROR, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !equalWords(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseMemoryImage_UTF16(t *testing.T) {
	for _, endian := range []xunicode.Endianness{xunicode.LittleEndian, xunicode.BigEndian} {
		encoded, err := xunicode.UTF16(endian, xunicode.UseBOM).NewEncoder().String("1, 2,3")
		if err != nil {
			t.Fatalf("failed to encode: %v", err)
		}

		got, err := ParseMemoryImage(strings.NewReader(encoded))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !equalWords(got, []vm.Word{1, 2, 3}) {
			t.Errorf("got %v, want [1 2 3]", got)
		}
	}
}

// 任意の整数列をカンマ区切りで書き出して読み戻すと元に戻る
func TestProperty_MemoryImageRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("formatted values parse back unchanged", prop.ForAll(
		func(values []int64, sep int) bool {
			separators := []string{",", ", ", " ,\n", ",\t,"}
			parts := make([]string, len(values))
			for i, v := range values {
				parts[i] = strconv.FormatInt(v, 10)
			}
			text := strings.Join(parts, separators[sep])

			got, err := ParseMemoryImage(strings.NewReader(text))
			if err != nil {
				return false
			}
			if len(got) != len(values) {
				return false
			}
			for i, v := range values {
				if got[i] != vm.Word(v) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(-2147483648, 2147483647)),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func equalWords(a, b []vm.Word) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
