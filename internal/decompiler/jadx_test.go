package decompiler

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/apkscan/internal/model"
)

// fakeJadx returns a runner that executes script with sh. The script sees
// "-d" as $1, the output directory as $2 and the APK as $3.
func fakeJadx(t *testing.T, script string, opts ...Option) *Jadx {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	opts = append([]Option{WithPath("sh"), WithArgs("-c", script, "jadx")}, opts...)
	return NewJadx(opts...)
}

func writeAPK(t *testing.T) string {
	t.Helper()
	apk := filepath.Join(t.TempDir(), "app-release.apk")
	if err := os.WriteFile(apk, []byte("PK"), 0o600); err != nil {
		t.Fatal(err)
	}
	return apk
}

func TestJadx_Decompile(t *testing.T) {
	t.Parallel()

	const writeSources = `mkdir -p "$2/sources/a" && echo 'final class a {}' > "$2/sources/a/a.java"`

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		apk := writeAPK(t)
		out := filepath.Join(t.TempDir(), "out")

		if err := fakeJadx(t, writeSources).Decompile(context.Background(), apk, out); err != nil {
			t.Fatalf("Decompile() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(out, "sources", "a", "a.java")); err != nil {
			t.Errorf("expected decompiled file: %v", err)
		}
	})

	t.Run("non-zero exit", func(t *testing.T) {
		t.Parallel()

		apk := writeAPK(t)
		out := filepath.Join(t.TempDir(), "out")

		err := fakeJadx(t, `mkdir -p "$2/partial"; echo "ERROR - bad dex" >&2; exit 3`).
			Decompile(context.Background(), apk, out)
		if !errors.Is(err, ErrToolFailure) {
			t.Fatalf("error = %v, want ErrToolFailure", err)
		}
		if errors.Is(err, ErrTimedOut) {
			t.Errorf("error = %v, should not be a timeout", err)
		}
		if !strings.Contains(err.Error(), "bad dex") {
			t.Errorf("error %q does not carry stderr", err)
		}
		if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
			t.Errorf("partial output was not removed")
		}
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		apk := writeAPK(t)
		out := filepath.Join(t.TempDir(), "out")

		start := time.Now()
		err := fakeJadx(t, `sleep 30`, WithTimeout(200*time.Millisecond)).
			Decompile(context.Background(), apk, out)
		if !errors.Is(err, ErrTimedOut) {
			t.Fatalf("error = %v, want ErrTimedOut", err)
		}
		if !errors.Is(err, ErrToolFailure) {
			t.Errorf("ErrTimedOut should also match ErrToolFailure")
		}
		if elapsed := time.Since(start); elapsed > 10*time.Second {
			t.Errorf("timeout took %s", elapsed)
		}
	})

	t.Run("no output", func(t *testing.T) {
		t.Parallel()

		err := fakeJadx(t, `exit 0`).Decompile(context.Background(), writeAPK(t), filepath.Join(t.TempDir(), "out"))
		if !errors.Is(err, ErrToolFailure) {
			t.Errorf("error = %v, want ErrToolFailure", err)
		}
	})

	t.Run("missing executable", func(t *testing.T) {
		t.Parallel()

		j := NewJadx(WithPath("apkscan-no-such-decompiler"))
		err := j.Decompile(context.Background(), writeAPK(t), filepath.Join(t.TempDir(), "out"))
		if !errors.Is(err, ErrToolFailure) {
			t.Errorf("error = %v, want ErrToolFailure", err)
		}
	})

	t.Run("missing apk", func(t *testing.T) {
		t.Parallel()

		j := NewJadx()
		err := j.Decompile(context.Background(), filepath.Join(t.TempDir(), "none.apk"), t.TempDir())
		if !errors.Is(err, model.ErrInputNotFound) {
			t.Errorf("error = %v, want ErrInputNotFound", err)
		}
	})

	t.Run("populated output is reused unless forced", func(t *testing.T) {
		t.Parallel()

		apk := writeAPK(t)
		out := filepath.Join(t.TempDir(), "out")
		marker := filepath.Join(out, "marker")
		if err := os.MkdirAll(out, 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(marker, nil, 0o600); err != nil {
			t.Fatal(err)
		}

		if err := fakeJadx(t, `exit 9`).Decompile(context.Background(), apk, out); err != nil {
			t.Fatalf("reuse: Decompile() error = %v", err)
		}
		if _, err := os.Stat(marker); err != nil {
			t.Fatalf("existing output was touched: %v", err)
		}

		if err := fakeJadx(t, writeSources, WithForce(true)).Decompile(context.Background(), apk, out); err != nil {
			t.Fatalf("force: Decompile() error = %v", err)
		}
		if _, err := os.Stat(marker); !os.IsNotExist(err) {
			t.Errorf("forced run kept old output")
		}
	})
}

func TestOutputDir(t *testing.T) {
	t.Parallel()

	got := OutputDir("/data/decompiled", "/tmp/My App (1).apk")
	want := filepath.Join("/data/decompiled", "My_App__1_")
	if got != want {
		t.Errorf("OutputDir() = %q, want %q", got, want)
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"app-release", "app-release"},
		{"com.example_v2", "com.example_v2"},
		{"a b/c", "a_b_c"},
		{"日本", "__"},
		{"..", "unnamed"},
		{"", "unnamed"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeName(tt.in); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTailBuffer(t *testing.T) {
	t.Parallel()

	b := &tailBuffer{limit: 4}
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))
	if got := b.String(); got != "defg" {
		t.Errorf("String() = %q, want %q", got, "defg")
	}
}
