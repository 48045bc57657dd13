package selfupdate

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetName(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
		wantErr      bool
	}{
		{"linux", "amd64", "mockscope_linux_amd64.tar.gz", false},
		{"darwin", "arm64", "mockscope_darwin_arm64.tar.gz", false},
		{"windows", "amd64", "mockscope_windows_amd64.zip", false},
		{"linux", "riscv64", "", true},
		{"plan9", "amd64", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := AssetName(tt.goos, tt.goarch)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChecksums(t *testing.T) {
	sums := parseChecksums([]byte("abc123  mockscope_linux_amd64.tar.gz\n\nmalformed line here\ndef456  checksums.txt\n"))
	assert.Equal(t, map[string]string{
		"mockscope_linux_amd64.tar.gz": "abc123",
		"checksums.txt":                "def456",
	}, sums)
}

func TestVerifyChecksum(t *testing.T) {
	data := []byte("payload")
	sum := sha256.Sum256(data)

	assert.NoError(t, verifyChecksum(data, hex.EncodeToString(sum[:])))
	assert.ErrorIs(t, verifyChecksum(data, "00"), ErrChecksum)
}

func TestExtractBinary(t *testing.T) {
	t.Run("tar.gz", func(t *testing.T) {
		got, err := extractBinary(buildTarGz(t, "dist/mockscope", []byte("bin")), "x.tar.gz")
		require.NoError(t, err)
		assert.Equal(t, []byte("bin"), got)
	})

	t.Run("zip", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, err := zw.Create("mockscope.exe")
		require.NoError(t, err)
		_, err = w.Write([]byte("exe"))
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		got, err := extractBinary(buf.Bytes(), "x.zip")
		require.NoError(t, err)
		assert.Equal(t, []byte("exe"), got)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := extractBinary(buildTarGz(t, "README.md", []byte("hi")), "x.tar.gz")
		assert.ErrorContains(t, err, "not found in archive")
	})
}

func TestReplaceFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "mockscope")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o755))

	require.NoError(t, replaceFile(target, []byte("new")))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/abhisek/mockscope/releases/latest", r.URL.Path)
		_, _ = w.Write([]byte(`{"tag_name":"v1.2.0","html_url":"https://example.com/v1.2.0"}`))
	}))
	defer server.Close()
	c := NewChecker(WithBaseURL(server.URL))

	tests := []struct {
		current string
		want    bool
	}{
		{"v1.1.9", true},
		{"1.1.0", true},
		{"v1.2.0", false},
		{"v2.0.0", false},
		{"(devel)", false},
	}
	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			res, err := c.Check(context.Background(), tt.current)
			require.NoError(t, err)
			assert.Equal(t, "v1.2.0", res.Latest.Tag)
			assert.Equal(t, tt.want, res.UpdateAvailable)
		})
	}
}

func TestUpdate(t *testing.T) {
	asset, err := AssetName(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		t.Skipf("no release asset for this platform: %v", err)
	}
	name := binaryName
	if runtime.GOOS == "windows" {
		t.Skip("zip releases are covered by TestExtractBinary")
	}

	archive := buildTarGz(t, name, []byte("new-mockscope-binary"))
	sum := sha256.Sum256(archive)

	release := func(checksum string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/repos/abhisek/mockscope/releases/latest":
				_, _ = w.Write([]byte(`{"tag_name":"v2.0.0"}`))
			case "/abhisek/mockscope/releases/download/v2.0.0/" + asset:
				_, _ = w.Write(archive)
			case "/abhisek/mockscope/releases/download/v2.0.0/checksums.txt":
				if checksum == "" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				_, _ = fmt.Fprintf(w, "%s  %s\n", checksum, asset)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	}

	t.Run("happy path", func(t *testing.T) {
		server := release(hex.EncodeToString(sum[:]))
		defer server.Close()

		exe := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.WriteFile(exe, []byte("old"), 0o755))
		c := NewChecker(WithBaseURL(server.URL), WithDownloadBaseURL(server.URL),
			withExecPath(func() (string, error) { return exe, nil }))

		var stages []string
		err := c.Update(context.Background(), "v1.0.0", "", func(p Progress) {
			stages = append(stages, p.Stage)
		})
		require.NoError(t, err)

		got, err := os.ReadFile(exe)
		require.NoError(t, err)
		assert.Equal(t, []byte("new-mockscope-binary"), got)
		assert.Equal(t, []string{"check", "download", "verify", "extract", "apply", "done"}, stages)
	})

	t.Run("dev build", func(t *testing.T) {
		err := NewChecker().Update(context.Background(), "(devel)", "", nil)
		assert.ErrorIs(t, err, ErrDevBuild)
	})

	t.Run("already latest", func(t *testing.T) {
		server := release("")
		defer server.Close()
		err := NewChecker(WithBaseURL(server.URL)).Update(context.Background(), "v2.0.0", "", nil)
		assert.ErrorIs(t, err, ErrAlreadyLatest)
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		server := release("0000000000000000000000000000000000000000000000000000000000000000")
		defer server.Close()
		c := NewChecker(WithBaseURL(server.URL), WithDownloadBaseURL(server.URL))
		err := c.Update(context.Background(), "v1.0.0", "", nil)
		assert.ErrorIs(t, err, ErrChecksum)
	})

	t.Run("missing checksums", func(t *testing.T) {
		server := release("")
		defer server.Close()
		c := NewChecker(WithBaseURL(server.URL), WithDownloadBaseURL(server.URL))
		err := c.Update(context.Background(), "v1.0.0", "v2.0.0", nil)
		assert.ErrorContains(t, err, "download checksums")
	})
}

func buildTarGz(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     name,
		Size:     int64(len(content)),
		Mode:     0o755,
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return buf.Bytes()
}
