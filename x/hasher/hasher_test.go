package hasher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func input(name, content string) Input {
	return Input{
		Name:        name,
		Size:        int64(len(content)),
		ContentType: "application/octet-stream",
		Data:        bytes.NewReader([]byte(content)),
	}
}

func TestProcessHashesContent(t *testing.T) {
	t.Parallel()

	p := NewProcessor(DefaultConfig(), zerolog.Nop())

	files, err := p.Process(context.Background(), []Input{input("hello.txt", "hello world")})
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	require.Equal(t, FileStatusCompleted, f.Status)
	require.NotEmpty(t, f.ID)
	require.Equal(t, "hello.txt", f.Name)
	require.Equal(t, int64(11), f.Size)

	sum := sha256.Sum256([]byte("hello world"))
	require.Equal(t, "0x"+hex.EncodeToString(sum[:]), f.Hash)
}

func TestProcessIsDeterministic(t *testing.T) {
	t.Parallel()

	p := NewProcessor(DefaultConfig(), zerolog.Nop())
	ctx := context.Background()

	first, err := p.Process(ctx, []Input{input("a.pdf", "same bytes")})
	require.NoError(t, err)
	second, err := p.Process(ctx, []Input{input("b.pdf", "same bytes")})
	require.NoError(t, err)

	// Identical content yields the identical hash regardless of name.
	require.Equal(t, first[0].Hash, second[0].Hash)
	require.NotEqual(t, first[0].ID, second[0].ID)
}

func TestProcessRejectsOversizedFile(t *testing.T) {
	t.Parallel()

	cfg := Config{MaxFileSize: 16, MaxFiles: 10}
	p := NewProcessor(cfg, zerolog.Nop())

	t.Run("declared size too large", func(t *testing.T) {
		files, err := p.Process(context.Background(), []Input{input("big.bin", strings.Repeat("x", 17))})
		require.NoError(t, err)
		require.Equal(t, FileStatusError, files[0].Status)
		require.Contains(t, files[0].Error, "exceeds maximum size")
		require.Empty(t, files[0].Hash)
	})

	t.Run("under-reported size caught while reading", func(t *testing.T) {
		in := input("liar.bin", strings.Repeat("x", 32))
		in.Size = 8
		files, err := p.Process(context.Background(), []Input{in})
		require.NoError(t, err)
		require.Equal(t, FileStatusError, files[0].Status)
		require.Contains(t, files[0].Error, "exceeds maximum size")
	})
}

func TestProcessRejectsTooManyFiles(t *testing.T) {
	t.Parallel()

	cfg := Config{MaxFileSize: 1 << 20, MaxFiles: 2}
	p := NewProcessor(cfg, zerolog.Nop())

	_, err := p.Process(context.Background(), []Input{
		input("1", "a"), input("2", "b"), input("3", "c"),
	})
	require.ErrorContains(t, err, "too many files")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk error") }

func TestProcessIsolatesPerFileFailures(t *testing.T) {
	t.Parallel()

	p := NewProcessor(DefaultConfig(), zerolog.Nop())

	files, err := p.Process(context.Background(), []Input{
		input("good.txt", "fine"),
		{Name: "bad.txt", Size: 4, Data: failingReader{}},
		input("also-good.txt", "also fine"),
	})
	require.NoError(t, err)
	require.Len(t, files, 3)

	require.Equal(t, FileStatusCompleted, files[0].Status)
	require.Equal(t, FileStatusError, files[1].Status)
	require.Contains(t, files[1].Error, "hashing failed")
	require.Equal(t, FileStatusCompleted, files[2].Status)
}

type stubPinner struct {
	cid     string
	url     string
	err     error
	gotName string
	gotData []byte
}

func (s *stubPinner) Add(_ context.Context, name string, data io.Reader) (string, string, error) {
	s.gotName = name
	s.gotData, _ = io.ReadAll(data)
	if s.err != nil {
		return "", "", s.err
	}
	return s.cid, s.url, nil
}

func TestProcessPinsCompletedFiles(t *testing.T) {
	t.Parallel()

	pinner := &stubPinner{cid: "QmTest", url: "https://ipfs.io/ipfs/QmTest"}
	p := NewProcessor(DefaultConfig(), zerolog.Nop(), WithPinner(pinner))

	files, err := p.Process(context.Background(), []Input{input("doc.pdf", "pinned content")})
	require.NoError(t, err)

	f := files[0]
	require.Equal(t, FileStatusCompleted, f.Status)
	require.Equal(t, "QmTest", f.IPFSCID)
	require.Equal(t, "https://ipfs.io/ipfs/QmTest", f.IPFSURL)
	require.Equal(t, "doc.pdf", pinner.gotName)
	// The pinner sees the full file bytes, rewound after hashing.
	require.Equal(t, []byte("pinned content"), pinner.gotData)
}

func TestProcessPinFailureKeepsFileCompleted(t *testing.T) {
	t.Parallel()

	pinner := &stubPinner{err: errors.New("gateway timeout")}
	p := NewProcessor(DefaultConfig(), zerolog.Nop(), WithPinner(pinner))

	files, err := p.Process(context.Background(), []Input{input("doc.pdf", "content")})
	require.NoError(t, err)

	f := files[0]
	require.Equal(t, FileStatusCompleted, f.Status)
	require.NotEmpty(t, f.Hash)
	require.Empty(t, f.IPFSCID)
	require.Empty(t, f.IPFSURL)
}
