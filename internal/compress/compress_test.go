package compress_test

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zymatik-com/annonars/internal/compress"
)

func TestReaderDetectsGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte("chr1\t100\t.\tA\tG\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	rc, err := compress.Reader(&buf)
	require.NoError(t, err)
	defer rc.Close()

	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "chr1\t100\t.\tA\tG\n", string(out))
}

func TestReaderPassesThroughPlainText(t *testing.T) {
	in := bytes.NewBufferString("plain\ttext\tfile\n")

	rc, err := compress.Reader(in)
	require.NoError(t, err)
	defer rc.Close()

	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "plain\ttext\tfile\n", string(out))
}

func TestWriterThenReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	w, err := compress.Writer("dataset.tsv.gz", &buf)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rc, err := compress.Reader(&buf)
	require.NoError(t, err)
	defer rc.Close()

	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello", string(out))
}
