package proto

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("go north"),
		bytes.Repeat([]byte{0xAB}, 1),
		bytes.Repeat([]byte{0xCD}, 255),
		bytes.Repeat([]byte{0xEF}, MaxFrameLen),
	}

	for _, payload := range payloads {
		var buf bytes.Buffer
		require.NoError(t, WriteFrame(&buf, payload))

		got, err := ReadFrame(&buf)
		require.NoError(t, err)
		require.Equal(t, payload, got)
	}
}

func TestFrameEmptyIsValid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, nil))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, MaxFrameLen+1))
	require.ErrorIs(t, err, ErrFrameTooLarge)
	require.Zero(t, buf.Len())
}

func TestFrameClosedAtBoundary(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrConnectionClosed)
}

func TestFramePartialHeader(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x05}))
	require.ErrorIs(t, err, ErrPartialFrame)
}

func TestFramePartialPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello world")))

	// Drop the last byte so the prefix promises more than arrives.
	truncated := buf.Bytes()[:buf.Len()-1]
	_, err := ReadFrame(bytes.NewReader(truncated))
	require.ErrorIs(t, err, ErrPartialFrame)
}

func TestFrameSequential(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("first")))
	require.NoError(t, WriteFrame(&buf, []byte("second")))
	require.NoError(t, WriteFrame(&buf, []byte{}))

	for _, want := range []string{"first", "second", ""} {
		got, err := ReadFrame(&buf)
		require.NoError(t, err)
		require.Equal(t, want, string(got))
	}

	_, err := ReadFrame(&buf)
	require.ErrorIs(t, err, ErrConnectionClosed)
}

// errReader fails after its buffer drains with a non-EOF error, which must
// surface as a transport error rather than a partial frame.
type errReader struct {
	data []byte
	err  error
}

func (r *errReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestFrameTransportError(t *testing.T) {
	boom := errors.New("socket reset")
	_, err := ReadFrame(&errReader{data: []byte{0x10, 0x00, 'a'}, err: boom})
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrPartialFrame)
}

var _ io.Reader = (*errReader)(nil)
