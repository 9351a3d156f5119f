package videoio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// MJPG-in-AVI is the one writer combination OpenCV supports everywhere,
// so tests use it instead of mp4v.
func TestRoundTrip(t *testing.T) {
	logger := logs.NewTestingLog(t)
	path := filepath.Join(t.TempDir(), "roundtrip.avi")

	sink, err := CreateSink(logger, path, "MJPG", 20, 64, 48)
	require.NoError(t, err)

	frame := gocv.Zeros(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	for i := 0; i < 10; i++ {
		require.NoError(t, sink.Write(frame))
	}
	require.Equal(t, 10, sink.Frames())
	require.NoError(t, sink.Close())

	src, err := OpenSource(logger, path)
	require.NoError(t, err)
	defer src.Close()
	require.Equal(t, 64, src.Width())
	require.Equal(t, 48, src.Height())
	require.InDelta(t, 20, src.FrameRate(), 0.01)

	read := 0
	out := gocv.NewMat()
	defer out.Close()
	for {
		err := src.Next(&out)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		require.Equal(t, 64, out.Cols())
		require.Equal(t, 48, out.Rows())
		read++
	}
	require.Equal(t, 10, read)
}

func TestOpenSourceMissingFile(t *testing.T) {
	logger := logs.NewTestingLog(t)
	_, err := OpenSource(logger, filepath.Join(t.TempDir(), "no-such-video.mp4"))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnreadableVideo)
}

func TestOpenSourceGarbageFile(t *testing.T) {
	logger := logs.NewTestingLog(t)
	path := filepath.Join(t.TempDir(), "garbage.mp4")
	buf := make([]byte, 4096)
	for i := range buf {
		buf[i] = byte(i * 7)
	}
	require.NoError(t, os.WriteFile(path, buf, 0644))
	_, err := OpenSource(logger, path)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnreadableVideo)
}
