package worker

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/care/posturewatch/internal/types"
)

// FrameEncoder turns a BGR frame into the image bytes sent to the worker
type FrameEncoder func(frame types.Frame) ([]byte, error)

// JPEGEncoder compresses BGR frames with OpenCV at the given quality
func JPEGEncoder(quality int) FrameEncoder {
	return func(frame types.Frame) ([]byte, error) {
		if len(frame.Data) != frame.Size() {
			return nil, fmt.Errorf("worker: frame %d has %d bytes, want %d", frame.Seq, len(frame.Data), frame.Size())
		}

		mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
		if err != nil {
			return nil, fmt.Errorf("worker: failed to wrap frame: %w", err)
		}
		defer mat.Close()

		buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
		if err != nil {
			return nil, fmt.Errorf("worker: jpeg encode failed: %w", err)
		}
		defer buf.Close()

		// The native buffer is freed on Close; keep a Go copy.
		out := make([]byte, buf.Len())
		copy(out, buf.GetBytes())
		return out, nil
	}
}
