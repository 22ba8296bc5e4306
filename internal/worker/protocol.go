package worker

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/care/posturewatch/internal/types"
)

// maxMessageSize bounds a single framed message. A 1080p JPEG is well under it;
// anything larger means the stream is out of sync.
const maxMessageSize = 32 << 20

// ErrMessageTooLarge is returned when a length prefix exceeds maxMessageSize
var ErrMessageTooLarge = errors.New("worker: message exceeds size limit")

// RequestMeta travels with every frame and is echoed back by the worker
type RequestMeta struct {
	Seq       uint64 `msgpack:"seq"`
	Timestamp string `msgpack:"timestamp"`
	TraceID   string `msgpack:"trace_id"`
}

// Request is one frame sent to the pose worker
type Request struct {
	FrameData []byte      `msgpack:"frame_data"` // JPEG
	Width     int         `msgpack:"width"`
	Height    int         `msgpack:"height"`
	Meta      RequestMeta `msgpack:"meta"`
}

// Timing reports the worker's own processing time
type Timing struct {
	TotalMS     float64 `msgpack:"total_ms"`
	InferenceMS float64 `msgpack:"inference_ms,omitempty"`
}

// Response is the worker's answer for one frame.
// Landmarks is empty when no person was detected.
type Response struct {
	FrameSeq  uint64           `msgpack:"frame_seq"`
	Landmarks []types.Landmark `msgpack:"landmarks"`
	Timing    Timing           `msgpack:"timing"`
	Error     string           `msgpack:"error,omitempty"`
}

// WriteMessage encodes v as msgpack behind a 4-byte big-endian length prefix
func WriteMessage(w io.Writer, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("worker: failed to marshal msgpack: %w", err)
	}
	if len(payload) > maxMessageSize {
		return ErrMessageTooLarge
	}

	// One write keeps the prefix and payload together on the pipe.
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("worker: failed to write message: %w", err)
	}
	return nil
}

// ReadMessage reads one length-prefixed msgpack message into v.
// io.EOF is returned unwrapped when the stream ends cleanly between messages.
func ReadMessage(r io.Reader, v any) error {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("worker: failed to read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length > maxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("worker: failed to read %d-byte message: %w", length, err)
	}

	if err := msgpack.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("worker: failed to unmarshal msgpack: %w", err)
	}
	return nil
}
