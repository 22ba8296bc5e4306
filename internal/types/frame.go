package types

import "time"

// Frame represents a single camera frame
type Frame struct {
	// Seq is the monotonic sequence number
	Seq uint64
	// Timestamp is when the frame was captured
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Data contains the pixel data (BGR24, row-major)
	Data []byte
	// Source identifies the capture backend (webcam, gstreamer, mock)
	Source string
	// TraceID follows the frame through the pose worker and the event stream
	TraceID string
}

// Size returns the expected BGR24 buffer size for the frame dimensions
func (f Frame) Size() int {
	return f.Width * f.Height * 3
}

// StreamStats contains capture statistics
type StreamStats struct {
	FrameCount    uint64            `json:"frame_count"`
	FramesDropped uint64            `json:"frames_dropped"`
	ReadFailures  uint64            `json:"read_failures"`
	FPSTarget     float64           `json:"fps_target"`
	FPSReal       float64           `json:"fps_real"`
	LatencyMS     int64             `json:"latency_ms"`
	Source        string            `json:"source"`
	Resolution    string            `json:"resolution"`
	Reconnects    uint32            `json:"reconnects"`
	IsConnected   bool              `json:"is_connected"`
	Errors        map[string]uint64 `json:"errors,omitempty"` // pipeline errors by category
}
