package stream

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/care/posturewatch/internal/types"
)

// CallbackContext holds state needed by the appsink callback
type CallbackContext struct {
	FrameChan     chan<- types.Frame
	FrameCounter  *uint64
	BytesRead     *uint64
	FramesDropped *uint64
	LastFrameAt   *atomic.Int64 // unix nanos
	Width         int
	Height        int
	Source        string
}

// OnNewSample copies the appsink buffer into a Frame and forwards it without
// blocking. A bad sample is skipped rather than ending the stream.
func OnNewSample(sink *app.Sink, ctx *CallbackContext) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("stream: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("stream: failed to get buffer from sample, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("stream: empty buffer received")
		return gst.FlowOK
	}

	// GStreamer reuses the buffer after Unmap.
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	return deliverFrame(ctx, frameData)
}

func deliverFrame(ctx *CallbackContext, data []byte) gst.FlowReturn {
	seq := atomic.AddUint64(ctx.FrameCounter, 1)
	atomic.AddUint64(ctx.BytesRead, uint64(len(data)))

	now := time.Now()
	if ctx.LastFrameAt != nil {
		ctx.LastFrameAt.Store(now.UnixNano())
	}

	frame := types.Frame{
		Seq:       seq,
		Timestamp: now,
		Width:     ctx.Width,
		Height:    ctx.Height,
		Data:      data,
		Source:    ctx.Source,
		TraceID:   uuid.New().String(),
	}

	select {
	case ctx.FrameChan <- frame:
	default:
		atomic.AddUint64(ctx.FramesDropped, 1)
		slog.Debug("stream: dropping frame, channel full",
			"seq", frame.Seq,
			"trace_id", frame.TraceID,
		)
	}
	return gst.FlowOK
}
