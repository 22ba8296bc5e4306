package worker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/care/posturewatch/internal/types"
)

func TestFraming_RoundTrip(t *testing.T) {
	var buf bytes.Buffer

	req := Request{
		FrameData: []byte{0xff, 0xd8, 0xff, 0xe0},
		Width:     640,
		Height:    480,
		Meta:      RequestMeta{Seq: 7, Timestamp: "2026-01-02T03:04:05Z", TraceID: "abc"},
	}
	resp := Response{
		FrameSeq:  7,
		Landmarks: make([]types.Landmark, types.LandmarkCount),
		Timing:    Timing{TotalMS: 12.5},
	}
	resp.Landmarks[types.LeftShoulder] = types.Landmark{X: 0.4, Y: 0.5, Visibility: 0.9}

	if err := WriteMessage(&buf, req); err != nil {
		t.Fatalf("WriteMessage(request) error = %v", err)
	}
	if err := WriteMessage(&buf, resp); err != nil {
		t.Fatalf("WriteMessage(response) error = %v", err)
	}

	if got := binary.BigEndian.Uint32(buf.Bytes()[:4]); int(got) >= buf.Len() {
		t.Fatalf("length prefix %d does not fit in %d buffered bytes", got, buf.Len())
	}

	var gotReq Request
	if err := ReadMessage(&buf, &gotReq); err != nil {
		t.Fatalf("ReadMessage(request) error = %v", err)
	}
	if !bytes.Equal(gotReq.FrameData, req.FrameData) || gotReq.Meta != req.Meta || gotReq.Width != 640 {
		t.Errorf("request mismatch: %+v", gotReq)
	}

	var gotResp Response
	if err := ReadMessage(&buf, &gotResp); err != nil {
		t.Fatalf("ReadMessage(response) error = %v", err)
	}
	if len(gotResp.Landmarks) != types.LandmarkCount {
		t.Fatalf("expected %d landmarks, got %d", types.LandmarkCount, len(gotResp.Landmarks))
	}
	if gotResp.Landmarks[types.LeftShoulder] != resp.Landmarks[types.LeftShoulder] {
		t.Errorf("left shoulder = %+v, want %+v", gotResp.Landmarks[types.LeftShoulder], resp.Landmarks[types.LeftShoulder])
	}

	if err := ReadMessage(&buf, &gotResp); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReadMessage_Errors(t *testing.T) {
	t.Run("oversized prefix", func(t *testing.T) {
		var prefix [4]byte
		binary.BigEndian.PutUint32(prefix[:], maxMessageSize+1)

		var resp Response
		err := ReadMessage(bytes.NewReader(prefix[:]), &resp)
		if !errors.Is(err, ErrMessageTooLarge) {
			t.Errorf("expected ErrMessageTooLarge, got %v", err)
		}
	})

	t.Run("truncated payload", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteMessage(&buf, Response{FrameSeq: 1}); err != nil {
			t.Fatal(err)
		}
		truncated := buf.Bytes()[:buf.Len()-1]

		var resp Response
		err := ReadMessage(bytes.NewReader(truncated), &resp)
		if err == nil || errors.Is(err, io.EOF) {
			t.Errorf("expected truncation error, got %v", err)
		}
	})

	t.Run("partial prefix", func(t *testing.T) {
		var resp Response
		err := ReadMessage(bytes.NewReader([]byte{0, 0}), &resp)
		if err == nil || err == io.EOF {
			t.Errorf("expected wrapped unexpected EOF, got %v", err)
		}
	})
}
