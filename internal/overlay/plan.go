// Package overlay decides what is drawn over each camera frame and paints it
// with OpenCV. Build is pure so layout can be tested without a display.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/care/posturewatch/internal/config"
	"github.com/care/posturewatch/internal/posture"
	"github.com/care/posturewatch/internal/types"
)

var (
	ColorYellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	ColorGreen  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	ColorRed    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	ColorBlue   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	ColorWhite  = color.RGBA{R: 255, G: 255, B: 255, A: 255}

	// skeleton colours follow MediaPipe's default landmark drawing
	ColorConnection = color.RGBA{R: 224, G: 224, B: 224, A: 255}
	ColorJoint      = ColorRed
)

const (
	// AlertBorderThickness is the width of the red frame drawn on an alert
	AlertBorderThickness = 10
	// statsColumnOffset places session stats this far left of the right edge
	statsColumnOffset = 200
	// visibilityThreshold hides landmarks the model is unsure about
	visibilityThreshold = 0.5
)

// Text is one string to render with the Hershey simplex font
type Text struct {
	Text      string
	Origin    image.Point // bottom-left of the text
	Scale     float64
	Color     color.RGBA
	Thickness int
}

// Segment is one skeleton bone
type Segment struct {
	From, To image.Point
}

// Plan is everything to draw on one frame
type Plan struct {
	Segments []Segment
	Joints   []image.Point
	Texts    []Text
	// Border is set only on the frame an alert fires with visual alerts on
	Border *image.Rectangle
}

// Empty reports whether the plan draws nothing
func (p Plan) Empty() bool {
	return len(p.Segments) == 0 && len(p.Joints) == 0 && len(p.Texts) == 0 && p.Border == nil
}

// State is the input to Build for one frame
type State struct {
	Width, Height int
	Features      config.Features
	// Landmarks and Result are nil when no person was detected
	Landmarks  *types.LandmarkSet
	Result     *posture.FrameResult
	Calibrated bool
	Summary    posture.Summary
}

// Build lays out the overlay for one frame
func Build(s State) Plan {
	var p Plan

	if r := s.Result; r != nil {
		if r.Calibrating {
			p.Texts = append(p.Texts, Text{
				Text:      fmt.Sprintf("Calibrating... %d/%d", r.CalibrationSamples, r.CalibrationTarget),
				Origin:    image.Pt(10, 30),
				Scale:     1,
				Color:     ColorYellow,
				Thickness: 2,
			})
		}

		if s.Features.Skeleton && s.Landmarks != nil {
			p.Segments, p.Joints = skeleton(s.Landmarks)
		}

		if s.Features.Angles {
			m := r.Measurement
			p.Texts = append(p.Texts,
				angleText(m.LeftShoulder, m.ShoulderMidpoint(), m.Angles.Shoulder, ColorBlue),
				angleText(m.LeftEar, m.LeftShoulder, m.Angles.Neck, ColorGreen),
			)
		}

		if r.Evaluated {
			if r.AlertFired && s.Features.VisualAlerts {
				border := image.Rect(0, 0, s.Width, s.Height)
				p.Border = &border
			}
			if s.Features.PostureStatus {
				p.Texts = append(p.Texts, statusTexts(r)...)
			}
		}
	}

	if s.Features.DisplayStats && s.Calibrated {
		p.Texts = append(p.Texts, statsTexts(s.Width, s.Summary)...)
	}

	return p
}

// angleText places the integer angle halfway between two points
func angleText(a, b types.Point, angle float64, c color.RGBA) Text {
	return Text{
		Text:      fmt.Sprintf("%d", int(angle)),
		Origin:    image.Pt((a.X+b.X)/2, (a.Y+b.Y)/2),
		Scale:     0.5,
		Color:     c,
		Thickness: 2,
	}
}

func statusTexts(r *posture.FrameResult) []Text {
	statusColor := ColorGreen
	if r.Status == posture.StatusPoor {
		statusColor = ColorRed
	}
	a, t := r.Measurement.Angles, r.Thresholds
	return []Text{
		{Text: r.Status.String(), Origin: image.Pt(10, 30), Scale: 1, Color: statusColor, Thickness: 2},
		{Text: fmt.Sprintf("Shoulder Angle: %.1f/%.1f", a.Shoulder, t.Shoulder), Origin: image.Pt(10, 60), Scale: 0.6, Color: ColorWhite, Thickness: 1},
		{Text: fmt.Sprintf("Neck Angle: %.1f/%.1f", a.Neck, t.Neck), Origin: image.Pt(10, 90), Scale: 0.6, Color: ColorWhite, Thickness: 1},
	}
}

func statsTexts(width int, sum posture.Summary) []Text {
	x := width - statsColumnOffset
	return []Text{
		{Text: "Session: " + posture.FormatDuration(sum.Total), Origin: image.Pt(x, 30), Scale: 0.6, Color: ColorWhite, Thickness: 1},
		{Text: "Good posture: " + posture.FormatDuration(sum.Good), Origin: image.Pt(x, 60), Scale: 0.6, Color: ColorGreen, Thickness: 1},
		{Text: "Poor posture: " + posture.FormatDuration(sum.Poor), Origin: image.Pt(x, 90), Scale: 0.6, Color: ColorRed, Thickness: 1},
	}
}
