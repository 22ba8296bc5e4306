package posture

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/care/posturewatch/internal/types"
)

const angleTolerance = 1e-9

func pt(x, y int) types.Point { return types.Point{X: x, Y: y} }

func TestCalculateAngle_KnownInputs(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c types.Point
		want    float64
	}{
		{"collinear horizontal", pt(-5, 0), pt(0, 0), pt(5, 0), 180},
		{"collinear vertical", pt(10, 0), pt(10, 50), pt(10, 100), 180},
		{"right angle", pt(5, 0), pt(0, 0), pt(0, 5), 90},
		{"right angle reversed", pt(0, 5), pt(0, 0), pt(5, 0), 90},
		{"same ray", pt(3, 3), pt(0, 0), pt(6, 6), 0},
		{"forty five", pt(10, 0), pt(0, 0), pt(10, 10), 45},
		{"folded above 180", pt(-10, -1), pt(0, 0), pt(-10, 1), 2 * math.Atan(0.1) * 180 / math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateAngle(tt.a, tt.b, tt.c)
			if math.Abs(got-tt.want) > angleTolerance {
				t.Errorf("CalculateAngle(%v, %v, %v) = %.6f, want %.6f", tt.a, tt.b, tt.c, got, tt.want)
			}
		})
	}
}

func TestCalculateAngle_Properties(t *testing.T) {
	clamp := func(v int16) int { return int(v) }

	t.Run("range", func(t *testing.T) {
		f := func(ax, ay, bx, by, cx, cy int16) bool {
			got := CalculateAngle(pt(clamp(ax), clamp(ay)), pt(clamp(bx), clamp(by)), pt(clamp(cx), clamp(cy)))
			return got >= 0 && got <= 180
		}
		if err := quick.Check(f, nil); err != nil {
			t.Error(err)
		}
	})

	t.Run("symmetric in outer points", func(t *testing.T) {
		f := func(ax, ay, bx, by, cx, cy int16) bool {
			a, b, c := pt(clamp(ax), clamp(ay)), pt(clamp(bx), clamp(by)), pt(clamp(cx), clamp(cy))
			return math.Abs(CalculateAngle(a, b, c)-CalculateAngle(c, b, a)) < 1e-6
		}
		if err := quick.Check(f, nil); err != nil {
			t.Error(err)
		}
	})
}

func TestShoulderAngle(t *testing.T) {
	t.Run("level shoulders are perpendicular to the vertical", func(t *testing.T) {
		got := ShoulderAngle(pt(100, 200), pt(300, 200))
		if math.Abs(got-90) > angleTolerance {
			t.Errorf("level shoulders: got %.4f, want 90", got)
		}
	})

	t.Run("raised left shoulder narrows the angle", func(t *testing.T) {
		level := ShoulderAngle(pt(100, 200), pt(300, 200))
		tilted := ShoulderAngle(pt(100, 180), pt(300, 200))
		if tilted >= level {
			t.Errorf("tilted %.4f should be below level %.4f", tilted, level)
		}
	})
}

func TestNeckAngle(t *testing.T) {
	t.Run("ear straight above shoulder", func(t *testing.T) {
		got := NeckAngle(pt(100, 50), pt(100, 200))
		if math.Abs(got) > angleTolerance {
			t.Errorf("upright neck: got %.4f, want 0", got)
		}
	})

	t.Run("ear forward of shoulder", func(t *testing.T) {
		got := NeckAngle(pt(250, 50), pt(100, 200))
		if math.Abs(got-45) > angleTolerance {
			t.Errorf("45 degree lean: got %.4f, want 45", got)
		}
	})
}

func TestMeasure(t *testing.T) {
	t.Run("missing landmarks", func(t *testing.T) {
		set := &types.LandmarkSet{Points: make([]types.Landmark, 5), FrameWidth: 640, FrameHeight: 480}
		if _, ok := Measure(set); ok {
			t.Fatal("expected Measure to fail with only 5 landmarks")
		}
		if _, ok := Measure(nil); ok {
			t.Fatal("expected Measure to fail on nil set")
		}
	})

	t.Run("pixel truncation and midpoint", func(t *testing.T) {
		set := uprightLandmarks(640, 480)
		m, ok := Measure(set)
		if !ok {
			t.Fatal("Measure failed on a full landmark set")
		}
		if m.LeftShoulder != pt(256, 240) {
			t.Errorf("left shoulder = %v, want (256,240)", m.LeftShoulder)
		}
		if m.RightShoulder != pt(384, 240) {
			t.Errorf("right shoulder = %v, want (384,240)", m.RightShoulder)
		}
		if mid := m.ShoulderMidpoint(); mid != pt(320, 240) {
			t.Errorf("midpoint = %v, want (320,240)", mid)
		}
		if math.Abs(m.Angles.Shoulder-90) > angleTolerance {
			t.Errorf("shoulder angle = %.4f, want 90", m.Angles.Shoulder)
		}
	})
}

// uprightLandmarks builds a set with level shoulders and ears above them
func uprightLandmarks(w, h int) *types.LandmarkSet {
	points := make([]types.Landmark, types.LandmarkCount)
	points[types.LeftShoulder] = types.Landmark{X: 0.4, Y: 0.5, Visibility: 1}
	points[types.RightShoulder] = types.Landmark{X: 0.6, Y: 0.5, Visibility: 1}
	points[types.LeftEar] = types.Landmark{X: 0.4, Y: 0.25, Visibility: 1}
	points[types.RightEar] = types.Landmark{X: 0.6, Y: 0.25, Visibility: 1}
	return &types.LandmarkSet{Points: points, FrameWidth: w, FrameHeight: h}
}
