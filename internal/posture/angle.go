package posture

import (
	"math"

	"github.com/care/posturewatch/internal/types"
)

// CalculateAngle returns the angle at vertex b formed by the rays b→a and b→c,
// in degrees within [0, 180].
func CalculateAngle(a, b, c types.Point) float64 {
	radians := math.Atan2(float64(c.Y-b.Y), float64(c.X-b.X)) -
		math.Atan2(float64(a.Y-b.Y), float64(a.X-b.X))
	angle := math.Abs(radians * 180.0 / math.Pi)

	if angle > 180.0 {
		angle = 360 - angle
	}

	return angle
}

// ShoulderAngle measures shoulder tilt at the right shoulder against the vertical
func ShoulderAngle(leftShoulder, rightShoulder types.Point) float64 {
	return CalculateAngle(leftShoulder, rightShoulder, types.Point{X: rightShoulder.X, Y: 0})
}

// NeckAngle measures neck tilt at the left shoulder against the vertical
func NeckAngle(leftEar, leftShoulder types.Point) float64 {
	return CalculateAngle(leftEar, leftShoulder, types.Point{X: leftShoulder.X, Y: 0})
}

// Angles holds the two posture angles of a frame, in degrees
type Angles struct {
	Shoulder float64 `json:"shoulder"`
	Neck     float64 `json:"neck"`
}

// Measurement is the pixel geometry and angles extracted from one landmark set
type Measurement struct {
	LeftShoulder  types.Point
	RightShoulder types.Point
	LeftEar       types.Point
	RightEar      types.Point
	Angles        Angles
}

// ShoulderMidpoint returns the integer midpoint between both shoulders
func (m Measurement) ShoulderMidpoint() types.Point {
	return types.Point{
		X: (m.LeftShoulder.X + m.RightShoulder.X) / 2,
		Y: (m.LeftShoulder.Y + m.RightShoulder.Y) / 2,
	}
}

// Measure extracts the shoulder and ear keypoints and computes both angles.
// It returns false when the set lacks any of the required landmarks.
func Measure(set *types.LandmarkSet) (Measurement, bool) {
	required := []types.LandmarkIndex{
		types.LeftShoulder, types.RightShoulder, types.LeftEar, types.RightEar,
	}
	for _, idx := range required {
		if !set.Has(idx) {
			return Measurement{}, false
		}
	}

	m := Measurement{
		LeftShoulder:  set.Pixel(types.LeftShoulder),
		RightShoulder: set.Pixel(types.RightShoulder),
		LeftEar:       set.Pixel(types.LeftEar),
		RightEar:      set.Pixel(types.RightEar),
	}
	m.Angles = Angles{
		Shoulder: ShoulderAngle(m.LeftShoulder, m.RightShoulder),
		Neck:     NeckAngle(m.LeftEar, m.LeftShoulder),
	}

	return m, true
}
