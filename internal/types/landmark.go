package types

// LandmarkIndex identifies a keypoint in the 33-point BlazePose topology
type LandmarkIndex int

const (
	Nose LandmarkIndex = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	// LandmarkCount is the number of keypoints the pose model emits per person
	LandmarkCount = 33
)

var landmarkNames = [LandmarkCount]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_pinky", "right_pinky",
	"left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee",
	"left_ankle", "right_ankle", "left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// String returns the snake_case landmark name
func (i LandmarkIndex) String() string {
	if i < 0 || int(i) >= LandmarkCount {
		return "unknown"
	}
	return landmarkNames[i]
}

// Landmark is a keypoint in normalized image coordinates (0.0-1.0)
type Landmark struct {
	X          float64 `msgpack:"x" json:"x"`
	Y          float64 `msgpack:"y" json:"y"`
	Z          float64 `msgpack:"z" json:"z"`
	Visibility float64 `msgpack:"visibility" json:"visibility"`
}

// Point is an integer pixel coordinate
type Point struct {
	X int
	Y int
}

// LandmarkSet holds every keypoint detected for one person in one frame
type LandmarkSet struct {
	Points      []Landmark
	FrameWidth  int
	FrameHeight int
}

// Has reports whether the set contains the given landmark
func (s *LandmarkSet) Has(idx LandmarkIndex) bool {
	return s != nil && idx >= 0 && int(idx) < len(s.Points)
}

// Pixel converts a landmark to pixel coordinates by truncation
func (s *LandmarkSet) Pixel(idx LandmarkIndex) Point {
	if !s.Has(idx) {
		return Point{}
	}
	lm := s.Points[idx]
	return Point{
		X: int(lm.X * float64(s.FrameWidth)),
		Y: int(lm.Y * float64(s.FrameHeight)),
	}
}
