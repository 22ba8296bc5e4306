package overlay

import (
	"image"

	"github.com/care/posturewatch/internal/types"
)

// PoseConnections are the bones of the 33-point body model
var PoseConnections = [][2]types.LandmarkIndex{
	// face
	{types.Nose, types.LeftEyeInner}, {types.LeftEyeInner, types.LeftEye},
	{types.LeftEye, types.LeftEyeOuter}, {types.LeftEyeOuter, types.LeftEar},
	{types.Nose, types.RightEyeInner}, {types.RightEyeInner, types.RightEye},
	{types.RightEye, types.RightEyeOuter}, {types.RightEyeOuter, types.RightEar},
	{types.MouthLeft, types.MouthRight},
	// torso
	{types.LeftShoulder, types.RightShoulder},
	{types.LeftShoulder, types.LeftHip}, {types.RightShoulder, types.RightHip},
	{types.LeftHip, types.RightHip},
	// left arm
	{types.LeftShoulder, types.LeftElbow}, {types.LeftElbow, types.LeftWrist},
	{types.LeftWrist, types.LeftPinky}, {types.LeftWrist, types.LeftIndex},
	{types.LeftWrist, types.LeftThumb}, {types.LeftPinky, types.LeftIndex},
	// right arm
	{types.RightShoulder, types.RightElbow}, {types.RightElbow, types.RightWrist},
	{types.RightWrist, types.RightPinky}, {types.RightWrist, types.RightIndex},
	{types.RightWrist, types.RightThumb}, {types.RightPinky, types.RightIndex},
	// legs
	{types.LeftHip, types.LeftKnee}, {types.LeftKnee, types.LeftAnkle},
	{types.LeftAnkle, types.LeftHeel}, {types.LeftHeel, types.LeftFootIndex},
	{types.LeftAnkle, types.LeftFootIndex},
	{types.RightHip, types.RightKnee}, {types.RightKnee, types.RightAnkle},
	{types.RightAnkle, types.RightHeel}, {types.RightHeel, types.RightFootIndex},
	{types.RightAnkle, types.RightFootIndex},
}

func visible(set *types.LandmarkSet, idx types.LandmarkIndex) bool {
	return set.Has(idx) && set.Points[idx].Visibility >= visibilityThreshold
}

func skeleton(set *types.LandmarkSet) ([]Segment, []image.Point) {
	var segments []Segment
	for _, c := range PoseConnections {
		if !visible(set, c[0]) || !visible(set, c[1]) {
			continue
		}
		a, b := set.Pixel(c[0]), set.Pixel(c[1])
		segments = append(segments, Segment{From: image.Pt(a.X, a.Y), To: image.Pt(b.X, b.Y)})
	}

	var joints []image.Point
	for i := range set.Points {
		idx := types.LandmarkIndex(i)
		if !visible(set, idx) {
			continue
		}
		p := set.Pixel(idx)
		joints = append(joints, image.Pt(p.X, p.Y))
	}
	return segments, joints
}
