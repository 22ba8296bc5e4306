package overlay

import (
	"gocv.io/x/gocv"
)

const (
	connectionThickness = 2
	jointRadius         = 2
	jointThickness      = 2
)

// Paint draws plan onto img in place.
// Skeleton first so text stays readable on top of it.
func Paint(img *gocv.Mat, plan Plan) {
	for _, s := range plan.Segments {
		gocv.Line(img, s.From, s.To, ColorConnection, connectionThickness)
	}
	for _, j := range plan.Joints {
		gocv.Circle(img, j, jointRadius, ColorJoint, jointThickness)
	}
	if plan.Border != nil {
		gocv.Rectangle(img, *plan.Border, ColorRed, AlertBorderThickness)
	}
	for _, t := range plan.Texts {
		gocv.PutTextWithParams(img, t.Text, t.Origin, gocv.FontHersheySimplex, t.Scale, t.Color, t.Thickness, gocv.LineAA, false)
	}
}
