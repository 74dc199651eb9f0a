// Package landmarktest provides synthetic faces for tests.
package landmarktest

import "github.com/teslashibe/go-affect/pkg/landmark"

// NeutralFace returns a fully tracked synthetic face in pixel coordinates
// (image y grows downward), with an inter-ocular distance of 60.
func NeutralFace() landmark.Frame {
	f := landmark.NewFrame()
	set := func(i landmark.Index, x, y float64) { f.Set(i, x, y, 0) }

	set(landmark.RightBrowOuter, 150, 170)
	set(landmark.RightBrowMid, 170, 162)
	set(landmark.RightBrowInner, 188, 166)
	set(landmark.LeftBrowInner, 212, 166)
	set(landmark.LeftBrowMid, 230, 162)
	set(landmark.LeftBrowOuter, 250, 170)

	set(landmark.RightEyeOuter, 155, 190)
	set(landmark.RightEyeTop, 170, 184)
	set(landmark.RightEyeInner, 185, 190)
	set(landmark.RightEyeBottom, 170, 196)
	set(landmark.RightPupil, 170, 190)
	set(landmark.LeftEyeInner, 215, 190)
	set(landmark.LeftEyeTop, 230, 184)
	set(landmark.LeftEyeOuter, 245, 190)
	set(landmark.LeftEyeBottom, 230, 196)
	set(landmark.LeftPupil, 230, 190)

	set(landmark.NoseBridge, 200, 192)
	set(landmark.NoseTip, 200, 230)
	set(landmark.NoseRightWing, 188, 236)
	set(landmark.NoseLeftWing, 212, 236)
	set(landmark.NoseBottom, 200, 240)

	set(landmark.MouthRightCorner, 176, 262)
	set(landmark.UpperLipRight, 188, 256)
	set(landmark.UpperLipCenter, 200, 255)
	set(landmark.UpperLipLeft, 212, 256)
	set(landmark.MouthLeftCorner, 224, 262)
	set(landmark.LowerLipLeft, 212, 270)
	set(landmark.LowerLipCenter, 200, 272)
	set(landmark.LowerLipRight, 188, 270)
	set(landmark.UpperLipInner, 200, 261)
	set(landmark.LowerLipInner, 200, 264)

	set(landmark.JawRight, 150, 270)
	set(landmark.Chin, 200, 300)
	set(landmark.JawLeft, 250, 270)

	return f
}

// Move returns a copy of f with landmark i shifted by (dx, dy).
func Move(f landmark.Frame, i landmark.Index, dx, dy float64) landmark.Frame {
	out := f.Clone()
	if p, ok := out.At(i); ok {
		out.Points[i] = landmark.Point{X: p.X + dx, Y: p.Y + dy, Z: p.Z, Tracked: true}
	}
	return out
}
