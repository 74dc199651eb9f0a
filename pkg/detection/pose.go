package detection

import (
	"math"

	"github.com/teslashibe/go-affect/pkg/landmark"
)

// EstimatePose approximates head roll and yaw from a 2D frame. Roll is the
// tilt of the line between the eyes. Yaw comes from how far the nose sits
// off the eye midpoint, relative to half the inter-ocular distance. Pitch
// needs depth and is left at zero.
func EstimatePose(f landmark.Frame) landmark.Pose {
	re, ok1 := eyeCentre(f, landmark.RightPupil, landmark.RightEyeOuter, landmark.RightEyeInner)
	le, ok2 := eyeCentre(f, landmark.LeftPupil, landmark.LeftEyeOuter, landmark.LeftEyeInner)
	if !ok1 || !ok2 {
		return landmark.Pose{}
	}

	var pose landmark.Pose
	pose.Roll = landmark.Degrees(math.Atan2(le.Y-re.Y, le.X-re.X))

	nose, ok := f.At(landmark.NoseTip)
	if !ok {
		nose, ok = f.At(landmark.NoseBottom)
	}
	half := landmark.Distance(re, le) / 2
	if ok && half > 0 {
		// Project the nose onto the eye axis so roll does not leak into yaw.
		mid := landmark.Midpoint(re, le)
		ax, ay := (le.X-re.X)/(2*half), (le.Y-re.Y)/(2*half)
		off := ((nose.X-mid.X)*ax + (nose.Y-mid.Y)*ay) / half
		pose.Yaw = landmark.Degrees(math.Asin(max(-1, min(1, off))))
	}
	return pose
}

func eyeCentre(f landmark.Frame, pupil, outer, inner landmark.Index) (landmark.Point, bool) {
	if p, ok := f.At(pupil); ok {
		return p, true
	}
	o, ok1 := f.At(outer)
	i, ok2 := f.At(inner)
	if ok1 && ok2 {
		return landmark.Midpoint(o, i), true
	}
	return landmark.Point{}, false
}
