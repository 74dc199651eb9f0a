package landmark

import (
	"math"
	"time"
)

// Pose is the head orientation in degrees.
type Pose struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

// Deviation is the summed absolute pitch, roll and yaw difference from ref.
func (p Pose) Deviation(ref Pose) float64 {
	return math.Abs(p.Pitch-ref.Pitch) + math.Abs(p.Roll-ref.Roll) + math.Abs(p.Yaw-ref.Yaw)
}

// AveragePose returns the mean of poses (zero pose for none).
func AveragePose(poses []Pose) Pose {
	if len(poses) == 0 {
		return Pose{}
	}
	var sum Pose
	for _, p := range poses {
		sum.Pitch += p.Pitch
		sum.Roll += p.Roll
		sum.Yaw += p.Yaw
	}
	n := float64(len(poses))
	return Pose{Pitch: sum.Pitch / n, Roll: sum.Roll / n, Yaw: sum.Yaw / n}
}

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Sample is one tick of input for a subject.
type Sample struct {
	// Index is the frame number within the stream (0-based).
	Index int `json:"index"`

	// Time is when the frame was captured.
	Time time.Time `json:"time"`

	// Detected is false when the tracker found no face this frame.
	Detected bool `json:"detected"`

	Frame Frame `json:"frame"`
	Pose  Pose  `json:"pose"`
}

// PoseFromMatrix extracts the head pose from a 4x4 homogeneous transform
// using the ZYX (yaw-pitch-roll) convention.
func PoseFromMatrix(m [4][4]float64) Pose {
	r00 := m[0][0]
	r10, r11, r12 := m[1][0], m[1][1], m[1][2]
	r20, r21, r22 := m[2][0], m[2][1], m[2][2]

	sy := math.Sqrt(r00*r00 + r10*r10)

	var roll, pitch, yaw float64
	if sy >= 1e-6 {
		roll = math.Atan2(r21, r22)
		pitch = math.Atan2(-r20, sy)
		yaw = math.Atan2(r10, r00)
	} else {
		// Gimbal lock at pitch = ±90°.
		roll = math.Atan2(-r12, r11)
		pitch = math.Atan2(-r20, sy)
	}
	return Pose{Pitch: Degrees(pitch), Roll: Degrees(roll), Yaw: Degrees(yaw)}
}
