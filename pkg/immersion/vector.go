package immersion

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Vec3 is a point in world space: x right, y up, z forward.
type Vec3 struct {
	X float32 `json:"x" toml:"x"`
	Y float32 `json:"y" toml:"y"`
	Z float32 `json:"z" toml:"z"`
}

func V3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo returns the euclidean distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float32 {
	return v.Sub(o).Length()
}

// Lerp interpolates from v towards o; t is clamped to [0,1].
func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	if t <= 0 {
		return v
	}
	if t >= 1 {
		return o
	}
	return v.Add(o.Sub(v).Scale(t))
}

func (v Vec3) String() string {
	return fmt.Sprintf("x:%.1f,y:%.1f,z:%.1f", v.X, v.Y, v.Z)
}

// Yaw returns the heading from v towards target in degrees, measured
// counter-clockwise from the forward (+z) axis on the ground plane.
func Yaw(from, target Vec3) float32 {
	return math32.Atan2(target.X-from.X, target.Z-from.Z) * 180 / math32.Pi
}
