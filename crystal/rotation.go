package crystal

import "math"

// MinSeedAngle is the smallest rotation angle AxisAngleFrom reports. Below
// it the rotation axis is undefined and a fixed axis is substituted.
const MinSeedAngle = 1e-2

// poleMargin keeps seeded polar angles away from the poles, where the
// azimuth stops influencing the rotation.
const poleMargin = 1e-3

// AxisAngle returns the rotation by omega about the unit axis
// u = (cosφ·sinθ, sinφ·sinθ, cosθ) (Rodrigues' formula). Angles in radians.
func AxisAngle(phi, theta, omega float64) Mat3 {
	ux := math.Cos(phi) * math.Sin(theta)
	uy := math.Sin(phi) * math.Sin(theta)
	uz := math.Cos(theta)
	c, s := math.Cos(omega), math.Sin(omega)
	t := 1 - c

	return Mat3{
		{c + ux*ux*t, ux*uy*t - uz*s, ux*uz*t + uy*s},
		{uy*ux*t + uz*s, c + uy*uy*t, uy*uz*t - ux*s},
		{uz*ux*t - uy*s, uz*uy*t + ux*s, c + uz*uz*t},
	}
}

// AxisAngleFrom decomposes a rotation into (φ, θ, ω) with φ ∈ [0,2π),
// θ ∈ [poleMargin, π−poleMargin] and ω ∈ [MinSeedAngle, π]. The result is a
// starting point for refinement: near-identity rotations and axes at the
// poles are nudged so every angle keeps a non-zero derivative.
func AxisAngleFrom(U Mat3) (phi, theta, omega float64) {
	omega = math.Acos(clamp((U.Trace()-1)/2, -1, 1))
	if omega < MinSeedAngle {
		return math.Pi / 4, math.Pi / 2, MinSeedAngle
	}

	var u Vec3
	if s := math.Sin(omega); s > 1e-6 {
		u = Vec3{U[2][1] - U[1][2], U[0][2] - U[2][0], U[1][0] - U[0][1]}.Scale(1 / (2 * s))
	} else {
		// ω ≈ π: the axis comes from the symmetric part, sign fixed by the
		// largest component.
		k := 0
		for i := 1; i < 3; i++ {
			if U[i][i] > U[k][k] {
				k = i
			}
		}
		u[k] = math.Sqrt(math.Max((U[k][k]+1)/2, 0))
		for i := 0; i < 3; i++ {
			if i != k {
				u[i] = (U[i][k] + U[k][i]) / (4 * u[k])
			}
		}
	}
	u = u.Scale(1 / u.Norm())

	theta = math.Acos(clamp(u[2], -1, 1))
	theta = clamp(theta, poleMargin, math.Pi-poleMargin)
	phi = math.Atan2(u[1], u[0])
	if phi < 0 {
		phi += 2 * math.Pi
	}

	return phi, theta, omega
}

// RotY returns the rotation about y by angle degrees.
func RotY(angle float64) Mat3 {
	c, s := math.Cos(deg2rad(angle)), math.Sin(deg2rad(angle))

	return Mat3{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
}

// RotZ returns the rotation about z by angle degrees.
func RotZ(angle float64) Mat3 {
	c, s := math.Cos(deg2rad(angle)), math.Sin(deg2rad(angle))

	return Mat3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

// Goniometer returns R = Ry(ω)·Rz(χ)·Ry(φ) for angles in degrees.
func Goniometer(phi, chi, omega float64) Mat3 {
	return RotY(omega).Mul(RotZ(chi)).Mul(RotY(phi))
}

// RotationAngle returns the rotation angle of R in degrees.
func RotationAngle(R Mat3) float64 {
	return rad2deg(math.Acos(clamp((R.Trace()-1)/2, -1, 1)))
}
