// Package absorption corrects observations for absorption in a spherical
// sample.
//
// The transmission correction A*(μR, 2θ) comes from a table read once with
// ReadTable and interpolated bilinearly. For each observation the linear
// attenuation μ = μs + μa·λ/1.8 Å gives μR; A* becomes the data scale and
// T̄ = R·(∂A*/∂μR)/A* the mean path length used by the extinction fit.
//
//	tab, _ := absorption.ReadTable(f)
//	err := s.ApplyAbsorption(absorption.Sphere{Radius: 0.1, Scattering: 0.5}.Func(tab))
package absorption
