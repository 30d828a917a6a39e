// Package extinction fits empirical extinction models to merged
// intensities and turns the chosen fit into per-reflection extinction
// constants.
//
// For every point (one Lorentz cluster of one reflection with a known ideal
// intensity F²) the predicted intensity is
//
//	I = s · q · exp(−8π²U·sin²θ/λ²) · (1 + a(λ − λ̄)) · y(x, 2θ),  q = F²·L
//	y = (1 + 2x + A·x²/(1 + B·x))^−½                     (Becker–Coppens)
//
// and x depends on the model:
//
//	primary                x = ⅔·q·r²/λ
//	secondary, gaussian    x = ⅔·q·T·(r/λ)/√(1 + (r/(λg))²)
//	secondary, lorentzian  x = ⅔·q·T·(r/λ)/(1 + r/(λg))
//	type I                 x = ⅔·q·T·g
//	type II                x = ⅔·q·T·(r/λ)
//
// with T = T̄·(1 + b + c·cos(ω − ω₀) + e·cos(φ − φ₀)) the effective path
// length. A and B depend on 2θ and on the mosaic distribution.
//
// Each model is fitted by bounded Levenberg–Marquardt (package lsq); the
// model with the lowest reduced χ² wins and a generic secondary model is
// refined into its type I or type II limit when r and λg differ by three
// orders of magnitude.
package extinction
