// Package peak holds per-reflection measurements and the rules that turn
// them into one intensity.
//
// A Key names a reflection: Miller indices (h,k,l) plus satellite orders
// (m,n,p). A Record is one domain of a reflection and owns the ordered
// Observations measured at different goniometer settings. Once integrated,
// every Observation carries peak- and background-region Voxels.
//
// Merging:
//
//	ratio_v  = Σ_obs D·s_d·s_x / Σ_obs N·s_n        (per voxel, NaN ignored)
//	I        = (Σ_v ratio_pk − r·Σ_v ratio_bkg) · C
//	σ²       = (Σ_v var_pk + r²·Σ_v var_bkg) · C²,  var = ratio/N · (1 + ratio)
//	C        = scale constant · Π bin size
//
// where s_d, s_n are the absorption (data) and bank (norm) scales, s_x the
// optional extinction scale and r the peak/background volume ratio. Ratios
// that come out infinite (zero normalisation) are treated as missing.
//
// Merging is built on Partial, an additive accumulator: the merge of a
// union of disjoint index sets equals the combination of their partials.
//
// Extinction scales are shared within groups of observations with similar
// Lorentz factor (mean-shift clusters); see Record.ExtinctionScales.
package peak
