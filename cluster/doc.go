// Package cluster groups 1-D values.
//
// Two groupings are provided:
//
//   - Circular: single-linkage grouping of angles on a circle of a given
//     period, used to split a reflection's orientations into domains.
//   - MeanShift: flat-kernel density-mode seeking with automatically
//     estimated bandwidth, used to group observations by Lorentz factor.
//
// Both return partitions of the input indices: every index appears in
// exactly one group. Neither function mutates its input.
package cluster
