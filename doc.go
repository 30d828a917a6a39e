// Package xtalred reduces single-crystal neutron diffraction peaks: it
// aggregates repeated observations of each reflection, corrects them for
// scale, absorption and extinction, and calibrates the crystal frame.
//
// 🚀 What is xtalred?
//
//	A pure-Go reduction engine that brings together:
//		• Reflection store: accumulate, split into domains, persist, reconcile workers
//		• Merging: voxel-level peak/background sums with volume-fraction gates
//		• Extinction: seven models, bounded least-squares fits, type I/II refinement
//		• Calibration: lattice + orientation refinement for every crystal system
//		• Output: fixed-width reflection files with satellite headers
//
// Under the hood, everything is organized under these subpackages:
//
//	matrix/     : dense linear algebra (LU, inverse, Cholesky, Jacobi eigen)
//	lsq/        : bounded Levenberg–Marquardt
//	crystal/    : lattice, UB algebra, Q-vectors, centering, ISAW UB files
//	cluster/    : circular omega clustering and mean shift
//	peak/       : reflection keys, observations, merging, Lorentz clusters
//	store/      : the record store and its YAML state file
//	extinction/ : extinction models, fits and per-record constants
//	calibrate/  : geometry refinement against strong reflections
//	absorption/ : spherical absorption from a transmission table
//	hkl/        : reflection file writer
//	statedb/    : worker partial stores in SQLite
//	config/     : run configuration (YAML + XTALRED_* environment)
//	reduce/     : the pipeline stages, with structured logging
//	cmd/xtalred : the command line
//
// A reduction, stage by stage:
//
//	ingest → split → normalize → absorption → extinction → calibrate → hkl
//
//	go install github.com/katalvlaran/xtalred/cmd/xtalred@latest
package xtalred
