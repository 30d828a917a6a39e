// Package reduce runs the reduction stages over one owned store:
//
//	ingest → split → integrate → extinction → calibrate → write
//
// Every stage is a method on Pipeline and logs its outcome through zap.
// The library packages it drives do not log.
package reduce
