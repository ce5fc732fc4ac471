// Package eeg owns the recording data model consumed by the noisy-channel
// detector.
//
// Responsibilities: recording validation, channel locations and nose-axis
// canonicalisation, channel selection normalisation, fixed-length window
// grids, and JSON recording loading.
// Key types: Recording, Location, WindowGrid.
//
// Channel numbers exposed by this package are 1-based, matching the
// numbering used in reports. Sample offsets are 0-based.
package eeg
