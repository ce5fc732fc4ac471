// Package noisy finds bad channels in a continuous multi-channel recording.
//
// FindNoisyChannels pre-screens channels that contain NaN samples or no
// signal, then runs four detectors over the remaining reference channels:
//
//  1. amplitude deviation: robust z-score of each channel's robust SD;
//  2. high-frequency noise: robust z-score of the ratio of >50 Hz to <45 Hz
//     amplitude;
//  3. correlation: fraction of windows in which a channel's strongest
//     correlation with the other channels is low (windows with undefined
//     statistics count as drop-outs);
//  4. RANSAC: fraction of time a channel disagrees with its spherical-spline
//     prediction from random subsets of the surviving channels.
//
// The Report carries every intermediate statistic indexed by original
// 1-based channel number so a referencing stage can consume it directly.
package noisy
