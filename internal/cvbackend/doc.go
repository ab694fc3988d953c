// Package cvbackend provides OpenCV-backed implementations of the feature
// detector and the interactive display. Its contents are only compiled
// with -tags withcv.
package cvbackend
