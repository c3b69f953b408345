// Package logging holds the klog verbosity levels shared by every package.
package logging

// Verbosity levels for klog.FromContext(ctx).V(level).
const (
	DEFAULT = 0
	VERBOSE = 3
	DEBUG   = 4
	TRACE   = 5
)
