// Package prediction estimates the profitability of a single job.
//
// An Engine picks one of two paths per call: the trained path runs the active
// registry artifact over the job's feature vector, the fallback path rebuilds
// the cost from first principles when no model is loaded. Both share the same
// risk rules and explanation format so callers never need to know which ran,
// although Result records it.
package prediction
