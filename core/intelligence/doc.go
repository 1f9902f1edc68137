// Package intelligence derives statistical signals from historical job
// outcomes: where a tenant's margin sits among similar fleets, whether its
// profitability is trending, and which recent jobs are outliers against its
// own baseline.
//
// Services read through source interfaces and never hold state between
// calls. Short histories and small peer groups are expected and produce
// results flagged as insufficient rather than errors; only collaborator
// failures are returned as errors.
package intelligence
