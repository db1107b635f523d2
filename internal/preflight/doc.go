// Package preflight runs environment checks before and alongside scrape runs.
//
// RunAll covers directory access, tracker database health, the optional
// Postgres sink, upstream reachability through each kind handler, and the
// notification settings. The status command renders the results.
package preflight
