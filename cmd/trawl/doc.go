// Package main hosts the trawl CLI entrypoint and command graph.
//
// Commands load configuration once through commandContext, open the tracker
// directly for queue maintenance, and hand runs to internal/runner. Run
// outcomes map onto process exit statuses in exit.go.
package main
