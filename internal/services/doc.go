// Package services defines shared utilities consumed by the orchestrator and
// the fetch and persistence collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp item identifiers, item kinds, stage names, and
//     run identifiers for logging.
//   - The error taxonomy: sentinel markers, the *Error type carrying an
//     explicit kind and operator error code, and the Wrap/Details/KindOf
//     helpers the retry policy inspects.
//
// Collaborators should return errors built with Wrap so the orchestrator can
// classify them without string matching.
package services
