// Package fetch provides the default HTTP collaborators: fetching an item's
// page, extracting the embedded metadata, and downloading its binaries.
//
// One Client is shared by every handler so the aggregate request rate stays
// under the configured limit. Response statuses and extraction failures are
// mapped onto the services error kinds: 404/410 are not-found, 403/408/429
// and 5xx are transient, a page without the embedded data script is
// transient (the upstream served a challenge or an empty shell), and a data
// blob without the expected item path is structural.
package fetch
