// Package cli provides the command line helpers shared by the wkfmanager
// client commands.
//
// # Output
//
// Printer renders workflows in one of three formats:
//   - table: one row per workflow (store id, method, offset, components, origin)
//   - json: the workflow spec, or the map of all specs, indented
//   - yaml: the same data as YAML
//
// WithProgress shows a spinner on stderr while a request is pending. Creating
// a workflow waits for every component to become healthy, which can take a
// while.
//
// # Console
//
// Console is an interactive menu for a restaurant owner. The user picks one
// of three preset stores and can then request, update, inspect and tear
// down that store's workflow. Requests are built from prompts and sent with
// the configured origin so result notifications find their way back.
//
// # Flags
//
// CommandFlags and RegisterCommonFlags give every client command the same
// --output, --no-headers, --quiet, --endpoint and --timeout flags. The
// endpoint defaults to $WKFMANAGER_ENDPOINT, then http://localhost:8080.
package cli
