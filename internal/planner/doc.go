// Package planner implements the three workflow transitions: create,
// update and teardown.
//
// Each transition reserves its storeId in the registry, resolves the
// components against the current catalog and hands the resulting actions to
// the coordinator. The registry is only written once the outcome is known:
//
//   - create commits the spec when every component started, and otherwise
//     tears the attempt down again
//   - update starts the added components, pushes the new spec to the kept
//     ones and tears the dropped ones down; a failure in the first two steps
//     reverts the kept components to the old spec and tears the added ones
//     down
//   - teardown always unregisters the workflow; instances that could not be
//     removed are reported, not retried
//
// Persistent instances are shared between workflows and are only removed
// when the last workflow using them goes away. Edge instances belong to a
// single workflow.
package planner
