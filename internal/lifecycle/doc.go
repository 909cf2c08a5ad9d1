// Package lifecycle drives single component instances through
//
//	Absent -> Creating -> HealthChecking -> Healthy | TimedOut
//
// A Manager creates the cluster service of an instance when none exists,
// polls it with a bounded retry budget and hands ordinary components their
// workflow spec over the component HTTP contract. The infra component is
// polled through the cluster task list instead, since it has no HTTP
// contract.
//
// Sleeping between probes goes through a Clock, so callers control time in
// tests. Concurrent health checks of one instance share a single poll and
// create/remove calls for the same instance name are serialised.
package lifecycle
