// Package registry keeps the workflows that are fully deployed, keyed by
// storeId.
//
// A storeId is present if and only if every component of its workflow is
// up and holds the spec. Transitions reserve their storeId for their whole
// duration, so two transitions of one workflow never overlap, and
// reference counts of shared instances include workflows still being
// deployed. Nothing is persisted: a restart starts from an empty registry.
package registry
