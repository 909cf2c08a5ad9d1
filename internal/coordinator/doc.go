// Package coordinator runs the component actions of a transition step.
//
// The infra action is special: it runs alone, before the other actions when
// bringing components up and after them when tearing down. Every other
// action runs in its own goroutine behind a wait-all barrier. A failing
// action never cancels its siblings; failures are collected and returned
// to the caller, which decides whether to commit or compensate.
package coordinator
