// Package logging provides the structured logging used throughout wkfmanager.
//
// It is a thin wrapper around log/slog that tags every entry with a subsystem
// name, so operators can filter the engine's output per component (Planner,
// Lifecycle, Coordinator, Swarm, ...).
//
// # Usage
//
//	logging.Init(logging.LevelInfo, logging.FormatJSON, os.Stderr)
//
//	logging.Info("Planner", "Creating workflow %s", storeID)
//	logging.Debug("Lifecycle", "Health probe %d/%d for %s", attempt, max, name)
//	logging.Warn("Notify", "Notification to %s failed", origin)
//	logging.Error("Swarm", err, "Failed to remove service %s", name)
//
// # Output Formats
//
//   - FormatText: slog.TextHandler, the default for interactive use
//   - FormatJSON: slog.JSONHandler, for log collectors
//
// Init also installs the same handler as the controller-runtime logger, so the
// kubernetes runtime logs through this package.
//
// Before Init is called only warnings and errors are written (to stderr).
package logging
