// Package logging provides a small structured logging facade over log/slog.
//
// Every log call names the subsystem it comes from, which keeps log output
// greppable across the bootstrap pipeline and the push transport:
//
//	logging.Info("Registrar", "Registered tool: %s", name)
//	logging.Error("Push", err, "Failed to close transport for session %s",
//		logging.TruncateSessionID(id))
//
// Init must be called once before any other function in this package. The
// output writer is configurable because the stdio transport owns stdout;
// diagnostic text goes to stderr in that mode.
package logging
