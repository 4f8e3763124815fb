// Package app bootstraps a beacon server: it builds the single protocol
// engine, walks the capability catalog over the configured provider
// instances, registers everything discovered, and serves the result over the
// configured transport. Bootstrap runs exactly once per Application and
// produces a report of every registration outcome.
package app
