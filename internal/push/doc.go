// Package push is the session-keyed streaming transport. Each client holds a
// long-lived server-sent-event stream; requests travel out-of-band as POSTs
// keyed by a per-connection session ID and their responses come back on the
// originating stream. A mutex-guarded registry maps session IDs to live
// transports so concurrent connections never cross.
package push
