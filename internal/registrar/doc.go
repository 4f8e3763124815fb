// Package registrar is the registration coordinator: it normalizes discovered
// capability definitions into the shapes the protocol engine expects and
// writes them into the single shared engine instance.
//
// Registration is best-effort by design. Startup must not fail because one
// definition is malformed, so every malformed item is logged, skipped, and
// recorded in the Report; prior registrations are never rolled back. Within a
// kind names are unique: a duplicate name is registered anyway (the engine
// keeps the newest handler) and surfaces in the report as replaced.
package registrar
