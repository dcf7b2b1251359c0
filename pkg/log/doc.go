// Package log is a thin wrapper around the standard library logger used by
// every crmdesk component.
//
// Each component acquires a named logger once:
//
//	l := log.ForService("api")
//	l.Infof("listening on %s", addr)
//
// Lines carry a `[name>]` prefix so output from the HTTP front end, the bot
// and the sheet repository can be told apart with grep. Contextual fields are
// attached with With, which returns a derived logger:
//
//	l.With("user_id", id).Warnf("rate limited")
//
// Verbosity is controlled by a global threshold (SetLevel, usually fed from
// the log_level setting) and debug can additionally be enabled for a single
// service with EnableDebugFor.
//
// All exported functions are safe for concurrent use.
package log
