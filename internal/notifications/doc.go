// Package notifications delivers push notifications through ntfy.
//
// When no topic is configured the service degrades to a noop so callers can
// notify unconditionally.
package notifications
