// Package events defines the notifications pushed to connected users and the
// Notifier interface services use to send them.
//
// Notification is best effort. A Notifier never reports failure to its
// caller and must not block the write path that produced the event; the
// notify package supplies the asynchronous implementation used by the server.
package events
