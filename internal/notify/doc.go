// Package notify pushes events to connected users.
//
// A Hub tracks the live connections of each user and delivers without
// blocking: a connection whose buffer is full misses the event. A Dispatcher
// sits in front of the hub with a bounded queue and a small worker pool so
// that services hand events off and return immediately. WebSocketHandler is
// the transport that registers connections with the hub.
package notify
