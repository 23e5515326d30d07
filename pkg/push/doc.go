// Package push listens on the dashboard's activity WebSocket and turns
// "something changed" messages into refresh hints.
//
// A hint is not a bypass: it goes through the same pause and in-flight
// guard as a timer tick, so a hint that arrives while the user is editing
// is dropped like any other tick.
package push
