// Package core provides the fundamental types and interfaces for the refresh package.
//
// This package contains:
//   - Kind, State, Outcome and Source value types
//   - Fetcher and Sink interfaces for the network and rendering collaborators
//   - Event types for coordinator monitoring
//   - Error types for refresh processing
//
// Most users should import the root package github.com/jdziat/simple-refresh
// instead of this package directly.
package core
