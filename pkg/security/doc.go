// Package security provides validation, sanitization, and limits for the refresh package.
//
// This package includes:
//   - Input validation for refresher kind names
//   - Error message and label sanitization for logs and storage
//   - Clamping functions to enforce safe limits on pause windows and intervals
//   - Security-related constants defining maximum sizes
//
// Most users should import the root package github.com/jdziat/simple-refresh
// which re-exports these functions.
package security
