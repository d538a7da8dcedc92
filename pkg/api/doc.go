// Package api generates the opaque IDs used across the gateway: file
// upload job IDs and, where a distinct prefix is useful, response IDs.
// IDs are cryptographically random and carry no structure beyond their
// prefix.
package api
