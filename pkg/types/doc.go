// Package types defines the worksite entities, list filters, pagination,
// the Service contract the entity store talks to, client configuration, and
// the standard error types shared by the client packages.
package types
