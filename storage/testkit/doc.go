// Package testkit provides the conformance suite for storage.Store backends.
package testkit
