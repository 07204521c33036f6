// Package cache provides distributed and in-process locks used to keep a
// single sweeper active across server instances.
package cache
