// Package templating contains the Templating bounded context.
// It covers rendering named templates with variables and blocks, and the
// lifecycle of rendered files that are persisted with an expiration date
// and optional key/value metadata.
package templating
