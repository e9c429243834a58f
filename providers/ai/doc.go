// Package ai defines the shared data model of the adapter: chat messages and
// multipart content, model descriptors, the normalized text-delta stream, the
// Transport interface implemented by every backend variant, and the error
// taxonomy surfaced to callers.
package ai
