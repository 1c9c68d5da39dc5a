// Package cli implements the finkeeper command-line client.
//
// Every command runs against an App that wires the local store, the cache,
// the mutation queue, the network monitor and the sync coordinator. Reads
// are served from the cache, mutations are applied optimistically and
// queued, and queued mutations are replayed whenever the server is
// reachable. When the local store cannot be opened the App runs with the
// cache disabled: reads go to the server and mutations are sent directly.
//
// The shell command keeps one App alive and runs commands line by line,
// while a background monitor drains the queue as soon as the server comes
// back.
package cli
