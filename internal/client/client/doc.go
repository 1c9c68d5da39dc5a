// Package client talks to the finkeeper backend.
//
// Client is the transport-agnostic contract used by the sync coordinator,
// the network monitor and the auth service. GRPCClient implements it on top
// of the finkeeper.v1.Finance service: it keeps the session tokens, injects
// the access token into outgoing metadata, refreshes an expired token once
// per call and maps gRPC status codes to the sentinel errors in errors.go.
//
// GRPCClient is safe for concurrent use.
package client
