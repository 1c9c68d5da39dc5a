// Package common contains shared constants, sentinel errors and small helpers
// used by both the finkeeper client and server.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// TempIDPrefix marks identifiers minted locally for records that the server
// has not confirmed yet.
const TempIDPrefix = "temp_"
