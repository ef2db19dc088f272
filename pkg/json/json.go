// Package json is the gateway's JSON codec: jsoniter configured for
// standard-library compatibility, shared by the client envelopes, the
// coordination-service frames, and the profile cache.
package json

import jsoniter "github.com/json-iterator/go"

var (
	// JSON is the jsoniter instance used for all gateway encoding.
	JSON = jsoniter.ConfigCompatibleWithStandardLibrary

	// Marshal is a shorthand for JSON.Marshal.
	Marshal = JSON.Marshal

	// Unmarshal is a shorthand for JSON.Unmarshal.
	Unmarshal = JSON.Unmarshal
)
