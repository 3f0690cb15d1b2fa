package manifest

import "errors"

// ErrMalformedManifest is returned when a manifest cannot be decoded or when
// part of the element tree does not have the expected structure. Extract
// wraps it per component and still returns the components it could build.
var ErrMalformedManifest = errors.New("unsupported or malformed manifest")
