// Package openapi embeds the roster API description for runtime
// distribution. The handler serves it at /api/v1/openapi.yaml.
package openapi

import _ "embed"

//go:embed openapi.yaml
var rosterSpec []byte

// Spec returns a defensive copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), rosterSpec...)
}
