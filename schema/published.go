package schema

import (
	_ "embed"
)

//go:embed icrc21.schema.json
var published []byte

// Published returns the interface document shipped with this module. The
// returned slice is a copy.
func Published() []byte {
	return append([]byte(nil), published...)
}
