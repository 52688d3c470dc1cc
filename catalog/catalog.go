// Package catalog embeds the default question and session catalogs.
package catalog

import _ "embed"

//go:embed questions.json
var Questions []byte

//go:embed sessions.json
var Sessions []byte
