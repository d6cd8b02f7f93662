// Package scripts embeds the bundled Risor query policies.
package scripts

import "embed"

// FS holds policy/*.risor.
//
//go:embed policy/*.risor
var FS embed.FS
