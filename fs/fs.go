// Package appfs embeds static files shipped with the binary.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
