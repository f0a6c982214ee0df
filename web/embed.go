package web

import "embed"

// Static embeds the SPA shell and its assets.
//
//go:embed static
var Static embed.FS
