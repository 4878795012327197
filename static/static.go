// Package static embeds the dashboard's stylesheet.
package static

import "embed"

//go:embed *.css
var FS embed.FS
