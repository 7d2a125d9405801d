// Package web embeds the static browser client.
package web

import (
	"embed"

	"github.com/labstack/echo/v4"
)

//go:embed static
var staticFS embed.FS

// Register serves the client under /ui.
func Register(e *echo.Echo) {
	e.StaticFS("/ui", echo.MustSubFS(staticFS, "static"))
}
