package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
)

//go:embed views
var viewsFS embed.FS

// View names rendered by the handlers.
const (
	viewHome   = "home"
	viewLogin  = "login"
	viewSignup = "signup"
	viewError  = "errors/500"
	viewLayout = "layouts/main"
)

// NewViewEngine loads the embedded django templates.
func NewViewEngine() (*django.Engine, error) {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, fmt.Errorf("unable to scope embedded templates: %w", err)
	}
	return django.NewFileSystem(http.FS(sub), ".html"), nil
}
