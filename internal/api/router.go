package api

import (
	"embed"
	"net/http"

	"github.com/ItsNotGoodName/porthole/internal/build"
	"github.com/ItsNotGoodName/porthole/pkg/chiext"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed web
var webFS embed.FS

// NewRouter serves the API operations, the OpenAPI docs and the viewer.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chiext.Logger())
	r.Use(middleware.Recoverer)
	r.Use(chiext.StaticEmbedFS(chiext.StaticFSConfig{
		FileSystem: webFS,
		Root:       "web",
	}))

	api := humachi.New(r, huma.DefaultConfig("porthole", build.Current.Version))
	h.Register(api)

	return r
}
