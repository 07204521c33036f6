package handler

import (
	"github.com/alexclassroom/woocommerce/internal/interfaces/http/router"
)

// TemplatingRoutes creates the route groups for rendering and rendered files
func TemplatingRoutes(handler *TemplatingHandler) []router.RouteRegistrar {
	templates := router.NewDomainGroup("templates", "/templates")
	templates.POST("/render", handler.Render)

	files := router.NewDomainGroup("rendered-files", "/rendered-files")
	files.POST("/sweep", handler.Sweep)
	files.GET("/:id", handler.GetByID)
	files.DELETE("/:id", handler.DeleteByID)

	byName := files.Group("rendered-files-by-name", "/by-name")
	byName.GET("/:name", handler.GetByName)
	byName.GET("/:name/download", handler.Download)
	byName.DELETE("/:name", handler.DeleteByName)

	return []router.RouteRegistrar{templates, files}
}
