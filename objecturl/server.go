package objecturl

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes serves live blobs at GET /blob/:id behind the given middleware
func (r *Registry) RegisterRoutes(e *echo.Echo, m ...echo.MiddlewareFunc) {
	e.GET(BlobPath+":id", r.ServeBlob, m...)
}

// ServeBlob streams a blob with range support. Revoked and unknown ids are 404.
func (r *Registry) ServeBlob(c echo.Context) error {
	h, ok := r.Lookup(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "object URL revoked or unknown")
	}

	rs, err := h.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	res := c.Response()
	if h.MediaType() != "" {
		res.Header().Set(echo.HeaderContentType, h.MediaType())
	}
	res.Header().Set("Cache-Control", "no-store")
	http.ServeContent(res, c.Request(), h.Name(), h.Created(), rs)
	return nil
}
