package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/usecases"
	"github.com/samirrijal/mapcanvas/internal/pkg/geocodec"
)

// GeoJSONMediaType is the content type of GeoJSON served by the map endpoints.
const GeoJSONMediaType = "application/geo+json"

// SceneHandler returns the viewport manifest: CRS, zoom range, bounds and layers.
func SceneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Scene.Manifest())
	}
}

// TilesResponse lists the placed raster tiles.
type TilesResponse struct {
	TileWidth   int                 `json:"tile_width"`
	TileHeight  int                 `json:"tile_height"`
	OverlayZoom int                 `json:"overlay_zoom"`
	SeamPad     int                 `json:"seam_pad"`
	Tiles       []domain.PlacedTile `json:"tiles"`
}

// TilesHandler returns every tile overlay with its plane bounds.
func TilesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		proj := deps.Tiles.Projector()
		w, h := proj.TileSize()
		tiles := deps.Tiles.Tiles()
		if tiles == nil {
			tiles = []domain.PlacedTile{}
		}
		return c.JSON(TilesResponse{
			TileWidth:   w,
			TileHeight:  h,
			OverlayZoom: proj.OverlayZoom(),
			SeamPad:     usecases.SeamPad,
			Tiles:       tiles,
		})
	}
}

// ProjectionBoundsResponse is the projected bounds of one tile cell.
type ProjectionBoundsResponse struct {
	Col        int              `json:"col"`
	Row        int              `json:"row"`
	TileWidth  int              `json:"tile_width"`
	TileHeight int              `json:"tile_height"`
	Zoom       int              `json:"zoom"`
	Bounds     domain.GeoBounds `json:"bounds"`
}

// ProjectionBoundsHandler projects a tile cell to plane bounds.
// col and row are required; tile_width, tile_height and zoom default to the grid's.
func ProjectionBoundsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		proj := deps.Tiles.Projector()
		w, h := proj.TileSize()

		col, err := intQuery(c, "col", nil)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		row, err := intQuery(c, "row", nil)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if w, err = intQuery(c, "tile_width", &w); err != nil {
			return errBadRequest(c, err.Error())
		}
		if h, err = intQuery(c, "tile_height", &h); err != nil {
			return errBadRequest(c, err.Error())
		}
		zoom := proj.OverlayZoom()
		if zoom, err = intQuery(c, "zoom", &zoom); err != nil {
			return errBadRequest(c, err.Error())
		}
		if w <= 0 || h <= 0 {
			return errBadRequest(c, "tile_width and tile_height must be positive")
		}

		return c.JSON(ProjectionBoundsResponse{
			Col:        col,
			Row:        row,
			TileWidth:  w,
			TileHeight: h,
			Zoom:       zoom,
			Bounds:     proj.ToBounds(col, row, w, h, zoom),
		})
	}
}

// intQuery parses an integer query parameter. A nil def makes it required.
func intQuery(c *fiber.Ctx, name string, def *int) (int, error) {
	v := c.Query(name)
	if v == "" {
		if def == nil {
			return 0, fiber.NewError(fiber.StatusBadRequest, name+" is required")
		}
		return *def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, name+" must be an integer")
	}
	return n, nil
}

// BaseHandler serves the read-only base collection as GeoJSON.
func BaseHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fc, loaded := deps.Layer.Base()
		if !loaded {
			return errUnavailable(c, "base collection not loaded")
		}
		body, err := geocodec.Encode(fc)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set(fiber.HeaderContentType, GeoJSONMediaType)
		return c.Send(body)
	}
}

// SessionResponse reports whether authoring is enabled and the session's state.
type SessionResponse struct {
	Authorized bool `json:"authorized"`
	domain.SessionStatus
}

// SessionHandler returns the authoring session status. Without authoring it
// reports the inactive state.
func SessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Session == nil {
			return c.JSON(SessionResponse{SessionStatus: domain.SessionStatus{State: domain.StateInactive}})
		}
		return c.JSON(SessionResponse{Authorized: true, SessionStatus: deps.Session.Status()})
	}
}
