package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/usecases"
	"github.com/samirrijal/mapcanvas/internal/pkg/geocodec"
)

// ListAnnotationsHandler returns the editable features in insertion order.
func ListAnnotationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit, err := parsePage(c, 100, 500)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		fc := deps.Session.Group().ToCollection()
		total := fc.Len()
		start, end := pageBounds(offset, limit, total)

		out := make([]*geojson.Feature, 0, end-start)
		for _, f := range fc.Features[start:end] {
			gf, err := geocodec.EncodeFeature(f)
			if err != nil {
				return errFromDomain(c, err)
			}
			out = append(out, gf)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: out, Pagination: pg})
	}
}

// GetAnnotationHandler returns one editable feature as a GeoJSON Feature.
func GetAnnotationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := deps.Session.Group().Get(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		body, err := geocodec.EncodeFeatureJSON(f)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set(fiber.HeaderContentType, GeoJSONMediaType)
		return c.Send(body)
	}
}

// DeleteAnnotationHandler removes one editable feature.
func DeleteAnnotationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Session.Remove(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ClearHandler empties the editable group. The shape in progress is kept.
func ClearHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n := deps.Session.Clear(c.UserContext())
		return c.JSON(fiber.Map{
			"removed": n,
			"status":  deps.Session.Status(),
		})
	}
}

// ExportLink is the data-URI form of an export, for an anchor's href and download attributes.
type ExportLink struct {
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
	Href      string `json:"href"`
	Count     int    `json:"count"`
}

// ExportHandler serializes the editable group as data.geojson.
// With ?format=datauri it returns an ExportLink instead of the file.
func ExportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format := c.Query("format", "file")
		if format != "file" && format != "datauri" {
			return errBadRequest(c, "format must be file or datauri")
		}

		art, err := deps.Session.Export(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Set(fiber.HeaderCacheControl, "no-store")
		if format == "datauri" {
			return c.JSON(ExportLink{
				Filename:  art.Filename,
				MediaType: art.MediaType,
				Href:      art.DataURI(),
				Count:     art.Count,
			})
		}

		c.Set(fiber.HeaderContentType, art.MediaType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, art.Filename))
		return c.Send(art.Body)
	}
}

// ImportHandler appends every feature of a posted GeoJSON FeatureCollection.
func ImportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		added, err := deps.Session.Import(c.UserContext(), c.Body())
		if err != nil {
			return errFromDomain(c, err)
		}
		ids := make([]string, len(added))
		for i, f := range added {
			ids[i] = f.ID
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"imported": len(added),
			"ids":      ids,
		})
	}
}

// SelectToolRequest picks the active drawing tool.
type SelectToolRequest struct {
	Tool string `json:"tool"`
}

// SelectToolHandler enters drawing mode with the named tool.
func SelectToolHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SelectToolRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		st, err := deps.Session.SelectTool(req.Tool)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(st)
	}
}

// PointerRequest is one pointer event at a plane coordinate, optionally
// with the viewport zoom it was made at.
type PointerRequest struct {
	Action string   `json:"action"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Zoom   *int     `json:"zoom,omitempty"`
}

// ShapeResponse carries the new status and, when a shape completed, the created feature.
type ShapeResponse struct {
	Status  domain.SessionStatus `json:"status"`
	Feature *geojson.Feature     `json:"feature,omitempty"`
}

// PointerHandler feeds a pointer event to the active tool.
func PointerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req PointerRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.X == nil || req.Y == nil {
			return errBadRequest(c, "x and y are required")
		}
		if req.Zoom != nil && (*req.Zoom < 0 || *req.Zoom > deps.Scene.MaxZoom()) {
			return errBadRequest(c, fmt.Sprintf("zoom must be between 0 and %d", deps.Scene.MaxZoom()))
		}

		created, st, err := deps.Session.Pointer(c.UserContext(), usecases.PointerEvent{
			Action: usecases.PointerAction(req.Action),
			At:     domain.Coordinate{X: *req.X, Y: *req.Y},
			Zoom:   req.Zoom,
		})
		if err != nil {
			return errFromDomain(c, err)
		}
		if created == nil {
			return c.JSON(ShapeResponse{Status: st})
		}
		return shapeCreated(c, *created, st)
	}
}

// FinishHandler completes the polyline or polygon in progress.
func FinishHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		created, st, err := deps.Session.Finish(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return shapeCreated(c, created, st)
	}
}

func shapeCreated(c *fiber.Ctx, f domain.Feature, st domain.SessionStatus) error {
	gf, err := geocodec.EncodeFeature(f)
	if err != nil {
		return errFromDomain(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ShapeResponse{Status: st, Feature: gf})
}

// UndoHandler removes the last placed vertex.
func UndoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := deps.Session.Undo()
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(st)
	}
}

// CancelHandler abandons the shape in progress.
func CancelHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Session.Cancel())
	}
}
