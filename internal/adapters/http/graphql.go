package http

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/pkg/geocodec"
)

var errAuthoringDisabled = errors.New("authoring is disabled")

// jsonScalar passes arbitrary JSON values (GeoJSON geometry, properties) through untouched.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:         "JSON",
	Description:  "Arbitrary JSON value",
	Serialize:    func(v interface{}) interface{} { return v },
	ParseValue:   func(v interface{}) interface{} { return v },
	ParseLiteral: func(ast.Value) interface{} { return nil },
})

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"x": &graphql.Field{Type: graphql.Float},
			"y": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"south_west": &graphql.Field{Type: coordinateType},
			"north_east": &graphql.Field{Type: coordinateType},
		},
	})

	layerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Layer",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"kind":     &graphql.Field{Type: graphql.String},
			"url":      &graphql.Field{Type: graphql.String},
			"bounds":   &graphql.Field{Type: boundsType},
			"name":     &graphql.Field{Type: graphql.String},
			"editable": &graphql.Field{Type: graphql.Boolean},
			"source":   &graphql.Field{Type: graphql.String},
		},
	})

	sceneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Scene",
		Fields: graphql.Fields{
			"crs":        &graphql.Field{Type: graphql.String},
			"min_zoom":   &graphql.Field{Type: graphql.Int},
			"max_zoom":   &graphql.Field{Type: graphql.Int},
			"zoom":       &graphql.Field{Type: graphql.Int},
			"center":     &graphql.Field{Type: coordinateType},
			"max_bounds": &graphql.Field{Type: boundsType},
			"layers":     &graphql.Field{Type: graphql.NewList(layerType)},
		},
	})

	tileType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Tile",
		Fields: graphql.Fields{
			"row":      &graphql.Field{Type: graphql.Int},
			"col":      &graphql.Field{Type: graphql.Int},
			"url":      &graphql.Field{Type: graphql.String},
			"layer_id": &graphql.Field{Type: graphql.String},
			"bounds":   &graphql.Field{Type: boundsType},
		},
	})

	featureType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Feature",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"kind":       &graphql.Field{Type: graphql.String},
			"geometry":   &graphql.Field{Type: jsonScalar},
			"properties": &graphql.Field{Type: jsonScalar},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"authorized": &graphql.Field{Type: graphql.Boolean},
			"state":      &graphql.Field{Type: graphql.String},
			"tool":       &graphql.Field{Type: graphql.String},
			"vertices":   &graphql.Field{Type: graphql.Int},
			"features":   &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"scene": &graphql.Field{
				Type: sceneType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return toGraph(deps.Scene.Manifest())
				},
			},
			"tiles": &graphql.Field{
				Type: graphql.NewList(tileType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return toGraph(deps.Tiles.Tiles())
				},
			},
			"baseFeatures": &graphql.Field{
				Type: graphql.NewList(featureType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					fc, loaded := deps.Layer.Base()
					if !loaded {
						return nil, errors.New("base collection not loaded")
					}
					return graphFeatures(fc.Features)
				},
			},
			"annotations": &graphql.Field{
				Type: graphql.NewList(featureType),
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Session == nil {
						return nil, errAuthoringDisabled
					}
					offset, _ := p.Args["offset"].(int)
					limit, _ := p.Args["limit"].(int)
					if offset < 0 || limit < 1 {
						return nil, errors.New("offset must be non-negative and limit positive")
					}
					fc := deps.Session.Group().ToCollection()
					start, end := pageBounds(offset, min(limit, 500), fc.Len())
					return graphFeatures(fc.Features[start:end])
				},
			},
			"annotation": &graphql.Field{
				Type: featureType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Session == nil {
						return nil, errAuthoringDisabled
					}
					id, _ := p.Args["id"].(string)
					f, err := deps.Session.Group().Get(id)
					if err != nil {
						return nil, err
					}
					return graphFeature(f)
				},
			},
			"session": &graphql.Field{
				Type: sessionType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Session == nil {
						return toGraph(SessionResponse{SessionStatus: domain.SessionStatus{State: domain.StateInactive}})
					}
					return toGraph(SessionResponse{Authorized: true, SessionStatus: deps.Session.Status()})
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// toGraph converts v to its JSON object form so the default resolvers see the
// same field names as the REST responses.
func toGraph(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func graphFeature(f domain.Feature) (map[string]interface{}, error) {
	gf, err := geocodec.EncodeFeature(f)
	if err != nil {
		return nil, err
	}
	geometry, err := toGraph(geojson.NewGeometry(gf.Geometry))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"id":         f.ID,
		"kind":       string(f.Kind()),
		"geometry":   geometry,
		"properties": gf.Properties,
	}, nil
}

func graphFeatures(features []domain.Feature) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(features))
	for _, f := range features {
		m, err := graphFeature(f)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
