package domain

import "errors"

var (
	// ErrMalformedFeature wraps every decode or validation failure of a feature collection.
	ErrMalformedFeature = errors.New("malformed feature")
	// ErrUnsupportedGeometry is returned for geometry types outside the annotation union.
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
	ErrUnknownGeometryKind = errors.New("unknown geometry kind")
	ErrFeatureNotFound     = errors.New("feature not found")
	ErrDuplicateFeature    = errors.New("duplicate feature id")
	ErrEditableAttached    = errors.New("editable group already attached")
	ErrBaseLoaded          = errors.New("base collection already loaded")
)
