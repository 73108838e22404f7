// Package filesource reads the base annotation collection from a GeoJSON file.
package filesource

import (
	"context"
	"fmt"
	"os"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/ports"
	"github.com/samirrijal/mapcanvas/internal/pkg/geocodec"
)

var _ ports.BaseFeatureSource = (*Source)(nil)

// Source implements ports.BaseFeatureSource over a file on disk.
type Source struct {
	path string
}

func New(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Path() string { return s.path }

// Load reads and decodes the file on every call.
func (s *Source) Load(ctx context.Context) (domain.FeatureCollection, error) {
	if err := ctx.Err(); err != nil {
		return domain.FeatureCollection{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("read base collection: %w", err)
	}
	fc, err := geocodec.Decode(data)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("%s: %w", s.path, err)
	}
	return fc, nil
}
