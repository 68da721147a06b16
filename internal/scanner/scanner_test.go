package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TourScanner/internal/domain"
)

type stubStrategy struct{ name string }

func (s stubStrategy) Name() string                   { return s.name }
func (s stubStrategy) Validate(domain.Ruleset) error { return nil }
func (s stubStrategy) Extract([]byte, domain.Ruleset) ([]domain.RawItem, error) {
	return []domain.RawItem{{"by": s.name}}, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(stubStrategy{name: "selectors"})
	reg.Register(stubStrategy{name: "jsonld"})

	got, err := reg.Resolve("jsonld")
	require.NoError(t, err)
	assert.Equal(t, "jsonld", got.Name())

	_, err = reg.Resolve("xpath")
	assert.ErrorContains(t, err, "extractor xpath is not registered (available: jsonld, selectors)")

	assert.Equal(t, []string{"jsonld", "selectors"}, reg.Names())
}

func TestRegistryZeroValueRegister(t *testing.T) {
	t.Parallel()

	var reg Registry
	reg.Register(stubStrategy{name: "selectors"})

	_, err := reg.Resolve("selectors")
	assert.NoError(t, err)
}
