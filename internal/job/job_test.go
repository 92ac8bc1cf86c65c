package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseType(t *testing.T) {
	for _, s := range []string{"coordinate-extraction", "city-extraction", "enrichment", "social-enrichment"} {
		typ, err := ParseType(s)
		assert.NoError(t, err)
		assert.Equal(t, Type(s), typ)
	}

	_, err := ParseType("bulk-delete")
	assert.Error(t, err)
}

func TestTypeExtraction(t *testing.T) {
	assert.True(t, TypeCoordinateExtraction.Extraction())
	assert.True(t, TypeCityExtraction.Extraction())
	assert.False(t, TypeEnrichment.Extraction())
	assert.False(t, TypeSocialEnrichment.Extraction())
}

func TestEstimateDuration(t *testing.T) {
	cats := func(n int) []string { return make([]string, n) }
	ids := func(n int) []string { return make([]string, n) }

	assert.Equal(t, 120, EstimateDuration(TypeCoordinateExtraction, Params{Categories: cats(2)}))
	assert.Equal(t, 600, EstimateDuration(TypeCoordinateExtraction, Params{Categories: cats(20)}))
	assert.Equal(t, 60, EstimateDuration(TypeCoordinateExtraction, Params{}))
	assert.Equal(t, 300, EstimateDuration(TypeCityExtraction, Params{}))
	assert.Equal(t, 15, EstimateDuration(TypeEnrichment, Params{LeadIDs: ids(5)}))
	assert.Equal(t, 900, EstimateDuration(TypeEnrichment, Params{LeadIDs: ids(500)}))
	assert.Equal(t, 9, EstimateDuration(TypeSocialEnrichment, Params{LeadIDs: ids(3)}))
}

func TestDefaultPriority(t *testing.T) {
	assert.Equal(t, 3, DefaultPriority(TypeEnrichment))
	assert.Equal(t, 3, DefaultPriority(TypeSocialEnrichment))
	assert.Equal(t, 2, DefaultPriority(TypeCoordinateExtraction))
	assert.Equal(t, 1, DefaultPriority(TypeCityExtraction))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		typ    Type
		params Params
		errMsg string
	}{
		{"coordinate ok", TypeCoordinateExtraction, Params{Coordinates: "51.5,-0.12", RadiusMeters: 500, Categories: []string{"restaurant"}}, ""},
		{"coordinate missing coords", TypeCoordinateExtraction, Params{RadiusMeters: 500, Categories: []string{"restaurant"}}, "coordinates are required"},
		{"coordinate bad radius", TypeCoordinateExtraction, Params{Coordinates: "1,2", Categories: []string{"cafe"}}, "radius_meters"},
		{"coordinate no categories", TypeCoordinateExtraction, Params{Coordinates: "1,2", RadiusMeters: 100}, "category"},
		{"city ok", TypeCityExtraction, Params{City: "London", Country: "UK", Categories: []string{"bar"}}, ""},
		{"city missing country", TypeCityExtraction, Params{City: "London", Categories: []string{"bar"}}, "country is required"},
		{"enrichment ok", TypeEnrichment, Params{LeadIDs: []string{"x"}}, ""},
		{"enrichment empty", TypeEnrichment, Params{}, "lead_ids are required"},
		{"social ok", TypeSocialEnrichment, Params{LeadIDs: []string{"x"}}, ""},
		{"social empty", TypeSocialEnrichment, Params{}, "lead_ids are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate(tt.typ)
			if tt.errMsg == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.errMsg)
			}
		})
	}
}
