package extraction

import (
	"fmt"
	"strings"

	"github.com/geoleads/lead-engine/internal/job"
	"github.com/geoleads/lead-engine/internal/lead"
	"github.com/geoleads/lead-engine/pkg/places"
)

// leadSource labels rows created by the extraction walker.
const leadSource = "Places API"

// FormatLead maps a place detail onto a lead row. Returns nil when the
// detail is missing or has no name, which drops the candidate.
func FormatLead(d *places.PlaceDetails, category string, params job.Params) *lead.Lead {
	if d == nil || strings.TrimSpace(d.Name) == "" {
		return nil
	}

	address := d.FormattedAddress
	if address == "" {
		address = d.Vicinity
	}

	l := &lead.Lead{
		ExternalID:   d.PlaceID,
		Name:         d.Name,
		Address:      address,
		Location:     fmt.Sprintf("%.6f, %.6f", d.Geometry.Location.Lat, d.Geometry.Location.Lng),
		Website:      d.Website,
		Phone:        d.FormattedPhoneNumber,
		City:         cityComponent(d.AddressComponents),
		Country:      countryComponent(d.AddressComponents),
		BusinessType: titleCase(category),
		Currency:     params.Currency,
		RecordOwner:  params.CreatedBy,
		Source:       leadSource,
	}
	if l.City == "" {
		l.City = params.City
	}
	if l.Country == "" {
		l.Country = params.Country
	}
	return l
}

// cityComponent prefers locality, then the UK-style postal town, then the
// third-level administrative area.
func cityComponent(comps []places.AddressComponent) string {
	for _, want := range []string{"locality", "postal_town", "administrative_area_level_3"} {
		for _, c := range comps {
			for _, t := range c.Types {
				if t == want {
					return c.LongName
				}
			}
		}
	}
	return ""
}

func countryComponent(comps []places.AddressComponent) string {
	for _, c := range comps {
		for _, t := range c.Types {
			if t == "country" {
				return c.LongName
			}
		}
	}
	return ""
}

// titleCase uppercases the first letter of each word in a category keyword
// ("coffee shop" becomes "Coffee Shop").
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
