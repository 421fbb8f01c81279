package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleProperties() []Property {
	return []Property{
		{ID: "1", Title: "Sunny loft", City: "Lisbon", Kind: ListingForRent, PricePerNight: 80, Bedrooms: 1},
		{ID: "2", Title: "Harbor villa", City: "Porto", Kind: ListingForRent, PricePerNight: 240, Bedrooms: 4},
		{ID: "3", Title: "Downtown flat", City: "Lisbon", Kind: ListingForSale, Price: 320000, Bedrooms: 2},
		{ID: "4", Title: "Garden house", City: "Faro", Kind: ListingForSale, Price: 450000, Bedrooms: 3, Description: "quiet garden retreat"},
	}
}

func TestFilterProperties(t *testing.T) {
	props := sampleProperties()

	tests := []struct {
		name   string
		filter Filter
		want   []string // IDs
	}{
		{"no constraints", Filter{}, []string{"1", "2", "3", "4"}},
		{"by city", Filter{City: "lisbon"}, []string{"1", "3"}},
		{"by kind", Filter{Kind: ListingForRent}, []string{"1", "2"}},
		{"rent price band", Filter{Kind: ListingForRent, MaxPrice: 100}, []string{"1"}},
		{"sale min price", Filter{Kind: ListingForSale, MinPrice: 400000}, []string{"4"}},
		{"bedrooms", Filter{MinBedrooms: 3}, []string{"2", "4"}},
		{"query in title", Filter{Query: "villa"}, []string{"2"}},
		{"query in description", Filter{Query: "garden"}, []string{"4"}},
		{"no match", Filter{City: "Berlin"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterProperties(props, tt.filter)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			if tt.want == nil {
				assert.Empty(t, ids)
				return
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
