package model

import "strings"

// Filter narrows an already-fetched property list locally. Fields are
// typed and zero values mean "no constraint"; raw UI input is converted
// into a Filter at the boundary, never routed by string membership.
type Filter struct {
	City        string
	Kind        ListingKind
	MinPrice    float64
	MaxPrice    float64
	MinBedrooms int
	Query       string
}

// Match reports whether p satisfies every set constraint.
func (f Filter) Match(p Property) bool {
	if f.City != "" && !strings.EqualFold(f.City, p.City) {
		return false
	}
	if f.Kind != "" && f.Kind != p.Kind {
		return false
	}
	price := p.Price
	if p.Kind == ListingForRent {
		price = p.PricePerNight
	}
	if f.MinPrice > 0 && price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && price > f.MaxPrice {
		return false
	}
	if f.MinBedrooms > 0 && p.Bedrooms < f.MinBedrooms {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	return true
}

// FilterProperties returns the listings matching f, preserving order.
func FilterProperties(list []Property, f Filter) []Property {
	var out []Property
	for _, p := range list {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
