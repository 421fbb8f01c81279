package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"homescout/internal/calendar"
	"homescout/internal/model"
)

// GetProperty fetches a single listing by id.
func (c *Client) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	endpoint := fmt.Sprintf("/api/v1/properties/%s", url.PathEscape(id))
	cacheKey := "property:" + id

	var p model.Property
	if c.readCache(ctx, cacheKey, &p) {
		return &p, nil
	}
	if err := c.doGet(ctx, endpoint, &p); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, p)
	return &p, nil
}

// ListForSale returns all sale listings.
func (c *Client) ListForSale(ctx context.Context) ([]model.Property, error) {
	return c.listProperties(ctx, "sale")
}

// ListForRent returns all rental listings.
func (c *Client) ListForRent(ctx context.Context) ([]model.Property, error) {
	return c.listProperties(ctx, "rent")
}

func (c *Client) listProperties(ctx context.Context, kind string) ([]model.Property, error) {
	endpoint := "/api/v1/properties?kind=" + url.QueryEscape(kind)
	cacheKey := "properties:" + kind

	var wrap struct {
		Properties []model.Property `json:"properties"`
	}
	if c.readCache(ctx, cacheKey, &wrap) {
		return wrap.Properties, nil
	}
	if err := c.doGet(ctx, endpoint, &wrap); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, wrap)
	return wrap.Properties, nil
}

// BookedDates fetches the occupied date ranges of a property, normalized
// for the calendar engine.
func (c *Client) BookedDates(ctx context.Context, propertyID string) ([]calendar.DateRange, error) {
	endpoint := fmt.Sprintf("/api/v1/properties/%s/booked-dates", url.PathEscape(propertyID))
	cacheKey := bookedDatesCacheKey(propertyID)

	var wrap struct {
		Dates json.RawMessage `json:"dates"`
	}
	if !c.readCache(ctx, cacheKey, &wrap) {
		if err := c.doGet(ctx, endpoint, &wrap); err != nil {
			return nil, err
		}
		c.writeCache(ctx, cacheKey, wrap)
	}
	return ParseBookedDates(wrap.Dates)
}

func bookedDatesCacheKey(propertyID string) string {
	return "booked-dates:" + propertyID
}

// ParseBookedDates accepts the two shapes the backend serves: a list of
// {start,end} range objects, or a flat list of YYYY-MM-DD day strings
// (each one a single occupied day).
func ParseBookedDates(raw json.RawMessage) ([]calendar.DateRange, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var rangeObjs []struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := json.Unmarshal(raw, &rangeObjs); err == nil {
		ranges := make([]calendar.DateRange, 0, len(rangeObjs))
		for _, r := range rangeObjs {
			start, err := calendar.ParseDay(r.Start)
			if err != nil {
				return nil, err
			}
			end, err := calendar.ParseDay(r.End)
			if err != nil {
				return nil, err
			}
			ranges = append(ranges, calendar.NewDateRange(start, end))
		}
		return ranges, nil
	}

	var days []string
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("parse booked dates: %w", err)
	}
	ranges := make([]calendar.DateRange, 0, len(days))
	for _, s := range days {
		d, err := calendar.ParseDay(s)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, calendar.NewDateRange(d, d))
	}
	return ranges, nil
}
