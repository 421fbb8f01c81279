package api

import (
	"context"
	"fmt"
	"net/url"

	"homescout/internal/model"
)

const favoritesCacheKey = "favorites"

// ListFavorites returns the signed-in user's saved listings.
func (c *Client) ListFavorites(ctx context.Context) ([]model.Property, error) {
	var wrap struct {
		Properties []model.Property `json:"properties"`
	}
	if c.readCache(ctx, favoritesCacheKey, &wrap) {
		return wrap.Properties, nil
	}
	if err := c.doGet(ctx, "/api/v1/favorites", &wrap); err != nil {
		return nil, err
	}
	c.writeCache(ctx, favoritesCacheKey, wrap)
	return wrap.Properties, nil
}

// AddFavorite saves a listing.
func (c *Client) AddFavorite(ctx context.Context, propertyID string) error {
	body := struct {
		PropertyID string `json:"property_id"`
	}{propertyID}
	if err := c.doPost(ctx, "/api/v1/favorites", body, nil); err != nil {
		return err
	}
	c.dropCache(ctx, favoritesCacheKey)
	return nil
}

// RemoveFavorite unsaves a listing.
func (c *Client) RemoveFavorite(ctx context.Context, propertyID string) error {
	endpoint := fmt.Sprintf("/api/v1/favorites/%s", url.PathEscape(propertyID))
	if err := c.doDelete(ctx, endpoint); err != nil {
		return err
	}
	c.dropCache(ctx, favoritesCacheKey)
	return nil
}
