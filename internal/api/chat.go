package api

import (
	"context"

	"homescout/internal/model"
)

// SendInterest forwards a property-interest message to the chatbot
// backend and returns its reply.
func (c *Client) SendInterest(ctx context.Context, propertyID, message string) (*model.ChatReply, error) {
	body := struct {
		PropertyID string `json:"property_id"`
		Message    string `json:"message"`
	}{propertyID, message}

	var reply model.ChatReply
	if err := c.doPost(ctx, "/api/v1/chat/interest", body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}
