package chrome

import (
	"context"
	"fmt"
)

// Click clicks the first element matching a CSS selector with real mouse
// events at the element's centre, scrolling it into view first.
func (c *Client) Click(ctx context.Context, targetID string, selector string) error {
	sessionID, err := c.attach(ctx, targetID)
	if err != nil {
		return err
	}

	nodeID, err := c.resolveNodeID(ctx, sessionID, selector)
	if err != nil {
		return err
	}

	_, err = c.CallSession(ctx, sessionID, "DOM.scrollIntoViewIfNeeded", map[string]interface{}{
		"nodeId": nodeID,
	})
	if err != nil {
		return fmt.Errorf("scrolling into view: %w", err)
	}

	x, y, err := c.getNodeCenter(ctx, sessionID, nodeID)
	if err != nil {
		return err
	}

	return c.dispatchMouseClick(ctx, sessionID, x, y, "left", 1)
}

// Focus focuses the first element matching selector.
func (c *Client) Focus(ctx context.Context, targetID string, selector string) error {
	sessionID, err := c.attach(ctx, targetID)
	if err != nil {
		return err
	}

	nodeID, err := c.resolveNodeID(ctx, sessionID, selector)
	if err != nil {
		return err
	}

	_, err = c.CallSession(ctx, sessionID, "DOM.focus", map[string]interface{}{
		"nodeId": nodeID,
	})
	if err != nil {
		return fmt.Errorf("focusing element: %w", err)
	}
	return nil
}

// InsertText focuses the element matching selector and inserts text at the
// caret as if typed, firing input events.
func (c *Client) InsertText(ctx context.Context, targetID string, selector string, text string) error {
	if err := c.Focus(ctx, targetID, selector); err != nil {
		return err
	}

	sessionID, err := c.attach(ctx, targetID)
	if err != nil {
		return err
	}

	_, err = c.CallSession(ctx, sessionID, "Input.insertText", map[string]interface{}{
		"text": text,
	})
	if err != nil {
		return fmt.Errorf("inserting text: %w", err)
	}
	return nil
}
