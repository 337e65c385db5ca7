package chrome

import (
	"context"
	"encoding/json"
	"fmt"
)

// NewTab creates a new browser tab and returns its target ID.
func (c *Client) NewTab(ctx context.Context, url string) (string, error) {
	if url == "" {
		url = "about:blank"
	}

	result, err := c.Call(ctx, "Target.createTarget", map[string]interface{}{
		"url": url,
	})
	if err != nil {
		return "", fmt.Errorf("creating target: %w", err)
	}

	var resp struct {
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	return resp.TargetID, nil
}

// CloseTab closes a browser tab by its target ID.
func (c *Client) CloseTab(ctx context.Context, targetID string) error {
	c.sessionsMu.Lock()
	delete(c.sessions, targetID)
	c.sessionsMu.Unlock()

	_, err := c.Call(ctx, "Target.closeTarget", map[string]interface{}{
		"targetId": targetID,
	})
	if err != nil {
		return fmt.Errorf("closing target: %w", err)
	}
	return nil
}

// NavigateAndWait navigates a target to url, waits for the load event and
// reports the HTTP status of the main document response. The wait is bounded
// only by ctx.
func (c *Client) NavigateAndWait(ctx context.Context, targetID string, url string) (*NavigateResult, error) {
	sessionID, err := c.attach(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if _, err := c.CallSession(ctx, sessionID, "Page.enable", nil); err != nil {
		return nil, fmt.Errorf("enabling Page domain: %w", err)
	}
	if _, err := c.CallSession(ctx, sessionID, "Network.enable", nil); err != nil {
		return nil, fmt.Errorf("enabling Network domain: %w", err)
	}

	// Subscribe before navigating so neither event can be missed
	loadCh := c.subscribe(sessionID, "Page.loadEventFired")
	defer c.unsubscribe(sessionID, "Page.loadEventFired", loadCh)
	respCh := c.subscribe(sessionID, "Network.responseReceived")
	defer c.unsubscribe(sessionID, "Network.responseReceived", respCh)

	navResult, err := c.CallSession(ctx, sessionID, "Page.navigate", map[string]string{
		"url": url,
	})
	if err != nil {
		return nil, fmt.Errorf("navigating: %w", err)
	}

	var navResp struct {
		FrameID   string `json:"frameId"`
		LoaderID  string `json:"loaderId"`
		ErrorText string `json:"errorText"`
	}
	if err := json.Unmarshal(navResult, &navResp); err != nil {
		return nil, fmt.Errorf("parsing navigate response: %w", err)
	}

	result := &NavigateResult{
		FrameID:   navResp.FrameID,
		LoaderID:  navResp.LoaderID,
		URL:       url,
		ErrorText: navResp.ErrorText,
	}
	if navResp.ErrorText != "" {
		return result, nil
	}
	// Same-document navigations (fragment changes, history API) have no
	// loader and fire no load event; there is no document response either.
	if navResp.LoaderID == "" {
		return result, nil
	}

	record := func(params json.RawMessage) {
		var event struct {
			LoaderID string `json:"loaderId"`
			Type     string `json:"type"`
			Response struct {
				URL    string `json:"url"`
				Status int    `json:"status"`
			} `json:"response"`
		}
		if err := json.Unmarshal(params, &event); err != nil {
			return
		}
		// Redirects produce one response per hop; the last document
		// response for this loader wins.
		if event.Type == "Document" && event.LoaderID == navResp.LoaderID {
			result.Status = event.Response.Status
			result.URL = event.Response.URL
		}
	}

	for {
		select {
		case params := <-respCh:
			record(params)
		case <-loadCh:
			// Responses are delivered before the load event; drain any
			// the select did not get to.
			for {
				select {
				case params := <-respCh:
					record(params)
				default:
					return result, nil
				}
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// GetTitle returns the page title.
func (c *Client) GetTitle(ctx context.Context, targetID string) (string, error) {
	return c.evalString(ctx, targetID, "document.title")
}

// GetURL returns the current page URL.
func (c *Client) GetURL(ctx context.Context, targetID string) (string, error) {
	return c.evalString(ctx, targetID, "document.location.href")
}

// ClearCookies removes every cookie in the browser context of targetID.
func (c *Client) ClearCookies(ctx context.Context, targetID string) error {
	sessionID, err := c.attach(ctx, targetID)
	if err != nil {
		return err
	}
	if _, err := c.CallSession(ctx, sessionID, "Network.clearBrowserCookies", nil); err != nil {
		return fmt.Errorf("clearing cookies: %w", err)
	}
	return nil
}

func (c *Client) evalString(ctx context.Context, targetID string, expression string) (string, error) {
	result, err := c.Eval(ctx, targetID, expression)
	if err != nil {
		return "", err
	}
	if result.Value == nil {
		return "", nil
	}
	if s, ok := result.Value.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", result.Value), nil
}

// SetDownloadDir makes the browser save downloads into dir without prompting.
func (c *Client) SetDownloadDir(ctx context.Context, dir string) error {
	_, err := c.Call(ctx, "Browser.setDownloadBehavior", map[string]interface{}{
		"behavior":      "allow",
		"downloadPath":  dir,
		"eventsEnabled": false,
	})
	if err != nil {
		return fmt.Errorf("setting download behavior: %w", err)
	}
	return nil
}
