package chrome

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Eval evaluates a JavaScript expression in a target's page context and
// returns its value. Promises are awaited.
func (c *Client) Eval(ctx context.Context, targetID string, expression string) (*EvalResult, error) {
	sessionID, err := c.attach(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if _, err := c.CallSession(ctx, sessionID, "Runtime.enable", nil); err != nil {
		return nil, fmt.Errorf("enabling Runtime domain: %w", err)
	}

	evalResult, err := c.CallSession(ctx, sessionID, "Runtime.evaluate", map[string]interface{}{
		"expression":    expression,
		"returnByValue": true,
		"awaitPromise":  true,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluating expression: %w", err)
	}

	var evalResp struct {
		Result struct {
			Type  string      `json:"type"`
			Value interface{} `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(evalResult, &evalResp); err != nil {
		return nil, fmt.Errorf("parsing eval response: %w", err)
	}

	if ex := evalResp.ExceptionDetails; ex != nil {
		if ex.Exception != nil && ex.Exception.Description != "" {
			return nil, fmt.Errorf("JS exception: %s", ex.Exception.Description)
		}
		return nil, fmt.Errorf("JS exception: %s", ex.Text)
	}

	return &EvalResult{
		Value: evalResp.Result.Value,
		Type:  evalResp.Result.Type,
	}, nil
}

// Screenshot captures the viewport (or the full page) of a target.
func (c *Client) Screenshot(ctx context.Context, targetID string, opts ScreenshotOptions) ([]byte, error) {
	sessionID, err := c.attach(ctx, targetID)
	if err != nil {
		return nil, err
	}

	format := opts.Format
	if format == "" {
		format = "png"
	}
	params := map[string]interface{}{
		"format": format,
	}
	if opts.Quality > 0 && format != "png" {
		params["quality"] = opts.Quality
	}
	if opts.FullPage {
		params["captureBeyondViewport"] = true
	}

	result, err := c.CallSession(ctx, sessionID, "Page.captureScreenshot", params)
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}

	var resp struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("parsing screenshot response: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot data: %w", err)
	}
	return data, nil
}

// ScrollIntoView scrolls the first element matching selector into view.
func (c *Client) ScrollIntoView(ctx context.Context, targetID string, selector string) error {
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
	return nil
}
