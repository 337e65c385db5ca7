package browser

import (
	"context"
	"encoding/json"
	"fmt"
)

// scripter evaluates one of the scripts in js.go and returns the JSON string
// it produced.
type scripter interface {
	script(ctx context.Context, fn string, arg interface{}) (string, error)
}

func decodeScript(ctx context.Context, s scripter, fn string, arg interface{}, out interface{}) error {
	raw, err := s.script(ctx, fn, arg)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decoding script result: %w", err)
	}
	return nil
}

func inspect(ctx context.Context, s scripter, q Query) ([]ElementState, error) {
	var states []ElementState
	if err := decodeScript(ctx, s, inspectJS, scriptArg{Query: q}, &states); err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", q, err)
	}
	return states, nil
}

// mark tags the first match of q and returns a selector addressing it.
func mark(ctx context.Context, s scripter, q Query) (string, error) {
	var token string
	if err := decodeScript(ctx, s, markJS, scriptArg{Query: q}, &token); err != nil {
		return "", fmt.Errorf("resolving %s: %w", q, err)
	}
	if token == "" {
		return "", fmt.Errorf("%w: %s", ErrNoMatch, q)
	}
	return markerSelector(token), nil
}

func clearField(ctx context.Context, s scripter, q Query) error {
	var found bool
	if err := decodeScript(ctx, s, clearJS, scriptArg{Query: q}, &found); err != nil {
		return fmt.Errorf("clearing %s: %w", q, err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNoMatch, q)
	}
	return nil
}

func selectOption(ctx context.Context, s scripter, q Query, value string) error {
	var res actionResult
	if err := decodeScript(ctx, s, selectJS, scriptArg{Query: q, Value: value}, &res); err != nil {
		return fmt.Errorf("selecting in %s: %w", q, err)
	}
	return res.err(q)
}

// needsToggle reports whether the checkbox or radio matched by q must be
// clicked to reach the wanted state.
func needsToggle(ctx context.Context, s scripter, q Query, want bool) (bool, error) {
	var res actionResult
	if err := decodeScript(ctx, s, checkedJS, scriptArg{Query: q}, &res); err != nil {
		return false, fmt.Errorf("reading checked state of %s: %w", q, err)
	}
	if err := res.err(q); err != nil {
		return false, err
	}
	return res.Checked != want, nil
}

func documentStatus(ctx context.Context, s scripter) (int, error) {
	var status int
	if err := decodeScript(ctx, s, statusJS, nil, &status); err != nil {
		return 0, fmt.Errorf("reading document status: %w", err)
	}
	return status, nil
}
