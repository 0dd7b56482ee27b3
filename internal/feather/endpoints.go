package feather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/kyonru/feather-companion/pkg/types"
)

// Config fetches the server configuration.
func (c *Client) Config(ctx context.Context) (*types.ServerConfig, error) {
	var cfg types.ServerConfig
	if err := c.do(ctx, http.MethodGet, RouteConfig+"?p="+productID, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Logs fetches the server's current log buffer.
//
// The canonical response is a LogsEnvelope. Servers predating the envelope
// return a bare array; that shape is accepted and reported with screenshots
// disabled.
func (c *Client) Logs(ctx context.Context) (*types.LogsEnvelope, error) {
	raw, err := c.doRaw(ctx, http.MethodGet, RouteLogs)
	if err != nil {
		return nil, err
	}
	return decodeLogs(raw)
}

func decodeLogs(raw json.RawMessage) (*types.LogsEnvelope, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var logs []types.Log
		if err := json.Unmarshal(raw, &logs); err != nil {
			return nil, fmt.Errorf("feather: decode legacy logs: %w", err)
		}
		return &types.LogsEnvelope{Data: logs}, nil
	}

	var env types.LogsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("feather: decode logs: %w", err)
	}
	if env.Data == nil {
		env.Data = []types.Log{}
	}
	return &env, nil
}

// ClearLogs asks the server to drop its log buffer.
func (c *Client) ClearLogs(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, RouteLogs+"?action=clear", nil)
}

// ToggleScreenshots flips server-side screenshot capture for new logs.
func (c *Client) ToggleScreenshots(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, RouteLogs+"?action=toggle-screenshots", nil)
}

// Performance fetches one performance snapshot.
func (c *Client) Performance(ctx context.Context) (*types.PerformanceMetric, error) {
	var m types.PerformanceMetric
	if err := c.do(ctx, http.MethodGet, RoutePerformance, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Observers fetches the observability key/value list.
func (c *Client) Observers(ctx context.Context) ([]types.Observer, error) {
	var obs []types.Observer
	if err := c.do(ctx, http.MethodGet, RouteObservers, &obs); err != nil {
		return nil, err
	}
	if obs == nil {
		obs = []types.Observer{}
	}
	return obs, nil
}

// Plugin fetches the current content of plugin key.
func (c *Client) Plugin(ctx context.Context, key string) (*types.PluginContent, error) {
	var pc types.PluginContent
	if err := c.do(ctx, http.MethodGet, pluginPath(key), &pc); err != nil {
		return nil, err
	}
	return &pc, nil
}

// PluginAction triggers action on plugin key, forwarding the non-empty params.
func (c *Client) PluginAction(ctx context.Context, key, action string, params map[string]any) error {
	q := "action=" + url.QueryEscape(action)
	if rest := encodeParams(params); rest != "" {
		q += "&" + rest
	}
	return c.do(ctx, http.MethodPost, pluginPath(key)+"?"+q, nil)
}

// PluginUpdate pushes option values to plugin key.
func (c *Client) PluginUpdate(ctx context.Context, key string, params map[string]any) error {
	path := pluginPath(key)
	if q := encodeParams(params); q != "" {
		path += "?" + q
	}
	return c.do(ctx, http.MethodPut, path, nil)
}

func pluginPath(key string) string {
	return RoutePlugins + "/" + url.PathEscape(key)
}

// encodeParams renders params as a query string in key order. Empty keys and
// empty, false or nil values are dropped.
func encodeParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "" || !truthy(v) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(fmt.Sprint(params[k])))
	}
	return strings.Join(parts, "&")
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	default:
		return true
	}
}
