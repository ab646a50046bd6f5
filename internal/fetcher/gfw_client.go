package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vessel-proximity/internal/geo"
	"vessel-proximity/internal/metrics"
	"vessel-proximity/internal/model"
	"vessel-proximity/pkg/logger"
	"vessel-proximity/pkg/utils"
)

// GFWClient queries the Global Fishing Watch 4Wings report API for vessel
// presence in an area
type GFWClient struct {
	baseURL    string
	dataset    string
	token      string
	httpClient *http.Client
	logger     *logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewGFWClient creates a new Global Fishing Watch client. An empty token
// makes every query return a skipped summary without network access.
func NewGFWClient(baseURL, dataset, token string, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *GFWClient {
	return &GFWClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		dataset: dataset,
		token:   strings.TrimSpace(token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

type geoJSONGeometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

type reportRequest struct {
	GeoJSON geoJSONGeometry `json:"geojson"`
}

// ring returns the closed exterior ring of a non-wrapping box in [lon, lat] order
func ring(b model.BoundingBox) [][][2]float64 {
	return [][][2]float64{{
		{b.MinLon, b.MinLat},
		{b.MaxLon, b.MinLat},
		{b.MaxLon, b.MaxLat},
		{b.MinLon, b.MaxLat},
		{b.MinLon, b.MinLat},
	}}
}

// AreaGeometry returns the GeoJSON geometry covering the box, as a
// MultiPolygon when it crosses the antimeridian
func AreaGeometry(box model.BoundingBox) geoJSONGeometry {
	parts := box.Split()
	if len(parts) == 1 {
		return geoJSONGeometry{Type: "Polygon", Coordinates: ring(parts[0])}
	}
	polygons := make([][][][2]float64, 0, len(parts))
	for _, p := range parts {
		polygons = append(polygons, ring(p))
	}
	return geoJSONGeometry{Type: "MultiPolygon", Coordinates: polygons}
}

// Query fetches vessel presence around ref over the last windowHours.
// Failures are reported in the summary status, never returned.
func (c *GFWClient) Query(ctx context.Context, ref model.ReferencePoint, radiusNM float64, windowHours int) model.PresenceSummary {
	summary := model.PresenceSummary{WindowHours: windowHours}

	if c.token == "" {
		summary.Status = model.PresenceSkipped
		c.logger.Info("Skipping presence lookup: no token configured")
		return summary
	}

	startTime := time.Now()
	count, status, err := c.fetchPresence(ctx, ref, radiusNM, windowHours)
	latency := time.Since(startTime)

	summary.Status = status
	summary.Count = count
	if err != nil {
		summary.Error = err.Error()
		c.logger.Error("Presence lookup failed (%s): %v", status, err)
	} else {
		c.logger.Debug("Presence lookup returned %d vessels in %dms", count, latency.Milliseconds())
	}

	if c.metrics != nil {
		c.metrics.RecordPresenceLookup(string(status), latency)
	}
	return summary
}

func (c *GFWClient) fetchPresence(ctx context.Context, ref model.ReferencePoint, radiusNM float64, windowHours int) (int, model.PresenceStatus, error) {
	query := url.Values{}
	query.Set("format", "JSON")
	query.Set("datasets[0]", c.dataset)
	query.Set("date-range", utils.LookbackRange(c.now(), windowHours))
	query.Set("temporal-resolution", "ENTIRE")
	query.Set("spatial-aggregation", "true")
	query.Set("group-by", "VESSEL_ID")
	endpoint := fmt.Sprintf("%s/v3/4wings/report?%s", c.baseURL, query.Encode())

	body, err := json.Marshal(reportRequest{GeoJSON: AreaGeometry(geo.Bounds(ref, radiusNM))})
	if err != nil {
		return 0, model.PresenceNetworkError, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, model.PresenceNetworkError, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vessel-proximity/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, model.PresenceNetworkError, fmt.Errorf("failed to fetch data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := errorMessage(errBody, resp.Status)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return 0, model.PresenceAuthError, fmt.Errorf("API returned status %d: %s", resp.StatusCode, msg)
		}
		return 0, model.PresenceNetworkError, fmt.Errorf("API returned status %d: %s", resp.StatusCode, msg)
	}

	var payload interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, model.PresenceNetworkError, fmt.Errorf("failed to parse JSON: %w", err)
	}

	count := CountPresence(payload)
	if count == 0 {
		return 0, model.PresenceNoData, nil
	}
	return count, model.PresenceOK, nil
}

// errorMessage extracts a readable message from an API error body
func errorMessage(body []byte, fallback string) string {
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if v, ok := obj[key]; ok {
				if s, ok := v.(string); ok && s != "" {
					return s
				}
				return fmt.Sprint(v)
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fallback
}

// CountPresence counts the vessels in a 4Wings report response. Entries
// keyed by dataset are expanded and rows are counted by distinct vesselId.
func CountPresence(payload interface{}) int {
	switch v := payload.(type) {
	case []interface{}:
		return countRows(v)
	case map[string]interface{}:
		for _, key := range []string{"entries", "data"} {
			if list, ok := v[key].([]interface{}); ok {
				return countRows(list)
			}
		}
		if total, ok := v["total"].(float64); ok && total > 0 {
			return int(total)
		}
	}
	return 0
}

func countRows(list []interface{}) int {
	ids := make(map[string]struct{})
	anonymous := 0

	add := func(row interface{}) {
		if obj, ok := row.(map[string]interface{}); ok {
			if id, ok := obj["vesselId"].(string); ok && id != "" {
				ids[id] = struct{}{}
				return
			}
		}
		anonymous++
	}

	for _, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			anonymous++
			continue
		}

		expanded := false
		for _, value := range obj {
			if rows, ok := value.([]interface{}); ok {
				expanded = true
				for _, row := range rows {
					add(row)
				}
			}
		}
		if !expanded {
			add(obj)
		}
	}

	return len(ids) + anonymous
}
