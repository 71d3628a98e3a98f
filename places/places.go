package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultGeocoderURL = "https://nominatim.openstreetmap.org/search"
	DefaultOverpassURL = "https://overpass-api.de/api/interpreter"
	DefaultUserAgent   = "SocialSpot/1.0"
	DefaultTimeout     = 15 * time.Second

	// DefaultRadius is the search radius in meters.
	DefaultRadius = 2000

	// DefaultLimit caps the number of elements requested from Overpass.
	DefaultLimit = 20
)

// ErrNotFound is returned when geocoding yields no result.
var ErrNotFound = errors.New("place not found")

// Local is a venue that scopes a room.
type Local struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Config configures the upstream services. Zero values use the defaults.
type Config struct {
	GeocoderURL string
	OverpassURL string
	UserAgent   string
	Timeout     time.Duration
	Radius      int
	Limit       int
}

func (c Config) withDefaults() Config {
	if c.GeocoderURL == "" {
		c.GeocoderURL = DefaultGeocoderURL
	}
	if c.OverpassURL == "" {
		c.OverpassURL = DefaultOverpassURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Radius <= 0 {
		c.Radius = DefaultRadius
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	return c
}

// Client talks to the geocoder and Overpass services
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a client for cfg.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Geocode resolves free text to the coordinates of the first match.
func (c *Client) Geocode(ctx context.Context, query string) (lat, lng float64, err error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := c.getJSON(ctx, c.cfg.GeocoderURL+"?"+params.Encode(), &hits); err != nil {
		return 0, 0, fmt.Errorf("geocode %q: %w", query, err)
	}
	if len(hits) == 0 {
		return 0, 0, fmt.Errorf("geocode %q: %w", query, ErrNotFound)
	}

	lat, err = strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode %q: invalid latitude: %w", query, err)
	}
	lng, err = strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode %q: invalid longitude: %w", query, err)
	}
	return lat, lng, nil
}

type overpassElement struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Tags map[string]string `json:"tags"`
}

// Nearby lists named venues around a point.
func (c *Client) Nearby(ctx context.Context, lat, lng float64) ([]Local, error) {
	params := url.Values{}
	params.Set("data", overpassQuery(lat, lng, c.cfg.Radius, c.cfg.Limit))

	var resp struct {
		Elements []overpassElement `json:"elements"`
	}
	if err := c.getJSON(ctx, c.cfg.OverpassURL+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("overpass search: %w", err)
	}

	locals := make([]Local, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		if el.Tags["name"] == "" {
			continue
		}
		locals = append(locals, toLocal(el))
	}
	return locals, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func overpassQuery(lat, lng float64, radius, limit int) string {
	around := fmt.Sprintf("(around:%d,%s,%s)", radius,
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lng, 'f', -1, 64))

	var b strings.Builder
	b.WriteString("[out:json][timeout:15];\n(\n")
	for _, kind := range []string{"node", "way"} {
		fmt.Fprintf(&b, "  %s[\"amenity\"~\"bar|pub|restaurant|nightclub|cafe\"]%s;\n", kind, around)
	}
	for _, kind := range []string{"node", "way"} {
		fmt.Fprintf(&b, "  %s[\"leisure\"~\"fitness_centre|park\"]%s;\n", kind, around)
	}
	fmt.Fprintf(&b, ");\nout center %d;\n", limit)
	return b.String()
}

func toLocal(el overpassElement) Local {
	tags := el.Tags
	category := categorize(tags)
	return Local{
		ID:          strconv.FormatInt(el.ID, 10),
		Name:        tags["name"],
		Type:        category,
		Description: describe(category, tags),
	}
}

func categorize(tags map[string]string) string {
	switch {
	case tags["amenity"] == "nightclub":
		return "Nightclub"
	case tags["amenity"] == "pub", tags["amenity"] == "bar":
		return "Bar"
	case tags["amenity"] == "restaurant":
		return "Restaurant"
	case tags["amenity"] == "cafe":
		return "Cafe"
	case tags["leisure"] == "fitness_centre":
		return "Gym"
	case tags["leisure"] == "park":
		return "Park"
	}
	return "Place"
}

func describe(category string, tags map[string]string) string {
	switch {
	case tags["cuisine"] != "":
		return "Cuisine: " + tags["cuisine"]
	case category == "Gym":
		return "Time to work out!"
	case category == "Park":
		return "Nature and fresh air."
	case category == "Cafe":
		return "Hot coffee and good conversation."
	case tags["description"] != "":
		return tags["description"]
	}
	return "A great place to socialize."
}
