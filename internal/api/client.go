package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pefman/armorsheet/internal/game"
	"github.com/pefman/armorsheet/internal/models"
	"github.com/pefman/armorsheet/internal/sheet"
	"github.com/pefman/armorsheet/internal/stats"
)

var httpClient = &http.Client{Timeout: 8 * time.Second}

// Simple cache for the armor catalog to reduce redundant API calls
var (
	catalogCache      []models.ArmorRecord
	catalogCacheKey   string
	catalogCacheTime  time.Time
	catalogCacheTTL   = 5 * time.Minute
	catalogCacheMutex sync.RWMutex
)

// Config holds API configuration
type Config struct {
	BaseURL string
}

// Client talks to the armorsheet HTTP API.
type Client struct {
	config Config
}

func NewClient(baseURL string) *Client {
	return &Client{
		config: Config{BaseURL: baseURL},
	}
}

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// AttackResult is the client-side shape of a resolution.
type AttackResult struct {
	Logs       []string             `json:"logs"`
	DamageType string               `json:"damage_type"`
	Hits       []game.HitRecord     `json:"hits"`
	Wounds     []models.WoundRecord `json:"wounds"`
	DamageIn   int                  `json:"damage_in"`
	DamageOut  int                  `json:"damage_out"`
	Ablated    int                  `json:"ablated,omitempty"`
	Seed       int64                `json:"seed,omitempty"`
}

func (c *Client) apiGet(ctx context.Context, path string, out any) error {
	return c.apiDo(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) apiDo(ctx context.Context, method, path string, in, out any) error {
	base := strings.TrimRight(c.config.BaseURL, "/")
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Health(ctx context.Context) error {
	var out map[string]any
	return c.apiGet(ctx, "/api/healthz", &out)
}

// Catalog lists the server's armor catalog. Results are cached for a few minutes.
func (c *Client) Catalog(ctx context.Context) ([]models.ArmorRecord, error) {
	catalogCacheMutex.RLock()
	if catalogCacheKey == c.config.BaseURL && time.Since(catalogCacheTime) < catalogCacheTTL && len(catalogCache) > 0 {
		result := make([]models.ArmorRecord, len(catalogCache))
		copy(result, catalogCache)
		catalogCacheMutex.RUnlock()
		return result, nil
	}
	catalogCacheMutex.RUnlock()

	var res []models.ArmorRecord
	if err := c.apiGet(ctx, "/api/catalog/armor", &res); err != nil {
		return nil, err
	}

	catalogCacheMutex.Lock()
	catalogCache = make([]models.ArmorRecord, len(res))
	copy(catalogCache, res)
	catalogCacheKey = c.config.BaseURL
	catalogCacheTime = time.Now()
	catalogCacheMutex.Unlock()
	return res, nil
}

func (c *Client) CreateCharacter(ctx context.Context, name string) (models.CharacterRecord, error) {
	var out models.CharacterRecord
	err := c.apiDo(ctx, http.MethodPost, "/api/characters", createRequest{Name: name}, &out)
	return out, err
}

func (c *Client) ListCharacters(ctx context.Context) ([]models.CharacterRecord, error) {
	var out []models.CharacterRecord
	err := c.apiGet(ctx, "/api/characters", &out)
	return out, err
}

// Character fetches a full sheet with its derived figures.
func (c *Client) Character(ctx context.Context, id string) (sheet.Sheet, error) {
	var out sheet.Sheet
	err := c.apiGet(ctx, "/api/characters/"+url.PathEscape(id), &out)
	return out, err
}

func (c *Client) DeleteCharacter(ctx context.Context, id string) error {
	return c.apiDo(ctx, http.MethodDelete, "/api/characters/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Equip(ctx context.Context, id string, rec models.ArmorRecord) (models.ArmorRecord, error) {
	var out models.ArmorRecord
	err := c.apiDo(ctx, http.MethodPost, characterPath(id, "armor"), equipRequest{ArmorRecord: rec}, &out)
	return out, err
}

// EquipFromCatalog equips the catalog entry with the given name.
func (c *Client) EquipFromCatalog(ctx context.Context, id, name string) (models.ArmorRecord, error) {
	var out models.ArmorRecord
	err := c.apiDo(ctx, http.MethodPost, characterPath(id, "armor"), map[string]string{"catalog": name}, &out)
	return out, err
}

func (c *Client) Unequip(ctx context.Context, id, pieceID string) error {
	return c.apiDo(ctx, http.MethodDelete, characterPath(id, "armor", pieceID), nil, nil)
}

func (c *Client) Repair(ctx context.Context, id, pieceID string, amount int) (models.ArmorRecord, error) {
	var out models.ArmorRecord
	err := c.apiDo(ctx, http.MethodPost, characterPath(id, "armor", pieceID, "repair"), amountRequest{Amount: amount}, &out)
	return out, err
}

func (c *Client) Protection(ctx context.Context, id string) (Protection, error) {
	var out Protection
	err := c.apiGet(ctx, characterPath(id, "protection"), &out)
	return out, err
}

func (c *Client) Attack(ctx context.Context, id string, rec models.AttackRecord) (AttackResult, error) {
	var out AttackResult
	err := c.apiDo(ctx, http.MethodPost, characterPath(id, "attacks"), rec, &out)
	return out, err
}

func (c *Client) Wounds(ctx context.Context, id string) ([]models.WoundRecord, error) {
	var out []models.WoundRecord
	err := c.apiGet(ctx, characterPath(id, "wounds"), &out)
	return out, err
}

func (c *Client) RemoveWound(ctx context.Context, id, woundID string) error {
	return c.apiDo(ctx, http.MethodDelete, characterPath(id, "wounds", woundID), nil, nil)
}

func (c *Client) ReduceWound(ctx context.Context, id, woundID string, amount int) (models.WoundRecord, error) {
	var out models.WoundRecord
	err := c.apiDo(ctx, http.MethodPost, characterPath(id, "wounds", woundID, "reduce"), amountRequest{Amount: amount}, &out)
	return out, err
}

func (c *Client) Stats(ctx context.Context, id string) (stats.CharacterStats, error) {
	var out stats.CharacterStats
	err := c.apiGet(ctx, "/api/stats/characters/"+url.PathEscape(id), &out)
	return out, err
}

// WorstWoundToday returns false when no wound was dealt today.
func (c *Client) WorstWoundToday(ctx context.Context) (stats.WorstWound, bool, error) {
	var out stats.WorstWound
	if err := c.apiGet(ctx, "/api/stats/worst-wound/today", &out); err != nil {
		return stats.WorstWound{}, false, err
	}
	return out, out.CharacterID != "", nil
}

func characterPath(id string, parts ...string) string {
	segs := []string{"/api/characters", url.PathEscape(id)}
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return strings.Join(segs, "/")
}
