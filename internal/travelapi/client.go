package travelapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tripvera/internal/metrics"
	"tripvera/internal/models"

	"github.com/google/go-querystring/query"
	"github.com/redis/go-redis/v9"
)

// Client is an HTTP client for the remote travel activity service. It is
// safe for concurrent use once configured.
type Client struct {
	baseURL    string
	httpClient *http.Client

	bearerToken func() string

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseBearerToken installs a token source consulted per request. A nil source
// sends unauthenticated requests.
func (c *Client) UseBearerToken(source func() string) {
	c.bearerToken = source
}

type ctxKey int

const tokenCtxKey ctxKey = iota

// WithToken attaches a bearer token to the context for one request chain.
// A context token wins over the UseBearerToken source.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenCtxKey, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenCtxKey).(string)
	return token
}

// UseRedisCache configures optional Redis caching for availability reads.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// ListActivitiesOptions are the query parameters of GET /activities.
type ListActivitiesOptions struct {
	Method   string `url:"method,omitempty"`
	Cursor   int64  `url:"cursorId,omitempty"`
	Category string `url:"category,omitempty"`
	Keyword  string `url:"keyword,omitempty"`
	Sort     string `url:"sort,omitempty"`
	Page     int    `url:"page,omitempty"`
	Size     int    `url:"size,omitempty"`
}

// ActivitiesPage is one page of the activities listing.
type ActivitiesPage struct {
	Activities []models.Activity `json:"activities"`
	TotalCount int64             `json:"totalCount"`
	CursorID   *int64            `json:"cursorId"`
}

func (c *Client) ListActivities(ctx context.Context, opts ListActivitiesOptions) (*ActivitiesPage, error) {
	qs, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	endpoint := fmt.Sprintf("%s/activities", c.baseURL)
	if encoded := qs.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var page ActivitiesPage
	if err := c.doGet(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetActivity(ctx context.Context, id int64) (*models.Activity, error) {
	endpoint := fmt.Sprintf("%s/activities/%d", c.baseURL, id)
	var activity models.Activity
	if err := c.doGet(ctx, endpoint, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// GetSchedules returns every bookable slot of an activity as a bare array,
// the same shape GetAvailableSchedule uses.
func (c *Client) GetSchedules(ctx context.Context, activityID int64) ([]models.Schedule, error) {
	endpoint := fmt.Sprintf("%s/activities/%d/schedules", c.baseURL, activityID)
	var schedules []models.Schedule
	if err := c.doGet(ctx, endpoint, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// GetAvailableSchedule fetches the authoritative availability of one month.
// Month is two digits ("06"); responses are cached in Redis for cacheTTL.
func (c *Client) GetAvailableSchedule(ctx context.Context, activityID int64, year int, month string) ([]models.Schedule, error) {
	endpoint := fmt.Sprintf("%s/activities/%d/available-schedule?year=%d&month=%s", c.baseURL, activityID, year, month)
	cacheKey := availabilityCacheKey(activityID, year, month)

	var schedules []models.Schedule
	if c.readCache(ctx, cacheKey, &schedules) {
		return schedules, nil
	}

	if err := c.doGet(ctx, endpoint, &schedules); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, schedules)
	return schedules, nil
}

// InvalidateAvailability drops the cached month so the next read refetches
// from the remote service. Called after a successful reservation.
func (c *Client) InvalidateAvailability(ctx context.Context, activityID int64, year int, month string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, availabilityCacheKey(activityID, year, month)).Err()
}

// CreateReservation submits {scheduleId, headCount} for an activity. The
// idempotency key makes manual retries of the identical request safe.
func (c *Client) CreateReservation(ctx context.Context, activityID int64, req models.ReservationRequest, idempotencyKey string) (*models.Reservation, error) {
	endpoint := fmt.Sprintf("%s/activities/%d/reservations", c.baseURL, activityID)

	var reservation models.Reservation
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	if err := c.doPost(ctx, endpoint, req, &reservation, headers); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ReservationsPage is one page of the my-reservations listing.
type ReservationsPage struct {
	Reservations []models.Reservation `json:"reservations"`
	TotalCount   int64                `json:"totalCount"`
	CursorID     *int64               `json:"cursorId"`
}

type MyReservationsOptions struct {
	Cursor int64  `url:"cursorId,omitempty"`
	Size   int    `url:"size,omitempty"`
	Status string `url:"status,omitempty"`
}

func (c *Client) MyReservations(ctx context.Context, opts MyReservationsOptions) (*ReservationsPage, error) {
	qs, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	endpoint := fmt.Sprintf("%s/my-reservations", c.baseURL)
	if encoded := qs.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var page ReservationsPage
	if err := c.doGet(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CancelReservation asks the remote service to cancel a pending reservation.
func (c *Client) CancelReservation(ctx context.Context, reservationID int64) (*models.Reservation, error) {
	endpoint := fmt.Sprintf("%s/my-reservations/%d", c.baseURL, reservationID)
	body := map[string]string{"status": models.StatusCanceled}

	var reservation models.Reservation
	if err := c.doPatch(ctx, endpoint, body, &reservation); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	endpoint := fmt.Sprintf("%s/users/me", c.baseURL)
	var user models.User
	if err := c.doGet(ctx, endpoint, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// MyActivities lists the activities owned by the authenticated host.
func (c *Client) MyActivities(ctx context.Context) ([]models.Activity, error) {
	endpoint := fmt.Sprintf("%s/my-activities", c.baseURL)
	var wrap struct {
		Activities []models.Activity `json:"activities"`
	}
	if err := c.doGet(ctx, endpoint, &wrap); err != nil {
		return nil, err
	}
	return wrap.Activities, nil
}

// UpdateReservationStatus lets a host confirm or decline a reservation on
// one of their activities.
func (c *Client) UpdateReservationStatus(ctx context.Context, activityID, reservationID int64, status string) (*models.Reservation, error) {
	endpoint := fmt.Sprintf("%s/my-activities/%d/reservations/%d", c.baseURL, activityID, reservationID)
	body := map[string]string{"status": status}

	var reservation models.Reservation
	if err := c.doPatch(ctx, endpoint, body, &reservation); err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.TokenPair, *models.User, error) {
	endpoint := fmt.Sprintf("%s/auth/login", c.baseURL)
	body := map[string]string{"email": email, "password": password}

	var resp struct {
		models.TokenPair
		User models.User `json:"user"`
	}
	if err := c.doPost(ctx, endpoint, body, &resp, nil); err != nil {
		return nil, nil, err
	}
	return &resp.TokenPair, &resp.User, nil
}

func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	endpoint := fmt.Sprintf("%s/auth/tokens", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+refreshToken)

	var pair models.TokenPair
	if err := c.do(req, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func availabilityCacheKey(activityID int64, year int, month string) string {
	return fmt.Sprintf("availability:%d:%d-%s", activityID, year, month)
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body any, out any, headers map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(req, out)
}

func (c *Client) doPatch(ctx context.Context, endpoint string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if req.Header.Get("Authorization") == "" {
		if token := tokenFrom(req.Context()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		} else if c.bearerToken != nil {
			if token := c.bearerToken(); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveUpstream(req.Method, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			apiErr.Message = envelope.Message
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}
