package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"tripvera/internal/availability"
	"tripvera/internal/booking"
	"tripvera/internal/config"
	"tripvera/internal/export"
	"tripvera/internal/models"
	"tripvera/internal/schedule"
	"tripvera/internal/selection"
	"tripvera/internal/store"
	"tripvera/internal/travelapi"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers carries the booking flow endpoints of the gateway.
type Handlers struct {
	client     *travelapi.Client
	selections *selection.Service
	adapter    *availability.Adapter
	booking    *booking.Service
	favorites  *store.FavoritesStore
	recent     *store.RecentViewedStore
	auth       *Authenticator
	sheets     *export.SheetsService
	exportCfg  config.ExportConfig
	logger     *zerolog.Logger
}

func NewHandlers(
	client *travelapi.Client,
	selections *selection.Service,
	adapter *availability.Adapter,
	bookingSvc *booking.Service,
	favorites *store.FavoritesStore,
	recent *store.RecentViewedStore,
	auth *Authenticator,
	sheets *export.SheetsService,
	exportCfg config.ExportConfig,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		client:     client,
		selections: selections,
		adapter:    adapter,
		booking:    bookingSvc,
		favorites:  favorites,
		recent:     recent,
		auth:       auth,
		sheets:     sheets,
		exportCfg:  exportCfg,
		logger:     logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeUpstreamError maps client errors onto the gateway response,
// preserving the remote status code and message.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *travelapi.APIError
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.StatusCode, travelapi.UserMessage(err))
		return
	}
	writeError(w, http.StatusBadGateway, travelapi.UserMessage(err))
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// -------- auth --------

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	pair, user, err := h.client.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	h.auth.SetTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, user)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.ClearTokenCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.client.Me(r.Context())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// -------- activities --------

func (h *Handlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := travelapi.ListActivitiesOptions{
		Method:   q.Get("method"),
		Category: q.Get("category"),
		Keyword:  q.Get("keyword"),
		Sort:     q.Get("sort"),
	}
	opts.Cursor, _ = strconv.ParseInt(q.Get("cursorId"), 10, 64)
	opts.Page, _ = strconv.Atoi(q.Get("page"))
	opts.Size, _ = strconv.Atoi(q.Get("size"))

	page, err := h.client.ListActivities(r.Context(), opts)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) GetActivity(w http.ResponseWriter, r *http.Request) {
	activityID, ok := idParam(r, "activityID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	activity, err := h.client.GetActivity(r.Context(), activityID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	if owner := SessionID(r.Context()); owner != "" {
		if err := h.recent.Record(r.Context(), owner, *activity); err != nil {
			h.logger.Warn().Err(err).Int64("activity_id", activityID).Msg("failed to record recent view")
		}
	}

	writeJSON(w, http.StatusOK, activity)
}

// Calendar returns the activity's slots grouped by date. With a date query
// parameter the month containing it is re-fetched from the remote service
// and overlaid onto the index.
func (h *Handlers) Calendar(w http.ResponseWriter, r *http.Request) {
	activityID, ok := idParam(r, "activityID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	index, err := h.buildCalendar(r, activityID, r.URL.Query().Get("date"))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schedulesByDate": index,
		"dates":           schedule.Dates(index),
	})
}

func (h *Handlers) buildCalendar(r *http.Request, activityID int64, date string) (models.SchedulesByDate, error) {
	schedules, err := h.client.GetSchedules(r.Context(), activityID)
	if err != nil {
		return nil, err
	}

	base := schedule.GroupByDate(schedules)
	if date == "" {
		return base, nil
	}

	refreshed, err := h.adapter.Refresh(r.Context(), SessionID(r.Context()), activityID, base, date)
	if errors.Is(err, availability.ErrStaleResult) {
		return base, nil
	}
	if err != nil {
		return nil, err
	}
	return refreshed, nil
}

// -------- booking flow --------

type selectionResponse struct {
	Step       string           `json:"step"`
	Date       string           `json:"date,omitempty"`
	Slot       *models.TimeSlot `json:"slot,omitempty"`
	HeadCount  int              `json:"headCount"`
	TotalPrice int64            `json:"totalPrice"`
}

func (h *Handlers) selectionView(state *models.SelectionState, unitPrice int64) selectionResponse {
	return selectionResponse{
		Step:       state.Step(),
		Date:       state.Date,
		Slot:       state.Slot,
		HeadCount:  state.HeadCount,
		TotalPrice: state.TotalPrice(unitPrice),
	}
}

func (h *Handlers) GetSelection(w http.ResponseWriter, r *http.Request) {
	activityID, ok := idParam(r, "activityID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	activity, err := h.client.GetActivity(r.Context(), activityID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	state, err := h.selections.Get(r.Context(), SessionID(r.Context()), activityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load selection")
		return
	}

	writeJSON(w, http.StatusOK, h.selectionView(state, activity.Price))
}

func (h *Handlers) SelectDate(w http.ResponseWriter, r *http.Request) {
	activityID, ok := idParam(r, "activityID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	if _, _, err := availability.MonthOf(req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be formatted as 2006-01-02")
		return
	}

	activity, err := h.client.GetActivity(r.Context(), activityID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	sessionID := SessionID(r.Context())
	state, err := h.selections.SelectDate(r.Context(), sessionID, activityID, req.Date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to select date")
		return
	}

	// Older in-flight availability fetches of this session must not land on
	// the new date.
	h.adapter.Invalidate(sessionID, activityID)

	writeJSON(w, http.StatusOK, h.selectionView(state, activity.Price))
}

func (h *Handlers) SelectSlot(w http.ResponseWriter, r *http.Request) {
	activityID, ok := idParam(r, "activityID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	var req struct {
		SlotID int64 `json:"slotId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SlotID == 0 {
		writeError(w, http.StatusBadRequest, "slotId is required")
		return
	}

	activity, err := h.client.GetActivity(r.Context(), activityID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	sessionID := SessionID(r.Context())
	state, err := h.selections.Get(r.Context(), sessionID, activityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load selection")
		return
	}
	if state.Date == "" {
		writeError(w, http.StatusConflict, "select a date first")
		return
	}

	index, err := h.buildCalendar(r, activityID, state.Date)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	state, err = h.selections.SelectSlot(r.Context(), sessionID, activityID, schedule.SlotsFor(index, state.Date), req.SlotID)
	switch {
	case errors.Is(err, selection.ErrNoDateSelected):
		writeError(w, http.StatusConflict, "select a date first")
		return
	case errors.Is(err, selection.ErrSlotNotListed):
		writeError(w, http.StatusConflict, "slot is not available on the selected date")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to select slot")
		return
	}

	writeJSON(w, http.StatusOK, h.selectionView(state, activity.Price))
}

func (h *Handlers) SetHeadCount(w http.ResponseWriter, r *http.Request) {
	activityID, ok := idParam(r, "activityID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "count is required")
		return
	}

	activity, err := h.client.GetActivity(r.Context(), activityID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	state, err := h.selections.SetHeadCount(r.Context(), SessionID(r.Context()), activityID, req.Count)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set head count")
		return
	}

	writeJSON(w, http.StatusOK, h.selectionView(state, activity.Price))
}

func (h *Handlers) ClearSelection(w http.ResponseWriter, r *http.Request) {
	activityID, ok := idParam(r, "activityID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	if err := h.selections.Clear(r.Context(), SessionID(r.Context()), activityID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear selection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	activityID, ok := idParam(r, "activityID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	activity, err := h.client.GetActivity(r.Context(), activityID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	user, err := h.client.Me(r.Context())
	if err != nil {
		if travelapi.IsUnauthorized(err) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		writeUpstreamError(w, err)
		return
	}

	reservation, err := h.booking.Submit(r.Context(), SessionID(r.Context()), *user, *activity)
	switch {
	case errors.Is(err, booking.ErrNoSlotSelected):
		writeError(w, http.StatusConflict, "no slot selected")
		return
	case errors.Is(err, booking.ErrReauthRequired):
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	case errors.Is(err, booking.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many booking attempts, try again later")
		return
	case err != nil:
		writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reservation)
}

// -------- favorites & recently viewed --------

func (h *Handlers) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.favorites.List(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load favorites")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": favorites})
}

func (h *Handlers) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	activityID, ok := idParam(r, "activityID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	activity, err := h.client.GetActivity(r.Context(), activityID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	favorite, err := h.favorites.Toggle(r.Context(), UserID(r.Context()), *activity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update favorites")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": favorite})
}

func (h *Handlers) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	activityID, ok := idParam(r, "activityID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	if err := h.favorites.Remove(r.Context(), UserID(r.Context()), activityID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update favorites")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListRecentlyViewed(w http.ResponseWriter, r *http.Request) {
	entries, err := h.recent.List(r.Context(), SessionID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load recently viewed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": entries})
}

func (h *Handlers) ClearRecentlyViewed(w http.ResponseWriter, r *http.Request) {
	if err := h.recent.Clear(r.Context(), SessionID(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear recently viewed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -------- reservations --------

func (h *Handlers) MyReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := travelapi.MyReservationsOptions{Status: q.Get("status")}
	opts.Cursor, _ = strconv.ParseInt(q.Get("cursorId"), 10, 64)
	opts.Size, _ = strconv.Atoi(q.Get("size"))

	page, err := h.client.MyReservations(r.Context(), opts)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) CancelReservation(w http.ResponseWriter, r *http.Request) {
	reservationID, ok := idParam(r, "reservationID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	reservation, err := h.client.CancelReservation(r.Context(), reservationID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

// ExportReservations writes the user's reservations to an Excel workbook
// and, when configured, mirrors them into Google Sheets.
func (h *Handlers) ExportReservations(w http.ResponseWriter, r *http.Request) {
	page, err := h.client.MyReservations(r.Context(), travelapi.MyReservationsOptions{Size: 100})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	rows := make([]export.ReservationRow, 0, len(page.Reservations))
	for _, res := range page.Reservations {
		title := ""
		if activity, err := h.client.GetActivity(r.Context(), res.ActivityID); err == nil {
			title = activity.Title
		}
		rows = append(rows, export.ReservationRow{Reservation: res, Title: title})
	}

	filePath, err := export.WriteReservationsXLSX(rows, h.exportCfg.Path)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to write export file")
		writeError(w, http.StatusInternalServerError, "failed to export reservations")
		return
	}

	if h.sheets != nil {
		if err := h.sheets.SyncReservations(r.Context(), rows); err != nil {
			h.logger.Warn().Err(err).Msg("sheets sync failed")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"file": filePath})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
