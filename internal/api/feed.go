package api

import (
	"net/http"
	"strconv"
	"strings"

	"example.com/gardenlog/internal/feed"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 200
)

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	userID, ok := authorize(w, r, false)
	if !ok {
		return
	}

	filters, err := parseFeedFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	activities, err := h.service.Feed(r.Context(), userID, filters)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	items := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		items = append(items, toActivityView(a))
	}
	writeJSON(w, http.StatusOK, FeedResponse{
		Items:      items,
		NextCursor: feed.EncodeCursor(feed.NextCursor(activities, filters.Limit)),
	})
}

type queryError string

func (e queryError) Error() string { return string(e) }

func parseFeedFilters(r *http.Request) (feed.Filters, error) {
	q := r.URL.Query()
	filters := feed.Filters{
		PlantID: strings.TrimSpace(q.Get("plant_id")),
		SpaceID: strings.TrimSpace(q.Get("space_id")),
		Limit:   defaultFeedLimit,
	}

	if raw := q.Get("types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			t := feed.Type(strings.TrimSpace(part))
			if t == "" {
				continue
			}
			if !t.Valid() {
				return feed.Filters{}, queryError("unknown activity type " + strconv.Quote(string(t)))
			}
			filters.Types = append(filters.Types, t)
		}
	}

	if raw := q.Get("public_only"); raw != "" {
		publicOnly, err := strconv.ParseBool(raw)
		if err != nil {
			return feed.Filters{}, queryError("public_only must be a boolean")
		}
		filters.PublicOnly = publicOnly
	}

	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > maxFeedLimit {
				parsed = maxFeedLimit
			}
			filters.Limit = parsed
		}
	}

	cursor, err := feed.DecodeCursor(q.Get("cursor"))
	if err != nil {
		return feed.Filters{}, queryError("invalid cursor")
	}
	filters.After = cursor
	return filters, nil
}
