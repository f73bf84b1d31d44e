/*
Copyright (C) 2026 Plaid Sound

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/plaidsound/tonearm/internal/library"
	"github.com/plaidsound/tonearm/internal/store"
)

// handleSearch ranks the library against a free-text query:
// GET /search?q=radioh&fields=title,artist&limit=25
func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := library.SearchOptions{
		Query: q.Get("q"),
		Limit: intQuery(q.Get("limit")),
	}
	if fields := q.Get("fields"); fields != "" {
		opts.Fields = strings.Split(fields, ",")
	}
	if raw := q.Get("min_score"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			opts.MinScore = v
		}
	}

	results, err := a.library.Search(r.Context(), opts)
	if err != nil {
		a.logger.Error().Err(err).Msg("search failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (a *API) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	groups, err := a.library.FindDuplicates(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("duplicate scan failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// handleRecommendations suggests what to play next, either around a
// seed track (?based_on=<id>) or from the listening history.
func (a *API) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := library.RecommendOptions{
		BasedOnTrackID: q.Get("based_on"),
		Limit:          intQuery(q.Get("limit")),
		IncludePlayed:  q.Get("include_played") == "true",
	}

	recs, err := a.library.Recommendations(r.Context(), opts)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("recommendations failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func intQuery(raw string) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}
