package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/route"
	"twirvo-sync/internal/storage"
	"twirvo-sync/internal/views"
)

func (s server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s server) listLedger(w http.ResponseWriter, r *http.Request) {
	sigs, err := s.ledger.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to list ledger")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, LedgerResponse{Signatures: sigs})
}

func (s server) appendLedger(w http.ResponseWriter, r *http.Request) {
	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}
	sig := strings.TrimSpace(req.Signature)
	if sig == "" {
		writeError(w, http.StatusBadRequest, "signature is required")
		return
	}
	if domain.IsSimulatedSignature(sig) {
		writeError(w, http.StatusBadRequest, "simulated signatures belong to the simulated ledger")
		return
	}

	if err := s.ledger.Append(r.Context(), sig); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			writeError(w, http.StatusConflict, "signature already recorded")
			return
		}
		s.logger.WithError(err).Error("failed to append to ledger")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if s.sync != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := s.sync.Refold(ctx); err != nil {
				s.logger.WithError(err).Warn("refold after ledger append failed")
			}
		}()
	}

	writeJSON(w, http.StatusCreated, AppendRequest{Signature: sig})
}

func (s server) listSimLedger(w http.ResponseWriter, r *http.Request) {
	sigs, err := s.simLedger.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to list simulated ledger")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, LedgerResponse{Signatures: sigs})
}

func (s server) appendSimLedger(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid admin token")
		return
	}

	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}
	sig := strings.TrimSpace(req.Signature)
	if !domain.IsSimulatedSignature(sig) {
		writeError(w, http.StatusBadRequest, "simulated signatures must carry the sim_ prefix")
		return
	}

	if err := s.simLedger.Append(r.Context(), sig); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			writeError(w, http.StatusConflict, "signature already recorded")
			return
		}
		s.logger.WithError(err).Error("failed to append to simulated ledger")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, AppendRequest{Signature: sig})
}

func (s server) authorized(r *http.Request) bool {
	if s.adminToken == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.adminToken
}

func (s server) insertAuditRecord(w http.ResponseWriter, r *http.Request) {
	var req AuditRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}
	if req.ID == "" || req.Wallet == "" || req.ActionKind == "" {
		writeError(w, http.StatusBadRequest, "id, wallet and actionKind are required")
		return
	}

	if err := s.audit.Insert(r.Context(), toAuditRecord(req)); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			writeError(w, http.StatusConflict, "record already exists")
			return
		}
		s.logger.WithError(err).Error("failed to insert audit record")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, req)
}

func (s server) listAuditRecords(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAuditLimit {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := s.audit.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.WithError(err).Error("failed to list audit records")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]AuditRecordRequest, 0, len(records))
	for _, rec := range records {
		out = append(out, fromAuditRecord(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s server) getPreferences(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.prefs.snapshot())
}

func (s server) putPreferences(w http.ResponseWriter, r *http.Request) {
	prefs := views.DefaultPreferences()
	if err := json.NewDecoder(r.Body).Decode(prefs); err != nil {
		writeError(w, http.StatusBadRequest, "failed to decode json")
		return
	}

	if s.prefStore != nil {
		raw, err := json.Marshal(prefs)
		if err != nil {
			s.logger.WithError(err).Error("failed to encode preferences")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := s.prefStore.Set(r.Context(), prefsKey, string(raw)); err != nil {
			s.logger.WithError(err).Error("failed to persist preferences")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	s.prefs.set(prefs.Clone())
	writeJSON(w, http.StatusOK, prefs)
}

func (s server) getProfile(w http.ResponseWriter, r *http.Request) {
	state := s.sync.State()

	rt, err := route.Resolve(state, chi.URLParam(r, "segment"), "")
	if err != nil || rt.Kind != route.KindProfile {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	resp := ProfileResponse{Wallet: rt.Wallet}
	if profile := state.Users[rt.Wallet]; profile != nil {
		resp.Username = profile.Username
		resp.Bio = profile.Bio
		resp.PFP = profile.PFP
		resp.Links = profile.Links
		resp.Simulated = profile.Simulated
	}
	if pts := state.Points[rt.Wallet]; pts != nil {
		resp.Points = pts.Global
	}
	if s.balances != nil {
		lamports, err := s.balances.GetBalance(r.Context(), rt.Wallet)
		if err != nil {
			s.logger.WithField("wallet", rt.Wallet).WithError(err).Warn("balance lookup failed")
		} else {
			resp.Lamports = &lamports
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s server) getFeed(w http.ResponseWriter, r *http.Request) {
	state := s.sync.State()
	prefs := s.prefs.snapshot()
	if f := r.URL.Query().Get("filter"); f != "" {
		prefs.Filter = f
	}

	q := views.Query{
		Viewer:          r.URL.Query().Get("viewer"),
		ActiveCommunity: r.URL.Query().Get("community"),
		UserFilter:      r.URL.Query().Get("user"),
	}

	posts := views.BuildFeed(state, prefs, q)
	out := make([]FeedEntry, 0, len(posts))
	for _, p := range posts {
		out = append(out, toFeedEntry(p, state.Stats[p.Signature]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s server) getState(w http.ResponseWriter, _ *http.Request) {
	state := s.sync.State()
	progress := s.sync.Progress()

	leaders := make([]PointsEntry, 0, len(state.Points))
	for wallet, pts := range state.Points {
		entry := PointsEntry{Wallet: wallet, Points: pts.Global}
		if profile := state.Users[wallet]; profile != nil {
			entry.Username = profile.Username
		}
		leaders = append(leaders, entry)
	}
	sort.Slice(leaders, func(i, j int) bool {
		if leaders[i].Points != leaders[j].Points {
			return leaders[i].Points > leaders[j].Points
		}
		return leaders[i].Wallet < leaders[j].Wallet
	})
	if len(leaders) > 10 {
		leaders = leaders[:10]
	}

	writeJSON(w, http.StatusOK, StateResponse{
		Posts:       len(state.Posts),
		Comments:    len(state.Comments),
		Wallets:     len(state.Wallets),
		Communities: len(state.Communities),
		Current:     progress.Current,
		Total:       progress.Total,
		Leaders:     leaders,
	})
}
