package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/rssai/internal/indexer"
	"github.com/hyperjump/rssai/internal/models"
	"github.com/hyperjump/rssai/internal/storage"
)

// HeaderUserID carries the caller's user ID. Authentication happens upstream.
const HeaderUserID = "X-User-ID"

// HeaderNextCursor carries the cursor of the next feed page.
const HeaderNextCursor = "X-Next-Cursor"

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, err := optionalUserID(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	req := &models.SearchRequest{
		Query:  q.Get("query"),
		Scope:  models.SearchScope(q.Get("searchScope")),
		UserID: userID,
	}
	// sourceId <= 0 means no source filter
	if v := q.Get("sourceId"); v != "" {
		if req.SourceID, err = strconv.ParseInt(v, 10, 64); err != nil {
			s.respondErr(w, models.InvalidInputf("sourceId must be an integer"))
			return
		}
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.String("scope", string(req.Scope)))
	items, err := s.engine.Search(r.Context(), req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	q := r.URL.Query()
	subID, err := optionalInt64(q.Get("subscriptionId"), "subscriptionId")
	if err != nil {
		s.respondErr(w, err)
		return
	}
	size := 0
	if v := q.Get("size"); v != "" {
		if size, err = strconv.Atoi(v); err != nil {
			s.respondErr(w, models.InvalidInputf("size must be an integer"))
			return
		}
	}
	page, err := s.feeds.Page(r.Context(), &models.FeedRequest{
		UserID:         userID,
		SubscriptionID: subID,
		Cursor:         q.Get("cursor"),
		Size:           size,
	})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if page.NextCursor != "" {
		w.Header().Set(HeaderNextCursor, page.NextCursor)
	}
	s.respondJSON(w, http.StatusOK, page.Items)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondErr(w, err)
		return
	}
	article, err := s.store.GetArticle(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, article)
}

func (s *Server) handleGetExtra(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondErr(w, err)
		return
	}
	extra, err := s.store.GetExtra(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, extra)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondErr(w, err)
		return
	}
	items, err := s.engine.Recommend(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	topic, err := s.subs.CreateTopic(r.Context(), req.Content)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, topic)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	subs, err := s.subs.List(r.Context(), userID)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if subs == nil {
		subs = []*models.Subscription{}
	}
	s.respondJSON(w, http.StatusOK, subs)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	var req models.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := s.subs.Subscribe(r.Context(), userID, &req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if err := s.subs.Unsubscribe(r.Context(), userID, id); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImportArticles(w http.ResponseWriter, r *http.Request) {
	inputs, err := indexer.DecodeArticles(r.Body)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if len(inputs) == 0 {
		s.respondError(w, http.StatusBadRequest, "no articles in request body")
		return
	}
	results, err := s.indexer.ImportBatch(r.Context(), inputs)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	status := http.StatusCreated
	for _, res := range results {
		if res.Error != "" {
			status = http.StatusMultiStatus
			break
		}
	}
	s.respondJSON(w, status, map[string]any{"results": results})
}

type favoriteRequest struct {
	ArticleID int64 `json:"articleId"`
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.subs.AddFavorite(r.Context(), userID, req.ArticleID); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"articleId": req.ArticleID, "status": "favorited"})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	id, err := pathID(r, "articleId")
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if err := s.subs.RemoveFavorite(r.Context(), userID, id); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("status: stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	weights := s.engine.Weights()
	resp := map[string]any{
		"store": stats,
		"config": map[string]any{
			"storageDriver":       s.config.Storage.Driver,
			"embeddingProvider":   s.config.Embedding.Provider,
			"embeddingDimensions": s.config.Embedding.Dimensions,
			"vectorThreshold":     s.config.Search.VectorThreshold,
			"feedThreshold":       s.config.Feed.SimilarityThreshold,
			"weights":             weights,
		},
	}
	paths := []string{s.config.Storage.TermIndexPath}
	if s.config.Storage.Driver == "sqlite" {
		paths = append(paths, s.config.Storage.DatabasePath)
	}
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		resp["diskUsageBytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// respondErr maps service errors to status codes. Internal details are only logged.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrEmbeddingUnavailable):
		s.logger.Warn("embedding unavailable", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "embedding service unavailable")
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func optionalUserID(r *http.Request) (*int64, error) {
	return optionalInt64(r.Header.Get(HeaderUserID), HeaderUserID)
}

func requireUserID(r *http.Request) (int64, error) {
	id, err := optionalUserID(r)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, models.InvalidInputf("%s header is required", HeaderUserID)
	}
	return *id, nil
}

// optionalInt64 parses a positive ID. Blank means absent.
func optionalInt64(v, name string) (*int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return nil, models.InvalidInputf("%s must be a positive integer", name)
	}
	return &n, nil
}

func pathID(r *http.Request, param string) (int64, error) {
	id, err := optionalInt64(chi.URLParam(r, param), param)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, models.InvalidInputf("%s is required", param)
	}
	return *id, nil
}
