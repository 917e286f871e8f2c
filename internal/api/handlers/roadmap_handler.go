package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"hiveroadmap/internal/engine/roadmap"
	"hiveroadmap/internal/engine/webhooks"
	apperrors "hiveroadmap/internal/pkg/errors"
	"hiveroadmap/internal/platform/models"
)

type RoadmapService interface {
	GetOrganization(ctx context.Context) (*models.OrganizationRaw, error)
	GetRoadmapMetadata(ctx context.Context) (*models.RoadmapMetadata, error)
	GetStatusItems(ctx context.Context, statusID string, opts roadmap.QueryOptions) (*models.StatusSnapshot, error)
	GetAggregateRoadmap(ctx context.Context, opts roadmap.AggregateOptions) (*models.AggregateSnapshot, error)
	GetSubmissionByID(ctx context.Context, id string) (*models.RoadmapItem, error)
	BuildPublicSlugURL(slug string) (string, error)
}

type SnapshotBroadcaster interface {
	BroadcastStatusSnapshot(ctx context.Context, snapshot *models.StatusSnapshot) webhooks.DispatchResult
	BroadcastAggregateSnapshot(ctx context.Context, snapshot *models.AggregateSnapshot) webhooks.DispatchResult
}

type RoadmapHandler struct {
	service       RoadmapService
	broadcaster   SnapshotBroadcaster
	exposeDetails bool
}

func NewRoadmapHandler(service RoadmapService, broadcaster SnapshotBroadcaster, exposeDetails bool) *RoadmapHandler {
	return &RoadmapHandler{service: service, broadcaster: broadcaster, exposeDetails: exposeDetails}
}

type organizationResponse struct {
	ID              string          `json:"id"`
	Slug            string          `json:"slug"`
	DisplayName     json.RawMessage `json:"displayName"`
	Color           json.RawMessage `json:"color"`
	BaseURL         *string         `json:"baseUrl"`
	Language        json.RawMessage `json:"language"`
	CreatedAt       json.RawMessage `json:"createdAt"`
	UpdatedAt       json.RawMessage `json:"updatedAt"`
	RoadmapStatuses json.RawMessage `json:"roadmapStatuses"`
	PostStatuses    json.RawMessage `json:"postStatuses"`
	Roadmaps        json.RawMessage `json:"roadmaps"`
}

func (h *RoadmapHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrganization(r.Context())
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}

	var baseURL *string
	if org.CustomDomain != "" {
		u := "https://" + org.CustomDomain
		baseURL = &u
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organization": organizationResponse{
			ID:              org.ID,
			Slug:            org.Name,
			DisplayName:     org.DisplayName,
			Color:           org.Color,
			BaseURL:         baseURL,
			Language:        org.Language,
			CreatedAt:       org.CreatedAt,
			UpdatedAt:       org.UpdatedAt,
			RoadmapStatuses: nullIfEmpty(org.RoadmapStatuses),
			PostStatuses:    nullIfEmpty(org.PostStatuses),
			Roadmaps:        nullIfEmpty(org.Roadmaps),
		},
	})
}

func (h *RoadmapHandler) GetMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.GetRoadmapMetadata(r.Context())
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (h *RoadmapHandler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.GetRoadmapMetadata(r.Context())
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(meta.Statuses),
		"statuses": meta.Statuses,
	})
}

func (h *RoadmapHandler) GetStatusItems(w http.ResponseWriter, r *http.Request) {
	opts, err := queryOptions(r)
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}
	broadcast, err := boolQuery(r, "broadcast", false)
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}

	snapshot, err := h.service.GetStatusItems(r.Context(), param(r, "statusId"), opts)
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}

	if broadcast && h.broadcaster != nil {
		go h.broadcaster.BroadcastStatusSnapshot(context.WithoutCancel(r.Context()), snapshot)
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (h *RoadmapHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	opts, err := queryOptions(r)
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}
	includeCompleted, err := boolQuery(r, "includeCompleted", true)
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}
	broadcast, err := boolQuery(r, "broadcast", false)
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}

	snapshot, err := h.service.GetAggregateRoadmap(r.Context(), roadmap.AggregateOptions{
		QueryOptions:     opts,
		IncludeCompleted: includeCompleted,
	})
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}

	if broadcast && h.broadcaster != nil {
		go h.broadcaster.BroadcastAggregateSnapshot(context.WithoutCancel(r.Context()), snapshot)
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (h *RoadmapHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetSubmissionByID(r.Context(), param(r, "id"))
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"item": item})
}

func (h *RoadmapHandler) GetSlugURL(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(param(r, "slug"))
	if slug == "" {
		writeError(w, r, apperrors.BadRequest("slug is required", nil), h.exposeDetails)
		return
	}

	url, err := h.service.BuildPublicSlugURL(slug)
	if err != nil {
		writeError(w, r, err, h.exposeDetails)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"slug": slug, "url": url})
}

func queryOptions(r *http.Request) (roadmap.QueryOptions, error) {
	opts := roadmap.DefaultQueryOptions()
	if sortBy := r.URL.Query().Get("sortBy"); sortBy != "" {
		opts.SortBy = sortBy
	}

	var err error
	if opts.InReview, err = boolQuery(r, "inReview", false); err != nil {
		return opts, err
	}
	if opts.IncludePinned, err = boolQuery(r, "includePinned", true); err != nil {
		return opts, err
	}
	return opts, nil
}

func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
