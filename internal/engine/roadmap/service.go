package roadmap

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"hiveroadmap/internal/engine/hive"
	apperrors "hiveroadmap/internal/pkg/errors"
	"hiveroadmap/internal/platform/models"
)

const (
	DefaultSortBy      = "upvotes:desc"
	unknownCategoryKey = "unknown"
)

// Upstream is the subset of the hive client the service depends on.
type Upstream interface {
	GetOrganization(ctx context.Context) (*models.OrganizationRaw, error)
	FetchPage(ctx context.Context, q hive.PageQuery) (*hive.Page, error)
	FetchSubmission(ctx context.Context, id string) (*hive.Page, error)
}

type QueryOptions struct {
	SortBy        string
	InReview      bool
	IncludePinned bool
}

func DefaultQueryOptions() QueryOptions {
	return QueryOptions{SortBy: DefaultSortBy, IncludePinned: true}
}

type AggregateOptions struct {
	QueryOptions
	IncludeCompleted bool
}

func DefaultAggregateOptions() AggregateOptions {
	return AggregateOptions{QueryOptions: DefaultQueryOptions(), IncludeCompleted: true}
}

// PageSet is the merged result of every page for one status.
type PageSet struct {
	Items        []json.RawMessage
	PageSize     int
	TotalPages   int
	TotalResults int
}

type Service struct {
	upstream        Upstream
	normalizer      *Normalizer
	pageConcurrency int
	orgCache        *organizationCache
	now             func() time.Time
}

// NewService builds the aggregator. pageConcurrency bounds in-flight page
// fetches per status; zero means unbounded.
func NewService(upstream Upstream, normalizer *Normalizer, pageConcurrency int) *Service {
	return &Service{
		upstream:        upstream,
		normalizer:      normalizer,
		pageConcurrency: pageConcurrency,
		now:             time.Now,
	}
}

// CacheOrganization reuses the upstream organization for ttl instead of
// fetching it on every call. Zero disables caching.
func (s *Service) CacheOrganization(ttl time.Duration) {
	s.orgCache = newOrganizationCache(ttl)
}

func (s *Service) GetOrganization(ctx context.Context) (*models.OrganizationRaw, error) {
	if org, ok := s.orgCache.Get(); ok {
		return org, nil
	}

	org, err := s.upstream.GetOrganization(ctx)
	if err != nil {
		return nil, err
	}
	s.orgCache.Set(org)
	return org, nil
}

func (s *Service) GetRoadmapMetadata(ctx context.Context) (*models.RoadmapMetadata, error) {
	org, err := s.GetOrganization(ctx)
	if err != nil {
		return nil, err
	}

	return &models.RoadmapMetadata{
		Organization: s.normalizer.Organization(org),
		Statuses:     s.normalizer.Statuses(org.PostStatuses),
		Roadmaps:     s.normalizer.Roadmaps(org.Roadmaps),
	}, nil
}

// FetchAllPages reads page 1 to learn the page count, then fetches the
// remaining pages concurrently. Items are concatenated in page order.
func (s *Service) FetchAllPages(ctx context.Context, statusID string, opts QueryOptions) (*PageSet, error) {
	ctx = context.WithoutCancel(ctx)
	opts = withDefaults(opts)

	query := func(page int) hive.PageQuery {
		return hive.PageQuery{
			StatusID:      statusID,
			SortBy:        opts.SortBy,
			InReview:      opts.InReview,
			IncludePinned: opts.IncludePinned,
			Page:          page,
		}
	}

	first, err := s.upstream.FetchPage(ctx, query(1))
	if err != nil {
		return nil, err
	}

	items := append([]json.RawMessage(nil), first.Results...)
	totalPages := first.TotalPages
	if totalPages < 1 {
		totalPages = 1
	}
	pageSize := first.Limit
	if pageSize == 0 {
		pageSize = len(items)
	}

	if totalPages > 1 {
		rest := make([][]json.RawMessage, totalPages-1)

		var g errgroup.Group
		if s.pageConcurrency > 0 {
			g.SetLimit(s.pageConcurrency)
		}
		for p := 2; p <= totalPages; p++ {
			g.Go(func() error {
				page, err := s.upstream.FetchPage(ctx, query(p))
				if err != nil {
					return err
				}
				rest[p-2] = page.Results
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for _, results := range rest {
			items = append(items, results...)
		}
	}

	totalResults := first.TotalResults
	if totalResults == 0 {
		totalResults = len(items)
	}

	log.Debug().
		Str("status_id", statusID).
		Int("pages", totalPages).
		Int("items", len(items)).
		Msg("fetched status pages")

	return &PageSet{
		Items:        items,
		PageSize:     pageSize,
		TotalPages:   totalPages,
		TotalResults: totalResults,
	}, nil
}

func (s *Service) GetStatusItems(ctx context.Context, statusID string, opts QueryOptions) (*models.StatusSnapshot, error) {
	if statusID == "" {
		return nil, apperrors.BadRequest("statusId is required", nil)
	}

	meta, err := s.GetRoadmapMetadata(ctx)
	if err != nil {
		return nil, err
	}

	status, ok := findStatus(meta.Statuses, statusID)
	if !ok {
		return nil, apperrors.NotFound("Status not found", map[string]string{"statusId": statusID})
	}

	pages, err := s.FetchAllPages(ctx, statusID, opts)
	if err != nil {
		return nil, err
	}

	items := s.normalizer.Submissions(pages.Items)

	return &models.StatusSnapshot{
		Organization: meta.Organization,
		Status:       status,
		Totals: models.StatusSnapshotTotals{
			StatusTotals: models.StatusTotals{
				TotalItems:   len(items),
				TotalResults: pages.TotalResults,
				TotalPages:   pages.TotalPages,
				PageSize:     pages.PageSize,
			},
			Categories: CategoryTotals(items),
		},
		Items:       items,
		GeneratedAt: s.now().UTC(),
	}, nil
}

// GetAggregateRoadmap fetches every selected status concurrently. Any single
// failure fails the whole call; no partial snapshot is returned.
func (s *Service) GetAggregateRoadmap(ctx context.Context, opts AggregateOptions) (*models.AggregateSnapshot, error) {
	meta, err := s.GetRoadmapMetadata(ctx)
	if err != nil {
		return nil, err
	}

	statuses := meta.Statuses
	if !opts.IncludeCompleted {
		statuses = make([]models.Status, 0, len(meta.Statuses))
		for _, st := range meta.Statuses {
			if st.Type != models.StatusTypeCompleted {
				statuses = append(statuses, st)
			}
		}
	}

	results := make([]*PageSet, len(statuses))
	var g errgroup.Group
	for i, st := range statuses {
		g.Go(func() error {
			pages, err := s.FetchAllPages(ctx, st.ID, opts.QueryOptions)
			if err != nil {
				return err
			}
			results[i] = pages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot := &models.AggregateSnapshot{
		Organization: meta.Organization,
		Statuses:     make([]models.StatusBlock, 0, len(statuses)),
	}
	for i, st := range statuses {
		pages := results[i]
		items := s.normalizer.Submissions(pages.Items)

		snapshot.Totals.Items += len(items)
		snapshot.Totals.Results += pages.TotalResults
		snapshot.Statuses = append(snapshot.Statuses, models.StatusBlock{
			Status: st,
			Totals: models.StatusTotals{
				TotalItems:   len(items),
				TotalResults: pages.TotalResults,
				TotalPages:   pages.TotalPages,
				PageSize:     pages.PageSize,
			},
			Items: items,
		})
	}
	snapshot.Totals.Statuses = len(snapshot.Statuses)
	snapshot.GeneratedAt = s.now().UTC()

	return snapshot, nil
}

func (s *Service) GetSubmissionByID(ctx context.Context, id string) (*models.RoadmapItem, error) {
	page, err := s.upstream.FetchSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, apperrors.NotFound("Submission not found", map[string]string{"id": id})
	}

	item := s.normalizer.Submission(page.Results[0])
	return &item, nil
}

func (s *Service) BuildPublicSlugURL(slug string) (string, error) {
	if slug == "" {
		return "", apperrors.BadRequest("slug is required", nil)
	}
	return s.normalizer.PublicURL(slug), nil
}

// CategoryTotals counts items per category key, sorted by descending count.
// Ties keep first-encountered order.
func CategoryTotals(items []models.RoadmapItem) []models.CategoryTotal {
	totals := []models.CategoryTotal{}
	index := map[string]int{}

	for _, item := range items {
		key := item.Category.Key
		if key == "" {
			key = unknownCategoryKey
		}
		i, ok := index[key]
		if !ok {
			i = len(totals)
			index[key] = i
			totals = append(totals, models.CategoryTotal{Key: key, Name: item.Category.Name})
		}
		totals[i].Count++
	}

	sort.SliceStable(totals, func(a, b int) bool {
		return totals[a].Count > totals[b].Count
	})
	return totals
}

func findStatus(statuses []models.Status, id string) (models.Status, bool) {
	for _, st := range statuses {
		if st.ID == id {
			return st, true
		}
	}
	return models.Status{}, false
}

func withDefaults(opts QueryOptions) QueryOptions {
	if opts.SortBy == "" {
		opts.SortBy = DefaultSortBy
	}
	return opts
}
