package roadmap

import (
	"encoding/json"
	"net/url"

	"github.com/tidwall/gjson"
	"hiveroadmap/internal/platform/models"
)

// Normalizer maps raw upstream records into the stable shapes in models.
// Reads go through gjson so unknown upstream fields never break decoding and
// the verbatim payload can be kept on every item.
type Normalizer struct {
	baseURL       string
	submissionURL string
}

func NewNormalizer(baseURL, submissionURL string) *Normalizer {
	return &Normalizer{baseURL: baseURL, submissionURL: submissionURL}
}

func (n *Normalizer) Status(raw gjson.Result) models.Status {
	return models.Status{
		ID:        raw.Get("id").String(),
		Name:      raw.Get("name").String(),
		Color:     raw.Get("color").String(),
		Type:      raw.Get("type").String(),
		IsDefault: raw.Get("isDefault").Bool(),
	}
}

func (n *Normalizer) Statuses(raw json.RawMessage) []models.Status {
	statuses := []models.Status{}
	arr := gjson.ParseBytes(raw)
	if !arr.IsArray() {
		return statuses
	}
	for _, s := range arr.Array() {
		statuses = append(statuses, n.Status(s))
	}
	return statuses
}

func (n *Normalizer) Roadmaps(raw json.RawMessage) []models.Roadmap {
	roadmaps := []models.Roadmap{}
	arr := gjson.ParseBytes(raw)
	if !arr.IsArray() {
		return roadmaps
	}
	for _, r := range arr.Array() {
		roadmap := models.Roadmap{
			ID:          r.Get("_id").String(),
			Name:        r.Get("name").String(),
			Slug:        r.Get("slug").String(),
			Description: r.Get("description").String(),
			Color:       r.Get("color").String(),
			Items:       []models.RoadmapColumn{},
		}
		for _, x := range r.Get("items").Array() {
			roadmap.Items = append(roadmap.Items, models.RoadmapColumn{
				ID:     x.Get("_id").String(),
				Title:  x.Get("title").String(),
				Color:  x.Get("color").String(),
				Icon:   rawOrNil(x.Get("icon")),
				Filter: rawOrNil(x.Get("filter")),
			})
		}
		roadmaps = append(roadmaps, roadmap)
	}
	return roadmaps
}

func (n *Normalizer) Organization(org *models.OrganizationRaw) models.OrganizationSummary {
	return models.OrganizationSummary{
		ID:          org.ID,
		Slug:        org.Name,
		DisplayName: org.DisplayName,
		Color:       org.Color,
		BaseURL:     n.baseURL,
		Language:    org.Language,
		CreatedAt:   org.CreatedAt,
		UpdatedAt:   org.UpdatedAt,
	}
}

func (n *Normalizer) PublicURL(slug string) string {
	return n.baseURL + "/en/p/" + url.PathEscape(slug)
}

func (n *Normalizer) Submission(raw json.RawMessage) models.RoadmapItem {
	r := gjson.ParseBytes(raw)
	status := r.Get("postStatus")
	category := r.Get("postCategory")

	categoryKey := category.Get("category").String()
	categoryName := category.Get("name.en").String()
	if categoryName == "" {
		categoryName = categoryKey
	}

	tags := []models.Tag{}
	for _, t := range r.Get("postTags").Array() {
		tags = append(tags, models.Tag{
			ID:      t.Get("id").String(),
			Name:    t.Get("name").String(),
			Color:   t.Get("color").String(),
			Private: t.Get("private").Bool(),
		})
	}

	languages := []string{}
	r.Get("contentTranslations").ForEach(func(key, _ gjson.Result) bool {
		languages = append(languages, key.String())
		return true
	})

	id := r.Get("id").String()
	slug := r.Get("slug").String()
	var public *string
	if slug != "" {
		u := n.PublicURL(slug)
		public = &u
	}

	upvotes := int(r.Get("upvotes").Int())

	return models.RoadmapItem{
		ID:       id,
		Slug:     slug,
		Title:    r.Get("title").String(),
		Status:   n.Status(status),
		Category: models.Category{
			ID:      category.Get("id").String(),
			Key:     categoryKey,
			Name:    categoryName,
			Private: category.Get("private").Bool(),
		},
		Tags:             tags,
		OrganizationSlug: r.Get("organization").String(),
		Upvotes:          upvotes,
		ETA:              optionalString(r.Get("eta")),
		Stats: models.ItemStats{
			Upvotes:           upvotes,
			Comments:          int(r.Get("commentCount").Int()),
			MergedSubmissions: int(r.Get("mergedSubmissionCount").Int()),
		},
		Timestamps: models.ItemTimestamps{
			CreatedAt:     r.Get("date").String(),
			LastModified:  r.Get("lastModified").String(),
			StalePostDate: optionalString(r.Get("stalePostDate")),
			LastUpvoted:   optionalString(r.Get("lastUpvoted")),
		},
		Translations: models.Translations{
			Count:     len(languages),
			Languages: languages,
		},
		URLs: models.ItemURLs{
			Public: public,
			API:    n.submissionURL + "?id=" + url.QueryEscape(id),
		},
		Meta: models.ItemMeta{
			CategoryID:         r.Get("categoryId").String(),
			InReview:           r.Get("inReview").Bool(),
			IsSpam:             r.Get("isSpam").Bool(),
			Pinned:             r.Get("pinned").Bool(),
			SourceLanguage:     r.Get("contentSourceLanguage").String(),
			SourceLanguageHash: r.Get("contentSourceLanguageHash").String(),
		},
		Raw: append(json.RawMessage(nil), raw...),
	}
}

func (n *Normalizer) Submissions(raws []json.RawMessage) []models.RoadmapItem {
	items := make([]models.RoadmapItem, 0, len(raws))
	for _, raw := range raws {
		items = append(items, n.Submission(raw))
	}
	return items
}

// optionalString maps missing, null and empty values to nil.
func optionalString(v gjson.Result) *string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := v.String()
	if s == "" {
		return nil
	}
	return &s
}

func rawOrNil(v gjson.Result) json.RawMessage {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	return json.RawMessage(v.Raw)
}
