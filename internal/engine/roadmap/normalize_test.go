package roadmap

import (
	"encoding/json"
	"testing"

	"hiveroadmap/internal/platform/models"
)

func TestNormalizer_Submission(t *testing.T) {
	n := NewNormalizer("https://hive.test", "https://hive.test/api/v1/submission")

	raw := json.RawMessage(`{
		"id": "sub 1",
		"slug": "better-maps",
		"title": "Better maps",
		"upvotes": 42,
		"commentCount": 3,
		"mergedSubmissionCount": 1,
		"eta": null,
		"date": "2024-01-02T03:04:05Z",
		"lastModified": "2024-02-02T03:04:05Z",
		"lastUpvoted": "",
		"postStatus": {"id": "planned", "name": "Planned", "type": "reviewing"},
		"postCategory": {"id": "c1", "category": "maps", "name": {"de": "Karten"}},
		"postTags": [{"id": "t1", "name": "Bedrock", "color": "Red", "private": true}],
		"contentTranslations": {"de": {}, "fr": {}},
		"organization": "hivegameslimited",
		"pinned": true,
		"extraField": {"kept": true}
	}`)

	item := n.Submission(raw)

	if item.ID != "sub 1" || item.Title != "Better maps" {
		t.Errorf("unexpected identity %s / %s", item.ID, item.Title)
	}
	if item.Upvotes != 42 || item.Stats.Upvotes != 42 || item.Stats.Comments != 3 || item.Stats.MergedSubmissions != 1 {
		t.Errorf("unexpected stats %+v", item.Stats)
	}
	if item.Category.Key != "maps" || item.Category.Name != "maps" {
		t.Errorf("Expected category name to fall back to key, got %+v", item.Category)
	}
	if len(item.Tags) != 1 || !item.Tags[0].Private || item.Tags[0].Name != "Bedrock" {
		t.Errorf("unexpected tags %+v", item.Tags)
	}
	if item.Translations.Count != 2 || item.Translations.Languages[0] != "de" || item.Translations.Languages[1] != "fr" {
		t.Errorf("unexpected translations %+v", item.Translations)
	}
	if item.ETA != nil {
		t.Errorf("Expected nil ETA for null, got %q", *item.ETA)
	}
	if item.Timestamps.LastUpvoted != nil {
		t.Errorf("Expected nil lastUpvoted for empty string")
	}
	if item.URLs.Public == nil || *item.URLs.Public != "https://hive.test/en/p/better-maps" {
		t.Errorf("unexpected public url %v", item.URLs.Public)
	}
	if item.URLs.API != "https://hive.test/api/v1/submission?id=sub+1" {
		t.Errorf("unexpected api url %s", item.URLs.API)
	}
	if !item.Meta.Pinned || item.Status.ID != "planned" {
		t.Errorf("unexpected meta/status %+v %+v", item.Meta, item.Status)
	}
	if string(item.Raw) != string(raw) {
		t.Errorf("Expected raw payload to be kept verbatim")
	}
}

func TestNormalizer_SubmissionWithoutSlug(t *testing.T) {
	n := NewNormalizer("https://hive.test", "https://hive.test/api/v1/submission")

	item := n.Submission(json.RawMessage(`{"id":"x"}`))
	if item.URLs.Public != nil {
		t.Errorf("Expected no public url without slug")
	}
	if item.Tags == nil || item.Translations.Languages == nil {
		t.Errorf("Expected empty, non-nil collections")
	}
}

func TestNormalizer_StatusesAndRoadmaps(t *testing.T) {
	n := NewNormalizer("https://hive.test", "")

	statuses := n.Statuses(json.RawMessage(`[{"id":"a","name":"A","type":"completed","isDefault":true},{"id":"b"}]`))
	if len(statuses) != 2 || statuses[0].Type != models.StatusTypeCompleted || !statuses[0].IsDefault {
		t.Errorf("unexpected statuses %+v", statuses)
	}

	if got := n.Statuses(nil); len(got) != 0 || got == nil {
		t.Errorf("Expected empty statuses for missing field, got %v", got)
	}

	roadmaps := n.Roadmaps(json.RawMessage(`[{"_id":"r1","name":"Main","slug":"main","items":[{"_id":"col1","title":"Now","icon":{"value":"x"},"filter":null}]}]`))
	if len(roadmaps) != 1 || len(roadmaps[0].Items) != 1 {
		t.Fatalf("unexpected roadmaps %+v", roadmaps)
	}
	col := roadmaps[0].Items[0]
	if col.ID != "col1" || string(col.Icon) != `{"value":"x"}` || col.Filter != nil {
		t.Errorf("unexpected column %+v", col)
	}
}
