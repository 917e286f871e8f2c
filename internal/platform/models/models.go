package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// OrganizationRaw is the upstream organization object. Identity fields are
// read as strings whatever their JSON type; everything else is kept verbatim
// so it can be passed through or normalized later.
type OrganizationRaw struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	CustomDomain    string          `json:"customDomain"`
	DisplayName     json.RawMessage `json:"displayName"`
	Color           json.RawMessage `json:"color"`
	Language        json.RawMessage `json:"language"`
	CreatedAt       json.RawMessage `json:"createdAt"`
	UpdatedAt       json.RawMessage `json:"updatedAt"`
	RoadmapStatuses json.RawMessage `json:"roadmapStatuses"`
	PostStatuses    json.RawMessage `json:"postStatuses"`
	Roadmaps        json.RawMessage `json:"roadmaps"`
}

func (o *OrganizationRaw) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("organization: invalid JSON")
	}
	r := gjson.ParseBytes(data)
	if r.Type == gjson.Null {
		return nil
	}
	if !r.IsObject() {
		return fmt.Errorf("organization: expected object, got %s", r.Type)
	}

	*o = OrganizationRaw{
		ID:              r.Get("id").String(),
		Name:            r.Get("name").String(),
		CustomDomain:    r.Get("customDomain").String(),
		DisplayName:     rawField(r, "displayName"),
		Color:           rawField(r, "color"),
		Language:        rawField(r, "language"),
		CreatedAt:       rawField(r, "createdAt"),
		UpdatedAt:       rawField(r, "updatedAt"),
		RoadmapStatuses: rawField(r, "roadmapStatuses"),
		PostStatuses:    rawField(r, "postStatuses"),
		Roadmaps:        rawField(r, "roadmaps"),
	}
	return nil
}

func rawField(r gjson.Result, key string) json.RawMessage {
	v := r.Get(key)
	if !v.Exists() {
		return nil
	}
	return json.RawMessage(v.Raw)
}

type OrganizationSummary struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	DisplayName json.RawMessage `json:"displayName"`
	Color       json.RawMessage `json:"color"`
	BaseURL     string          `json:"baseUrl"`
	Language    json.RawMessage `json:"language"`
	CreatedAt   json.RawMessage `json:"createdAt"`
	UpdatedAt   json.RawMessage `json:"updatedAt"`
}

type Status struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Type      string `json:"type"`
	IsDefault bool   `json:"isDefault"`
}

const StatusTypeCompleted = "completed"

type Roadmap struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Color       string          `json:"color"`
	Items       []RoadmapColumn `json:"items"`
}

type RoadmapColumn struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Color  string          `json:"color"`
	Icon   json.RawMessage `json:"icon"`
	Filter json.RawMessage `json:"filter,omitempty"`
}

type RoadmapMetadata struct {
	Organization OrganizationSummary `json:"organization"`
	Statuses     []Status            `json:"statuses"`
	Roadmaps     []Roadmap           `json:"roadmaps"`
}

type RoadmapItem struct {
	ID               string          `json:"id"`
	Slug             string          `json:"slug"`
	Title            string          `json:"title"`
	Status           Status          `json:"status"`
	Category         Category        `json:"category"`
	Tags             []Tag           `json:"tags"`
	OrganizationSlug string          `json:"organizationSlug"`
	Upvotes          int             `json:"upvotes"`
	ETA              *string         `json:"eta"`
	Stats            ItemStats       `json:"stats"`
	Timestamps       ItemTimestamps  `json:"timestamps"`
	Translations     Translations    `json:"translations"`
	URLs             ItemURLs        `json:"urls"`
	Meta             ItemMeta        `json:"meta"`
	Raw              json.RawMessage `json:"raw"`
}

type Category struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Name    string `json:"name"`
	Private bool   `json:"private"`
}

type Tag struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Private bool   `json:"private"`
}

type ItemStats struct {
	Upvotes           int `json:"upvotes"`
	Comments          int `json:"comments"`
	MergedSubmissions int `json:"mergedSubmissions"`
}

type ItemTimestamps struct {
	CreatedAt     string  `json:"createdAt"`
	LastModified  string  `json:"lastModified"`
	StalePostDate *string `json:"stalePostDate"`
	LastUpvoted   *string `json:"lastUpvoted"`
}

type Translations struct {
	Count     int      `json:"count"`
	Languages []string `json:"languages"`
}

type ItemURLs struct {
	Public *string `json:"public"`
	API    string  `json:"api"`
}

type ItemMeta struct {
	CategoryID         string `json:"categoryId"`
	InReview           bool   `json:"inReview"`
	IsSpam             bool   `json:"isSpam"`
	Pinned             bool   `json:"pinned"`
	SourceLanguage     string `json:"sourceLanguage"`
	SourceLanguageHash string `json:"sourceLanguageHash"`
}

type CategoryTotal struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type StatusTotals struct {
	TotalItems   int `json:"totalItems"`
	TotalResults int `json:"totalResults"`
	TotalPages   int `json:"totalPages"`
	PageSize     int `json:"pageSize"`
}

// StatusSnapshotTotals adds the per-category breakdown, sorted by descending count.
type StatusSnapshotTotals struct {
	StatusTotals
	Categories []CategoryTotal `json:"categories"`
}

type StatusSnapshot struct {
	Organization OrganizationSummary  `json:"organization"`
	Status       Status               `json:"status"`
	Totals       StatusSnapshotTotals `json:"totals"`
	Items        []RoadmapItem        `json:"items"`
	GeneratedAt  time.Time            `json:"generatedAt"`
}

type AggregateTotals struct {
	Statuses int `json:"statuses"`
	Items    int `json:"items"`
	Results  int `json:"results"`
}

type StatusBlock struct {
	Status Status        `json:"status"`
	Totals StatusTotals  `json:"totals"`
	Items  []RoadmapItem `json:"items"`
}

type AggregateSnapshot struct {
	Organization OrganizationSummary `json:"organization"`
	Totals       AggregateTotals     `json:"totals"`
	Statuses     []StatusBlock       `json:"statuses"`
	GeneratedAt  time.Time           `json:"generatedAt"`
}
