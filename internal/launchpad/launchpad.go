// Package launchpad reads blueprints from the Launchpad REST API anonymously.
package launchpad

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joescharf/relstatus/internal/models"
)

// DefaultAPIURL is the root of the Launchpad web service.
const DefaultAPIURL = "https://api.launchpad.net/devel"

// Client fetches specifications and resolves the people and milestones they
// link to. Linked resources are memoized for the lifetime of the Client, so a
// Client should not outlive a run. Not safe for concurrent use.
type Client struct {
	baseURL    string
	http       *http.Client
	people     map[string]*models.Person
	milestones map[string]*models.Milestone
}

// NewClient returns a Client for the API rooted at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       httpClient,
		people:     make(map[string]*models.Person),
		milestones: make(map[string]*models.Milestone),
	}
}

type specification struct {
	Name                 string `json:"name"`
	Title                string `json:"title"`
	WebLink              string `json:"web_link"`
	Whiteboard           string `json:"whiteboard"`
	Priority             string `json:"priority"`
	ImplementationStatus string `json:"implementation_status"`
	MilestoneLink        string `json:"milestone_link"`
	AssigneeLink         string `json:"assignee_link"`
	DrafterLink          string `json:"drafter_link"`
}

type collection struct {
	Entries            []specification `json:"entries"`
	NextCollectionLink string          `json:"next_collection_link"`
}

type milestone struct {
	Name         string `json:"name"`
	DateTargeted string `json:"date_targeted"`
	WebLink      string `json:"web_link"`
	IsActive     bool   `json:"is_active"`
}

// ValidSpecifications returns every valid blueprint of project targeted to series.
func (c *Client) ValidSpecifications(ctx context.Context, project, series string) ([]models.RawBlueprint, error) {
	next := c.resolve(fmt.Sprintf("%s/%s/valid_specifications", url.PathEscape(project), url.PathEscape(series)))

	var bps []models.RawBlueprint
	for next != "" {
		var page collection
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("list specifications for %s/%s: %w", project, series, err)
		}
		for _, s := range page.Entries {
			bp, err := c.blueprint(ctx, project, s)
			if err != nil {
				return nil, fmt.Errorf("blueprint %s: %w", s.Name, err)
			}
			bps = append(bps, bp)
		}
		next = page.NextCollectionLink
	}
	return bps, nil
}

func (c *Client) blueprint(ctx context.Context, project string, s specification) (models.RawBlueprint, error) {
	bp := models.RawBlueprint{
		Name:           s.Name,
		Project:        project,
		Title:          s.Title,
		WebLink:        s.WebLink,
		Whiteboard:     s.Whiteboard,
		Priority:       s.Priority,
		Implementation: s.ImplementationStatus,
	}

	var err error
	if bp.Milestone, err = c.milestone(ctx, s.MilestoneLink); err != nil {
		return bp, err
	}
	if bp.Assignee, err = c.person(ctx, s.AssigneeLink); err != nil {
		return bp, err
	}
	if bp.Drafter, err = c.person(ctx, s.DrafterLink); err != nil {
		return bp, err
	}
	return bp, nil
}

func (c *Client) person(ctx context.Context, link string) (*models.Person, error) {
	if link == "" {
		return nil, nil
	}
	link = c.resolve(link)
	if p, ok := c.people[link]; ok {
		return p, nil
	}
	var p models.Person
	if err := c.getJSON(ctx, link, &p); err != nil {
		return nil, fmt.Errorf("fetch person: %w", err)
	}
	c.people[link] = &p
	return &p, nil
}

func (c *Client) milestone(ctx context.Context, link string) (*models.Milestone, error) {
	if link == "" {
		return nil, nil
	}
	link = c.resolve(link)
	if m, ok := c.milestones[link]; ok {
		return m, nil
	}
	var raw milestone
	if err := c.getJSON(ctx, link, &raw); err != nil {
		return nil, fmt.Errorf("fetch milestone: %w", err)
	}
	m := &models.Milestone{Name: raw.Name, WebLink: raw.WebLink, IsActive: raw.IsActive}
	if raw.DateTargeted != "" {
		t, err := parseDate(raw.DateTargeted)
		if err != nil {
			return nil, fmt.Errorf("milestone %s: %w", raw.Name, err)
		}
		m.DateTargeted = &t
	}
	c.milestones[link] = m
	return m, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}

// resolve turns a relative resource path into an absolute URL.
func (c *Client) resolve(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return c.baseURL + "/" + strings.TrimLeft(link, "/")
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: %s: %s", u, resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}
