package confluence

import (
	"context"
	"net/http"
	"net/url"

	"github.com/chainguard-dev/clog"

	"github.com/dshills/designsync/internal/apperr"
	"github.com/dshills/designsync/internal/retry"
	"github.com/dshills/designsync/internal/sanitize"
)

// DefaultSectionTitle heads an appended section when none is given.
const DefaultSectionTitle = "Meeting Update"

const timestampLayout = "2006-01-02 15:04:05 UTC"

// Page is a snapshot of a design document.
type Page struct {
	ID      string
	URL     string
	Title   string
	Version int
	Status  string
	// Body is Confluence storage-format HTML.
	Body string
}

// PageVersion is what a pre-write read returns.
type PageVersion struct {
	Version int
	Title   string
	Status  string
	Body    string
}

// UpdateRequest describes one page write.
type UpdateRequest struct {
	PageID string
	Body   string
	Title  string
	// CurrentVersion is the version that was read; the write sends +1.
	CurrentVersion int
	// Status defaults to "current".
	Status  string
	Message string
}

// UpdateResult describes the version a successful write produced.
type UpdateResult struct {
	ID      string
	Title   string
	Version int
	URL     string
}

type pageJSON struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Title   string `json:"title"`
	Version struct {
		Number  int    `json:"number"`
		Message string `json:"message,omitempty"`
	} `json:"version"`
	Body struct {
		Storage struct {
			Value          string `json:"value"`
			Representation string `json:"representation"`
		} `json:"storage"`
	} `json:"body"`
	Links struct {
		WebUI string `json:"webui"`
		Base  string `json:"base"`
	} `json:"_links"`
}

type storageJSON struct {
	Value          string `json:"value"`
	Representation string `json:"representation"`
}

type versionJSON struct {
	Number  int    `json:"number"`
	Message string `json:"message,omitempty"`
}

type updateJSON struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Title  string `json:"title"`
	Body   struct {
		Storage storageJSON `json:"storage"`
	} `json:"body"`
	Version versionJSON `json:"version"`
}

func (c *Client) getPage(ctx context.Context, pageID string) (*pageJSON, error) {
	path := "/pages/" + url.PathEscape(pageID) + "?body-format=storage"
	return retry.Do(ctx, c.retry, "confluence get page", retry.Retryable, func() (*pageJSON, error) {
		var p pageJSON
		if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
			if apperr.Is(err, apperr.CodeNotFound) {
				return nil, apperr.NewNotFound("confluence page " + pageID)
			}
			return nil, err
		}
		return &p, nil
	})
}

func (c *Client) webURL(p *pageJSON) string {
	if p.Links.WebUI == "" {
		return ""
	}
	base := p.Links.Base
	if base == "" {
		base = c.siteURL + "/wiki"
	}
	return base + p.Links.WebUI
}

// FetchPage reads the page a URL points at, including its storage body.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	id, ok := ExtractPageID(pageURL)
	if !ok {
		return nil, apperr.NewNotFound("confluence page ID in URL " + pageURL)
	}
	p, err := c.getPage(ctx, id)
	if err != nil {
		return nil, err
	}
	page := &Page{
		ID:      id,
		URL:     pageURL,
		Title:   p.Title,
		Version: p.Version.Number,
		Status:  p.Status,
		Body:    p.Body.Storage.Value,
	}
	clog.FromContext(ctx).With("page_id", id).With("version", page.Version).Info("Fetched design document")
	return page, nil
}

// GetVersion reads the current version, title, status and body of a page.
func (c *Client) GetVersion(ctx context.Context, pageID string) (*PageVersion, error) {
	p, err := c.getPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return &PageVersion{
		Version: p.Version.Number,
		Title:   p.Title,
		Status:  p.Status,
		Body:    p.Body.Storage.Value,
	}, nil
}

// Update writes req.Body as version CurrentVersion+1. It is never retried; a
// 409 comes back as a VERSION_CONFLICT error.
func (c *Client) Update(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	status := req.Status
	if status == "" {
		status = "current"
	}
	next := req.CurrentVersion + 1

	body := updateJSON{
		ID:      req.PageID,
		Type:    "page",
		Status:  status,
		Title:   req.Title,
		Version: versionJSON{Number: next, Message: req.Message},
	}
	body.Body.Storage = storageJSON{Value: req.Body, Representation: "storage"}

	var p pageJSON
	err := c.do(ctx, http.MethodPut, "/pages/"+url.PathEscape(req.PageID), body, &p)
	if err != nil {
		if e, ok := apperr.As(err); ok && e.Status == http.StatusConflict {
			return nil, apperr.NewVersionConflict(req.PageID, next)
		}
		if apperr.Is(err, apperr.CodeNotFound) {
			return nil, apperr.NewNotFound("confluence page " + req.PageID)
		}
		return nil, err
	}

	res := &UpdateResult{ID: req.PageID, Title: req.Title, Version: next, URL: c.webURL(&p)}
	if p.Version.Number > 0 {
		res.Version = p.Version.Number
	}
	if p.Title != "" {
		res.Title = p.Title
	}
	clog.FromContext(ctx).With("page_id", req.PageID).With("version", res.Version).Info("Updated design document")
	return res, nil
}

// Append adds a timestamped section with additional content after the
// existing page body. Content without HTML tags is treated as Markdown. The
// existing body is never modified.
func (c *Client) Append(ctx context.Context, pageURL, additional, sectionTitle string) (*UpdateResult, error) {
	id, ok := ExtractPageID(pageURL)
	if !ok {
		return nil, apperr.NewNotFound("confluence page ID in URL " + pageURL)
	}
	if sectionTitle == "" {
		sectionTitle = DefaultSectionTitle
	}

	current, err := c.GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}

	content, err := toHTML(additional)
	if err != nil {
		return nil, err
	}
	section := "<h2>" + sanitize.Escape(sectionTitle) + "</h2>" +
		"<p><em>Updated " + c.now().UTC().Format(timestampLayout) + "</em></p>" +
		sanitize.HTML(content) +
		"<hr/>"

	return c.Update(ctx, UpdateRequest{
		PageID:         id,
		Body:           current.Body + section,
		Title:          current.Title,
		CurrentVersion: current.Version,
		Status:         current.Status,
		Message:        "designsync: " + sectionTitle,
	})
}
