// Package drive is the thin Google Drive v3 adapter behind the raw-input
// Source interface. It lists the camera's per-day folders, lists image files
// within a folder, and downloads image bytes; everything else about the
// Drive API is out of scope.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wipash/northgrove-timelapse/internal/fileutil"
	"github.com/wipash/northgrove-timelapse/internal/services"
)

// Folder is one child folder of the source root; the engine decides whether
// its name parses into a partition.
type Folder struct {
	ID   string
	Name string
}

// ItemRef identifies one image file inside a partition folder.
type ItemRef struct {
	ID   string
	Name string
}

// Source is the raw-input collaborator consumed by the engine.
type Source interface {
	ListPartitions(ctx context.Context, rootID string) ([]Folder, error)
	ListItems(ctx context.Context, partitionID string) ([]ItemRef, error)
	FetchItem(ctx context.Context, item ItemRef, dest string) error
}

// HTTPDoer describes the HTTP client used by the Drive adapter.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements Source against the Drive v3 REST API.
type Client struct {
	baseURL    string
	token      string
	itemPrefix string
	client     HTTPDoer
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// Token is the OAuth bearer token used for all requests.
	Token string
	// ItemPrefix filters image files by name, e.g. "TLS_".
	ItemPrefix string
	Client     HTTPDoer
}

// NewClient builds a Drive client; a nil HTTP client falls back to a
// 2 minute timeout default suited to image downloads.
func NewClient(opts Options) *Client {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = "https://www.googleapis.com/drive/v3"
	}
	return &Client{
		baseURL:    base,
		token:      strings.TrimSpace(opts.Token),
		itemPrefix: opts.ItemPrefix,
		client:     client,
	}
}

type fileList struct {
	NextPageToken string `json:"nextPageToken"`
	Files         []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"files"`
}

// ListPartitions returns all child folders of the root folder.
func (c *Client) ListPartitions(ctx context.Context, rootID string) ([]Folder, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType = 'application/vnd.google-apps.folder' and trashed = false", rootID)
	var folders []Folder
	err := c.listPages(ctx, query, func(id, name string) {
		folders = append(folders, Folder{ID: id, Name: name})
	})
	if err != nil {
		return nil, services.Wrap(services.ErrFetch, "drive", "list partitions", "", err)
	}
	return folders, nil
}

// ListItems returns the JPEG images of a partition folder matching the
// configured name prefix, in API order; callers sort by frame sequence.
func (c *Client) ListItems(ctx context.Context, partitionID string) ([]ItemRef, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType = 'image/jpeg' and name contains '%s' and trashed = false",
		partitionID, c.itemPrefix)
	var items []ItemRef
	err := c.listPages(ctx, query, func(id, name string) {
		if strings.HasPrefix(name, c.itemPrefix) {
			items = append(items, ItemRef{ID: id, Name: name})
		}
	})
	if err != nil {
		return nil, services.Wrap(services.ErrFetch, "drive", "list items", "", err)
	}
	return items, nil
}

func (c *Client) listPages(ctx context.Context, query string, visit func(id, name string)) error {
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("q", query)
		params.Set("pageSize", "1000")
		params.Set("fields", "nextPageToken, files(id, name)")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files?"+params.Encode(), nil)
		if err != nil {
			return fmt.Errorf("build list request: %w", err)
		}
		var page fileList
		if err := c.doJSON(req, &page); err != nil {
			return err
		}
		for _, f := range page.Files {
			visit(f.ID, f.Name)
		}
		if page.NextPageToken == "" {
			return nil
		}
		pageToken = page.NextPageToken
	}
}

// FetchItem streams the image bytes to dest via temp-file publication.
func (c *Client) FetchItem(ctx context.Context, item ItemRef, dest string) error {
	reqURL := fmt.Sprintf("%s/files/%s?alt=media", c.baseURL, url.PathEscape(item.ID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return services.Wrap(services.ErrFetch, "drive", "fetch item", item.Name, err)
	}
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrFetch, "drive", "fetch item", item.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrFetch, "drive", "fetch item",
			fmt.Sprintf("%s: status %d", item.Name, resp.StatusCode), nil)
	}
	if err := fileutil.WriteAtomic(dest, resp.Body); err != nil {
		return services.Wrap(services.ErrFetch, "drive", "fetch item", item.Name, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) doJSON(req *http.Request, out any) error {
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("drive API returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode drive response: %w", err)
	}
	return nil
}
