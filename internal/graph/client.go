// Package graph is a thin client for the SharePoint drive this system stores
// files in, talking to the Microsoft Graph v1.0 drive endpoints.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/ntbworks/dockyard/internal/config"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// Uploads above this size go through an upload session in chunks.
const largeFileThreshold = 4 * 1024 * 1024

const uploadChunkSize = 10 * 1024 * 1024

// TokenSource produces a Graph access token, normally the auth bridge.
type TokenSource func(ctx context.Context) (string, error)

type Client struct {
	httpClient *http.Client
	baseURL    string
	siteID     string
	driveID    string
	token      TokenSource
}

type DriveItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	WebURL      string `json:"webUrl"`
	DownloadURL string `json:"@microsoft.graph.downloadUrl"`
	File        *struct {
		MimeType string `json:"mimeType"`
	} `json:"file"`
	Folder *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder"`
}

type apiError struct {
	Op     string
	Status int
}

func (e *apiError) Error() string {
	return fmt.Sprintf("graph: %s: status %d", e.Op, e.Status)
}

func New(cfg config.GraphConfig, token TokenSource) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    defaultBaseURL,
		siteID:     cfg.SiteID,
		driveID:    cfg.DriveID,
		token:      token,
	}
}

func (c *Client) driveURL(format string, args ...any) string {
	return fmt.Sprintf("%s/sites/%s/drives/%s/"+format,
		append([]any{c.baseURL, c.siteID, c.driveID}, args...)...)
}

func (c *Client) do(ctx context.Context, method, url string, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("graph: build request: %w", err)
	}
	tok, err := c.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph: %s %s: %w", method, url, err)
	}
	return resp, nil
}

// UniqueName prefixes a timestamp and a short random id so repeated uploads
// of the same file never collide in the drive.
func UniqueName(name string) string {
	return time.Now().Format("20060102150405") + "_" + uuid.New().String()[:8] + "_" + name
}

// Upload puts data under name in folderID, switching to the upload-session
// path for payloads over 4 MiB.
func (c *Client) Upload(ctx context.Context, folderID, name string, data []byte) (*DriveItem, error) {
	if len(data) > largeFileThreshold {
		return c.uploadLarge(ctx, folderID, name, data)
	}

	u := c.driveURL("items/%s:/%s:/content", folderID, url.PathEscape(name))
	resp, err := c.do(ctx, http.MethodPut, u, "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &apiError{Op: "upload " + name, Status: resp.StatusCode}
	}
	var item DriveItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("graph: decode upload response: %w", err)
	}
	return &item, nil
}

func (c *Client) uploadLarge(ctx context.Context, folderID, name string, data []byte) (*DriveItem, error) {
	u := c.driveURL("items/%s:/%s:/createUploadSession", folderID, url.PathEscape(name))
	resp, err := c.do(ctx, http.MethodPost, u, "application/json", nil)
	if err != nil {
		return nil, err
	}
	var session struct {
		UploadURL string `json:"uploadUrl"`
	}
	err = json.NewDecoder(resp.Body).Decode(&session)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &apiError{Op: "create upload session", Status: resp.StatusCode}
	}
	if err != nil || session.UploadURL == "" {
		return nil, fmt.Errorf("graph: decode upload session: %w", err)
	}

	total := len(data)
	for start := 0; start < total; start += uploadChunkSize {
		end := start + uploadChunkSize
		if end > total {
			end = total
		}
		chunk := data[start:end]

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.UploadURL, bytes.NewReader(chunk))
		if err != nil {
			return nil, fmt.Errorf("graph: build chunk request: %w", err)
		}
		req.ContentLength = int64(len(chunk))
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, total))

		chunkResp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("graph: upload chunk: %w", err)
		}

		if end < total {
			// Intermediate chunks come back 202 with the next expected range.
			chunkResp.Body.Close()
			if chunkResp.StatusCode != http.StatusAccepted {
				return nil, &apiError{Op: "upload chunk", Status: chunkResp.StatusCode}
			}
			continue
		}

		defer chunkResp.Body.Close()
		if chunkResp.StatusCode != http.StatusOK && chunkResp.StatusCode != http.StatusCreated {
			return nil, &apiError{Op: "final chunk", Status: chunkResp.StatusCode}
		}
		var item DriveItem
		if err := json.NewDecoder(chunkResp.Body).Decode(&item); err != nil {
			return nil, fmt.Errorf("graph: decode final chunk response: %w", err)
		}
		return &item, nil
	}
	return nil, fmt.Errorf("graph: empty upload")
}

// Download returns the file content stream. The caller must close it.
func (c *Client) Download(ctx context.Context, itemID string) (io.ReadCloser, error) {
	u := c.driveURL("items/%s/content", itemID)
	resp, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &apiError{Op: "download " + itemID, Status: resp.StatusCode}
	}
	return resp.Body, nil
}

// Delete removes the item. A 404 is treated as already deleted.
func (c *Client) Delete(ctx context.Context, itemID string) error {
	u := c.driveURL("items/%s", itemID)
	resp, err := c.do(ctx, http.MethodDelete, u, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return &apiError{Op: "delete " + itemID, Status: resp.StatusCode}
	}
	return nil
}

// ListChildren lists a folder, split into files and subfolders.
func (c *Client) ListChildren(ctx context.Context, folderID string) (files, folders []DriveItem, err error) {
	u := c.driveURL("items/%s/children", folderID)
	resp, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, &apiError{Op: "list " + folderID, Status: resp.StatusCode}
	}

	var page struct {
		Value []DriveItem `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, nil, fmt.Errorf("graph: decode children: %w", err)
	}
	for _, item := range page.Value {
		if item.Folder != nil {
			folders = append(folders, item)
		} else {
			files = append(files, item)
		}
	}
	return files, folders, nil
}

// EnsureFolder returns the id of the named folder under the drive root,
// creating it when absent.
func (c *Client) EnsureFolder(ctx context.Context, name string) (string, error) {
	_, folders, err := c.ListChildren(ctx, "root")
	if err != nil {
		return "", err
	}
	for _, f := range folders {
		if f.Name == name {
			return f.ID, nil
		}
	}

	body, _ := json.Marshal(map[string]any{
		"name":                              name,
		"folder":                            map[string]any{},
		"@microsoft.graph.conflictBehavior": "rename",
	})
	u := c.driveURL("items/%s/children", "root")
	resp, err := c.do(ctx, http.MethodPost, u, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &apiError{Op: "create folder " + name, Status: resp.StatusCode}
	}
	var item DriveItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return "", fmt.Errorf("graph: decode folder: %w", err)
	}
	return item.ID, nil
}

// ShareLink creates an anonymous view link for the item.
func (c *Client) ShareLink(ctx context.Context, itemID string) (string, error) {
	body, _ := json.Marshal(map[string]string{"type": "view", "scope": "anonymous"})
	u := c.driveURL("items/%s/createLink", itemID)
	resp, err := c.do(ctx, http.MethodPost, u, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &apiError{Op: "share " + itemID, Status: resp.StatusCode}
	}
	var out struct {
		Link struct {
			WebURL string `json:"webUrl"`
		} `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("graph: decode link: %w", err)
	}
	if out.Link.WebURL == "" {
		return "", &apiError{Op: "share " + itemID, Status: http.StatusNotFound}
	}
	return out.Link.WebURL, nil
}

// PreviewLink embeds the item's temporary download URL in the Office online
// viewer, for the spreadsheet and document previews the frontend shows.
func (c *Client) PreviewLink(ctx context.Context, itemID string) (string, error) {
	u := c.driveURL("items/%s", itemID)
	resp, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &apiError{Op: "item " + itemID, Status: resp.StatusCode}
	}
	var item DriveItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return "", fmt.Errorf("graph: decode item: %w", err)
	}
	if item.DownloadURL == "" {
		return "", &apiError{Op: "item " + itemID, Status: http.StatusNotFound}
	}
	return "https://view.officeapps.live.com/op/embed.aspx?src=" + url.QueryEscape(item.DownloadURL) + "&wdStartOn=1", nil
}
