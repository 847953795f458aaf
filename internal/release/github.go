package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// Ensure GitHubPublisher satisfies the publisher interface.
var _ Publisher = (*GitHubPublisher)(nil)

// HTTPDoer executes HTTP requests (allows substituting a fake in tests).
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GitHubPublisher uploads archives as GitHub release assets. An asset
// whose name already exists on the release is replaced, so re-running
// the pipeline for the same tag never duplicates assets.
type GitHubPublisher struct {
	Owner   string
	Repo    string
	Token   string
	BaseURL string
	Client  HTTPDoer
	Logger  *slog.Logger
}

func (p *GitHubPublisher) logger() *slog.Logger {
	if p != nil && p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *GitHubPublisher) client() HTTPDoer {
	if p != nil && p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

func (p *GitHubPublisher) baseURL() string {
	if p != nil && p.BaseURL != "" {
		return strings.TrimSuffix(p.BaseURL, "/")
	}
	return defaultBaseURL
}

type githubRelease struct {
	ID        int64  `json:"id"`
	TagName   string `json:"tag_name"`
	UploadURL string `json:"upload_url"`
}

type githubAsset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Publish attaches every archive to the release for tag, creating the
// release if the tag has none yet. Uploads proceed independently so a
// partial outcome is reported per file via PartialUploadError.
func (p *GitHubPublisher) Publish(ctx context.Context, tag string, archivePaths []string) error {
	if tag == "" {
		return fmt.Errorf("tag is required")
	}
	if len(archivePaths) == 0 {
		return nil
	}

	logger := p.logger().With("tag", tag, "repository", p.Owner+"/"+p.Repo)

	rel, err := p.releaseForTag(ctx, tag)
	if err != nil {
		return err
	}

	assets, err := p.listAssets(ctx, rel.ID)
	if err != nil {
		return err
	}
	existing := make(map[string]int64, len(assets))
	for _, asset := range assets {
		existing[asset.Name] = asset.ID
	}

	paths := append([]string(nil), archivePaths...)
	sort.Strings(paths)

	var uploaded []string
	failed := map[string]error{}
	for _, path := range paths {
		name := filepath.Base(path)

		if assetID, ok := existing[name]; ok {
			logger.Info("replacing existing release asset", "asset", name)
			if err := p.deleteAsset(ctx, assetID); err != nil {
				failed[name] = err
				continue
			}
		}

		if err := p.uploadAsset(ctx, rel, path, name); err != nil {
			failed[name] = err
			continue
		}
		logger.Info("uploaded release asset", "asset", name)
		uploaded = append(uploaded, name)
	}

	if len(failed) > 0 {
		return &PartialUploadError{Tag: tag, Uploaded: uploaded, Failed: failed}
	}
	return nil
}

// releaseForTag finds the release for tag, creating one when the tag
// was pushed without a release having been published yet.
func (p *GitHubPublisher) releaseForTag(ctx context.Context, tag string) (githubRelease, error) {
	var rel githubRelease
	lookupURL := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", p.baseURL(), p.Owner, p.Repo, url.PathEscape(tag))

	status, err := p.doJSON(ctx, http.MethodGet, lookupURL, nil, &rel)
	if err != nil {
		return githubRelease{}, err
	}
	if status == http.StatusOK {
		return rel, nil
	}
	if status != http.StatusNotFound {
		return githubRelease{}, fmt.Errorf("look up release for %s: unexpected status %d", tag, status)
	}

	p.logger().Info("no release for tag yet, creating one", "tag", tag)
	payload := strings.NewReader(fmt.Sprintf(`{"tag_name":%q,"name":%q}`, tag, tag))
	createURL := fmt.Sprintf("%s/repos/%s/%s/releases", p.baseURL(), p.Owner, p.Repo)

	status, err = p.doJSON(ctx, http.MethodPost, createURL, payload, &rel)
	if err != nil {
		return githubRelease{}, err
	}
	if status != http.StatusCreated {
		return githubRelease{}, fmt.Errorf("create release for %s: unexpected status %d", tag, status)
	}
	return rel, nil
}

func (p *GitHubPublisher) listAssets(ctx context.Context, releaseID int64) ([]githubAsset, error) {
	var assets []githubAsset
	assetsURL := fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets?per_page=100", p.baseURL(), p.Owner, p.Repo, releaseID)

	status, err := p.doJSON(ctx, http.MethodGet, assetsURL, nil, &assets)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list release assets: unexpected status %d", status)
	}
	return assets, nil
}

func (p *GitHubPublisher) deleteAsset(ctx context.Context, assetID int64) error {
	deleteURL := fmt.Sprintf("%s/repos/%s/%s/releases/assets/%d", p.baseURL(), p.Owner, p.Repo, assetID)

	status, err := p.doJSON(ctx, http.MethodDelete, deleteURL, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("delete release asset: unexpected status %d", status)
	}
	return nil
}

func (p *GitHubPublisher) uploadAsset(ctx context.Context, rel githubRelease, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}

	uploadURL := uploadURLFor(rel, p.baseURL(), p.Owner, p.Repo) + "?name=" + url.QueryEscape(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, file)
	if err != nil {
		return fmt.Errorf("creating upload request: %w", err)
	}
	p.setHeaders(req)
	req.Header.Set("Content-Type", contentTypeFor(name))
	req.ContentLength = info.Size()

	resp, err := p.client().Do(req)
	if err != nil {
		return fmt.Errorf("executing upload request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upload %s: unexpected status %s", name, resp.Status)
	}
	return nil
}

// doJSON performs a request and decodes a JSON body into target when
// target is non-nil and the response carries one. It returns the
// status code so callers can branch on expected non-2xx outcomes.
func (p *GitHubPublisher) doJSON(ctx context.Context, method, requestURL string, body io.Reader, target any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	p.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client().Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("github API error: %s", resp.Status)
	}

	if target != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
		return resp.StatusCode, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (p *GitHubPublisher) setHeaders(req *http.Request) {
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
}

// uploadURLFor resolves the asset upload endpoint. GitHub returns a
// hypermedia template on the release object; tests and GHE setups may
// omit it, in which case the API base is reused.
func uploadURLFor(rel githubRelease, baseURL, owner, repo string) string {
	if rel.UploadURL != "" {
		if idx := strings.Index(rel.UploadURL, "{"); idx >= 0 {
			return rel.UploadURL[:idx]
		}
		return rel.UploadURL
	}
	return fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets", baseURL, owner, repo, rel.ID)
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip":
		return "application/zip"
	case ".iso":
		return "application/x-iso9660-image"
	default:
		return "application/octet-stream"
	}
}
