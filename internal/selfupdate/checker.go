// Package selfupdate checks GitHub releases for newer mockscope builds and
// replaces the running binary in place.
package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/mod/semver"
)

const (
	DefaultOwner = "abhisek"
	DefaultRepo  = "mockscope"

	defaultAPIURL      = "https://api.github.com"
	defaultDownloadURL = "https://github.com"
)

var (
	ErrDevBuild      = errors.New("cannot update a development build")
	ErrAlreadyLatest = errors.New("already running the latest version")
	ErrChecksum      = errors.New("checksum verification failed")
)

// Release is the subset of a GitHub release the updater needs.
type Release struct {
	Tag string
	URL string
}

// CheckResult compares the running version against the latest release.
type CheckResult struct {
	Current         string
	Latest          Release
	UpdateAvailable bool
}

type Checker struct {
	client      *http.Client
	apiURL      string
	downloadURL string
	owner       string
	repo        string
	execPath    func() (string, error)
}

type Option func(*Checker)

func WithBaseURL(u string) Option         { return func(c *Checker) { c.apiURL = u } }
func WithDownloadBaseURL(u string) Option { return func(c *Checker) { c.downloadURL = u } }

func WithRepository(owner, repo string) Option {
	return func(c *Checker) { c.owner, c.repo = owner, repo }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Checker) { c.client = &http.Client{Timeout: d} }
}

func withExecPath(f func() (string, error)) Option {
	return func(c *Checker) { c.execPath = f }
}

func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		client:      &http.Client{Timeout: 30 * time.Second},
		apiURL:      defaultAPIURL,
		downloadURL: defaultDownloadURL,
		owner:       DefaultOwner,
		repo:        DefaultRepo,
		execPath:    os.Executable,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Check fetches the latest release. Versions that are not valid semver
// never report an update.
func (c *Checker) Check(ctx context.Context, current string) (*CheckResult, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", strings.TrimRight(c.apiURL, "/"), c.owner, c.repo)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	tag := gjson.GetBytes(body, "tag_name").String()
	if tag == "" {
		return nil, fmt.Errorf("release response has no tag_name")
	}

	res := &CheckResult{
		Current: current,
		Latest:  Release{Tag: tag, URL: gjson.GetBytes(body, "html_url").String()},
	}
	cur, latest := canonical(current), canonical(tag)
	res.UpdateAvailable = semver.IsValid(cur) && semver.IsValid(latest) && semver.Compare(latest, cur) > 0
	return res, nil
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

func (c *Checker) releaseURL(tag, file string) string {
	return fmt.Sprintf("%s/%s/%s/releases/download/%s/%s",
		strings.TrimRight(c.downloadURL, "/"), c.owner, c.repo, tag, file)
}

func (c *Checker) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
