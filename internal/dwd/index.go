package dwd

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// archiveName matches the observation archives this service ingests: the
// recent daily climate zips and the near-real-time ten-minute temperature
// zips.
var archiveName = regexp.MustCompile(`^(?:tageswerte_KL_(\d+)_akt|10minutenwerte_TU_(\d+)_(?:now|akt))\.zip$`)

// productName matches the observation file inside an archive.
var productName = regexp.MustCompile(`^produkt_(?:klima_tag|zehn_(?:now|akt)_tu)_\d+_\d+_\d+\.txt$`)

// ErrNoProductFile is returned when an archive holds no observation file.
var ErrNoProductFile = errors.New("archive contains no product file")

// IndexClient lists and downloads observation archives from one open-data
// directory, e.g. .../climate/daily/kl/recent/.
type IndexClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewIndexClient creates a client for a single open-data directory index.
func NewIndexClient(baseURL string, timeout time.Duration, logger *slog.Logger) *IndexClient {
	return &IndexClient{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ListArchives scrapes the directory index and returns the archive names
// found there, sorted ascending.
func (c *IndexClient) ListArchives(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch index %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch index %s: status %d", c.baseURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse index %s: %w", c.baseURL, err)
	}

	var names []string
	doc.Find("a").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		if archiveName.MatchString(href) {
			names = append(names, href)
		}
	})
	sort.Strings(names)

	c.logger.Debug("listed archives", "index", c.baseURL, "count", len(names))
	return names, nil
}

// FetchArchive downloads one archive by name.
func (c *IndexClient) FetchArchive(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+name, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch archive %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch archive %s: status %d", name, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", name, err)
	}
	return data, nil
}

// IsDailyArchive reports whether name is a recent daily-climate archive.
func IsDailyArchive(name string) bool {
	return strings.HasPrefix(name, "tageswerte_KL_") && archiveName.MatchString(name)
}

// IsTenMinuteArchive reports whether name is a ten-minute temperature
// archive.
func IsTenMinuteArchive(name string) bool {
	return strings.HasPrefix(name, "10minutenwerte_TU_") && archiveName.MatchString(name)
}

// StationIDFromArchive extracts the normalized station id from an archive
// name, or "" when the name is not an observation archive.
func StationIDFromArchive(name string) string {
	m := archiveName.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	for _, group := range m[1:] {
		if group != "" {
			return NormalizeStationID(group)
		}
	}
	return ""
}

// OpenProduct finds the observation file inside a downloaded archive and
// opens it for reading.
func OpenProduct(archive []byte) (io.ReadCloser, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	for _, f := range zr.File {
		if productName.MatchString(f.Name) {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open product %s: %w", f.Name, err)
			}
			return rc, nil
		}
	}
	return nil, ErrNoProductFile
}
