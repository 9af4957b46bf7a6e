package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"
)

const (
	opStrapiNew       = "strapi.new"
	opStrapiList      = "strapi.list"
	opStrapiGet       = "strapi.get"
	opStrapiGetBySlug = "strapi.get_by_slug"
	opStrapiCreate    = "strapi.create"
	opStrapiUpdate    = "strapi.update"
	opStrapiDelete    = "strapi.delete"
	opStrapiPublish   = "strapi.publish"
	opStrapiUnpublish = "strapi.unpublish"

	strapiPagesPath       = "/api/pages"
	strapiListPageSize    = 100
	defaultStrapiTimeout  = 10 * time.Second
	defaultStrapiRate     = 10
	defaultStrapiBurst    = 5
	maxStrapiErrorPayload = 4096
)

var (
	errInvalidStrapiURL = errors.New("strapi base url must be absolute")
	// ErrRemoteStatus indicates that the CMS answered with a non-success status.
	ErrRemoteStatus = errors.New("gateway: unexpected remote status")
)

// StrapiConfig describes a client for a Strapi v4 "pages" collection.
type StrapiConfig struct {
	BaseURL    string
	APIToken   string
	HTTPClient *http.Client
	Timeout    time.Duration
	// RequestsPerSecond throttles outgoing calls; zero selects the default.
	RequestsPerSecond float64
	Burst             int
	Clock             func() time.Time
	Logger            *zap.Logger
}

// Strapi talks to the Strapi REST API and maps its {id, attributes} envelope onto pages.
type Strapi struct {
	baseURL  *url.URL
	apiToken string
	client   *http.Client
	limiter  *rate.Limiter
	clock    func() time.Time
	logger   *zap.Logger
}

type strapiAttributes struct {
	Title       string           `json:"title"`
	Slug        string           `json:"slug"`
	Blocks      []pages.Block    `json:"blocks"`
	Status      pages.PageStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	PublishedAt *time.Time       `json:"publishedAt"`
}

type strapiEntry struct {
	ID         int64            `json:"id"`
	Attributes strapiAttributes `json:"attributes"`
}

type strapiPagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

type strapiMeta struct {
	Pagination *strapiPagination `json:"pagination,omitempty"`
}

type strapiSingle struct {
	Data *strapiEntry `json:"data"`
}

type strapiCollection struct {
	Data []strapiEntry `json:"data"`
	Meta strapiMeta    `json:"meta"`
}

type strapiRequest struct {
	Data map[string]any `json:"data"`
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v: %d %s", ErrRemoteStatus, e.status, e.body)
}

func (e *statusError) Unwrap() error {
	return ErrRemoteStatus
}

// NewStrapi validates the base URL and builds a throttled client.
func NewStrapi(cfg StrapiConfig) (*Strapi, error) {
	baseURL, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || !baseURL.IsAbs() || baseURL.Host == "" {
		if err == nil {
			err = errInvalidStrapiURL
		}
		return nil, newError(opStrapiNew, "invalid_url", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultStrapiTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	requestsPerSecond := cfg.RequestsPerSecond
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultStrapiRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultStrapiBurst
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Strapi{
		baseURL:  baseURL,
		apiToken: cfg.APIToken,
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		clock:    clock,
		logger:   logger,
	}, nil
}

func (s *Strapi) List(ctx context.Context) ([]pages.Page, error) {
	var out []pages.Page
	for pageNumber := 1; ; pageNumber++ {
		query := url.Values{}
		query.Set("pagination[page]", strconv.Itoa(pageNumber))
		query.Set("pagination[pageSize]", strconv.Itoa(strapiListPageSize))
		var response strapiCollection
		if err := s.do(ctx, http.MethodGet, strapiPagesPath, query, nil, &response); err != nil {
			return nil, s.fail(opStrapiList, "", err)
		}
		for _, entry := range response.Data {
			out = append(out, entry.page())
		}
		pagination := response.Meta.Pagination
		if pagination == nil || pagination.PageCount <= pageNumber || len(response.Data) == 0 {
			break
		}
	}
	if out == nil {
		out = []pages.Page{}
	}
	return out, nil
}

func (s *Strapi) Get(ctx context.Context, id string) (pages.Page, error) {
	return s.single(ctx, opStrapiGet, http.MethodGet, id, nil)
}

func (s *Strapi) GetBySlug(ctx context.Context, slug string) (pages.Page, error) {
	query := url.Values{}
	query.Set("filters[slug][$eq]", slug)
	var response strapiCollection
	if err := s.do(ctx, http.MethodGet, strapiPagesPath, query, nil, &response); err != nil {
		return pages.Page{}, s.fail(opStrapiGetBySlug, slug, err)
	}
	if len(response.Data) == 0 {
		return pages.Page{}, notFound(opStrapiGetBySlug, slug)
	}
	return response.Data[0].page(), nil
}

func (s *Strapi) Create(ctx context.Context, draft PageDraft) (pages.Page, error) {
	prepared, err := newPageFromDraft("", draft, s.now())
	if err != nil {
		return pages.Page{}, newError(opStrapiCreate, "invalid_draft", err)
	}
	body := strapiRequest{Data: map[string]any{
		"title":  prepared.Title,
		"slug":   prepared.Slug,
		"blocks": prepared.Blocks,
		"status": prepared.Status,
	}}
	var response strapiSingle
	if err := s.do(ctx, http.MethodPost, strapiPagesPath, nil, body, &response); err != nil {
		return pages.Page{}, s.fail(opStrapiCreate, "", err)
	}
	if response.Data == nil {
		return pages.Page{}, newError(opStrapiCreate, "empty_response", ErrRemoteStatus)
	}
	return response.Data.page(), nil
}

func (s *Strapi) Update(ctx context.Context, id string, patch PagePatch) (pages.Page, error) {
	fields := map[string]any{}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Slug != nil {
		fields["slug"] = *patch.Slug
	}
	if patch.Blocks != nil {
		fields["blocks"] = normalizeBlocks(patch.Blocks)
	}
	if patch.Status != nil {
		status, err := pages.ParseStatus(string(*patch.Status))
		if err != nil {
			return pages.Page{}, newError(opStrapiUpdate, "invalid_patch", err)
		}
		fields["status"] = status
	}
	return s.single(ctx, opStrapiUpdate, http.MethodPut, id, strapiRequest{Data: fields})
}

func (s *Strapi) Delete(ctx context.Context, id string) error {
	if err := s.do(ctx, http.MethodDelete, s.entryPath(id), nil, nil, nil); err != nil {
		return s.fail(opStrapiDelete, id, err)
	}
	return nil
}

func (s *Strapi) Publish(ctx context.Context, id string) (pages.Page, error) {
	body := strapiRequest{Data: map[string]any{
		"status":      pages.PageStatusPublished,
		"publishedAt": s.now().Format(time.RFC3339Nano),
	}}
	return s.single(ctx, opStrapiPublish, http.MethodPut, id, body)
}

func (s *Strapi) Unpublish(ctx context.Context, id string) (pages.Page, error) {
	body := strapiRequest{Data: map[string]any{
		"status":      pages.PageStatusDraft,
		"publishedAt": nil,
	}}
	return s.single(ctx, opStrapiUnpublish, http.MethodPut, id, body)
}

func (s *Strapi) single(ctx context.Context, operation, method, id string, body any) (pages.Page, error) {
	var response strapiSingle
	if err := s.do(ctx, method, s.entryPath(id), nil, body, &response); err != nil {
		return pages.Page{}, s.fail(operation, id, err)
	}
	if response.Data == nil {
		return pages.Page{}, notFound(operation, id)
	}
	return response.Data.page(), nil
}

func (s *Strapi) entryPath(id string) string {
	return strapiPagesPath + "/" + url.PathEscape(id)
}

func (s *Strapi) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	target := *s.baseURL
	target.Path = strings.TrimRight(target.Path, "/") + path
	if query != nil {
		target.RawQuery = query.Encode()
	}

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, target.String(), payload)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if s.apiToken != "" {
		request.Header.Set("Authorization", "Bearer "+s.apiToken)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return ErrPageNotFound
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(response.Body, maxStrapiErrorPayload))
		return &statusError{status: response.StatusCode, body: strings.TrimSpace(string(excerpt))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	return json.NewDecoder(response.Body).Decode(out)
}

// fail maps transport errors onto coded gateway errors.
func (s *Strapi) fail(operation, key string, err error) error {
	if errors.Is(err, ErrPageNotFound) {
		return notFound(operation, key)
	}
	reason := "request_failed"
	var remote *statusError
	if errors.As(err, &remote) {
		reason = "remote_status"
	} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		reason = "canceled"
	}
	logError(s.logger, operation, reason, err, zap.String("key", key))
	return newError(operation, reason, err)
}

func (s *Strapi) now() time.Time {
	return s.clock().UTC()
}

func (e strapiEntry) page() pages.Page {
	status := e.Attributes.Status
	if status == "" {
		status = pages.PageStatusDraft
	}
	blocks := e.Attributes.Blocks
	if blocks == nil {
		blocks = []pages.Block{}
	}
	return pages.Page{
		ID:          strconv.FormatInt(e.ID, 10),
		Title:       e.Attributes.Title,
		Slug:        e.Attributes.Slug,
		Blocks:      normalizeBlocks(blocks),
		CreatedAt:   e.Attributes.CreatedAt.UTC(),
		UpdatedAt:   e.Attributes.UpdatedAt.UTC(),
		PublishedAt: e.Attributes.PublishedAt,
		Status:      status,
	}
}
