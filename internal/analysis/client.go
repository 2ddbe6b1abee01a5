// Package analysis is the HTTP client for the remote analysis service.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// TokenSource supplies the bearer credential for each request. Token
// acquisition and refresh live with the auth collaborator, not here.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed-credential TokenSource for CLIs and tests.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *zap.SugaredLogger
}

func New(baseURL string, tokens TokenSource, timeout time.Duration, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     log,
	}
}

// errorEnvelope is the service's error body. Older endpoints use a bare
// detail string.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return serviceError(0, CodeUnavailable, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return serviceError(resp.StatusCode, CodeUnavailable, err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env errorEnvelope
		_ = json.Unmarshal(raw, &env)
		message := env.Error.Message
		if message == "" {
			message = env.Detail
		}
		if message == "" {
			message = truncate(string(raw), 200)
		}
		return classify(resp.StatusCode, env.Error.Code, message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return serviceError(resp.StatusCode, CodeBadResponse, fmt.Sprintf("decode response: %v", err))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json", out)
}

// decodeRecord normalizes a wire record. Parse anomalies in the list
// fields degrade to empty lists and a logged warning, never an error.
func (c *Client) decodeRecord(w documentRecordWire) DocumentRecord {
	rec := DocumentRecord{
		ID:           w.id(),
		Filename:     w.Filename,
		CollectionID: w.CollectionID,
		Summary:      w.Summary,
		FullText:     w.FullText,
		CreatedAt:    w.CreatedAt,
	}
	rec.KeyPoints = c.decodeList(w.id(), "key_points", w.KeyPoints)
	rec.RiskFlags = c.decodeList(w.id(), "risk_flags", w.RiskFlags)
	rec.KeyConcepts = c.decodeList(w.id(), "key_concepts", w.KeyConcepts)
	return rec
}

func (c *Client) decodeList(id, field string, raw json.RawMessage) []string {
	list, err := decodeStringList(raw)
	if err != nil {
		c.log.Warnw("analysis: malformed list field", "document", id, "field", field, "err", err)
		return []string{}
	}
	if list == nil {
		return []string{}
	}
	return list
}

// UploadDocument streams a file to the service and returns the analyzed
// record. collectionID may be empty for standalone uploads.
func (c *Client) UploadDocument(ctx context.Context, path, filename, collectionID string) (DocumentRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if filename == "" {
		filename = filepath.Base(path)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return DocumentRecord{}, fmt.Errorf("read %s: %w", path, err)
	}
	if collectionID != "" {
		if err := writer.WriteField("collection_id", collectionID); err != nil {
			return DocumentRecord{}, fmt.Errorf("write collection field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return DocumentRecord{}, fmt.Errorf("close multipart body: %w", err)
	}

	var wire documentRecordWire
	if err := c.do(ctx, http.MethodPost, "/api/documents", &buf, writer.FormDataContentType(), &wire); err != nil {
		return DocumentRecord{}, err
	}
	return c.decodeRecord(wire), nil
}

// AnalyzeText submits pasted text for analysis.
func (c *Client) AnalyzeText(ctx context.Context, text, collectionID string) (DocumentRecord, error) {
	in := map[string]string{"text": text}
	if collectionID != "" {
		in["collection_id"] = collectionID
	}
	var wire documentRecordWire
	if err := c.postJSON(ctx, "/api/analyze-text", in, &wire); err != nil {
		return DocumentRecord{}, err
	}
	return c.decodeRecord(wire), nil
}

// ListDocuments returns previously analyzed documents, newest first.
func (c *Client) ListDocuments(ctx context.Context, page Page) ([]DocumentSummary, error) {
	var out struct {
		Documents []DocumentSummary `json:"documents"`
	}
	if err := c.getJSON(ctx, "/api/documents"+pageQuery(page), &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

// GetDocument fetches the full record for one document.
func (c *Client) GetDocument(ctx context.Context, id string) (DocumentRecord, error) {
	var wire documentRecordWire
	if err := c.getJSON(ctx, "/api/documents/"+url.PathEscape(id), &wire); err != nil {
		return DocumentRecord{}, err
	}
	return c.decodeRecord(wire), nil
}

// CreateCollection registers a named collection and returns its server id.
func (c *Client) CreateCollection(ctx context.Context, name string) (CollectionInfo, error) {
	var out CollectionInfo
	if err := c.postJSON(ctx, "/api/collections", map[string]string{"name": name}, &out); err != nil {
		return CollectionInfo{}, err
	}
	return out, nil
}

// GetCollection fetches a collection with its full member records.
func (c *Client) GetCollection(ctx context.Context, id string) (CollectionDetail, error) {
	var out struct {
		ID        string               `json:"id"`
		Name      string               `json:"name"`
		Documents []documentRecordWire `json:"documents"`
	}
	if err := c.getJSON(ctx, "/api/collections/"+url.PathEscape(id), &out); err != nil {
		return CollectionDetail{}, err
	}
	detail := CollectionDetail{ID: out.ID, Name: out.Name}
	for _, wire := range out.Documents {
		detail.Documents = append(detail.Documents, c.decodeRecord(wire))
	}
	return detail, nil
}

// ListCollections returns collection summaries.
func (c *Client) ListCollections(ctx context.Context, page Page) ([]CollectionInfo, error) {
	var out struct {
		Collections []CollectionInfo `json:"collections"`
	}
	if err := c.getJSON(ctx, "/api/collections"+pageQuery(page), &out); err != nil {
		return nil, err
	}
	return out.Collections, nil
}

// RefreshUsageQuota pokes the server-side quota recount. Fire-and-forget
// by contract; callers ignore the error beyond logging.
func (c *Client) RefreshUsageQuota(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/usage/refresh", nil, "", nil)
}

func pageQuery(page Page) string {
	values := url.Values{}
	if page.Limit > 0 {
		values.Set("limit", strconv.Itoa(page.Limit))
	}
	if page.Offset > 0 {
		values.Set("offset", strconv.Itoa(page.Offset))
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}
