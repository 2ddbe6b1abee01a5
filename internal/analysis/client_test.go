package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, StaticToken("test-token"), 5*time.Second, zap.NewNop().Sugar())
}

func TestGetDocumentSendsBearerToken(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer header, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"document_id": "d1"})
	})

	if _, err := client.GetDocument(context.Background(), "d1"); err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
}

func TestGetDocumentNormalizesFlexibleShapes(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		// key_points as a JSON-encoded string, risk_flags structured,
		// key_concepts malformed.
		_, _ = io.WriteString(w, `{
			"document_id": "d1",
			"filename": "lease.pdf",
			"key_points": "[\"a\",\"b\"]",
			"risk_flags": ["r1"],
			"key_concepts": "not a list"
		}`)
	})

	rec, err := client.GetDocument(context.Background(), "d1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if len(rec.KeyPoints) != 2 || rec.KeyPoints[0] != "a" || rec.KeyPoints[1] != "b" {
		t.Errorf("encoded-string key_points not normalized: %v", rec.KeyPoints)
	}
	if len(rec.RiskFlags) != 1 || rec.RiskFlags[0] != "r1" {
		t.Errorf("structured risk_flags mangled: %v", rec.RiskFlags)
	}
	if rec.KeyConcepts == nil || len(rec.KeyConcepts) != 0 {
		t.Errorf("malformed key_concepts should degrade to empty list, got %v", rec.KeyConcepts)
	}
}

func TestUploadDocumentMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documents" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("collection_id"); got != "col-1" {
			t.Errorf("expected collection_id col-1, got %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "report.pdf" {
			t.Errorf("expected filename report.pdf, got %q", header.Filename)
		}
		body, _ := io.ReadAll(file)
		if string(body) != "%PDF-1.4 fake" {
			t.Errorf("file bytes mangled: %q", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"document_id": "srv-1", "summary": "ok"})
	})

	rec, err := client.UploadDocument(context.Background(), path, "report.pdf", "col-1")
	if err != nil {
		t.Fatalf("UploadDocument failed: %v", err)
	}
	if rec.ID != "srv-1" || rec.Summary != "ok" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestAnalyzeTextBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if in["text"] != "some clause" {
			t.Errorf("text not carried: %q", in["text"])
		}
		if _, ok := in["collection_id"]; ok {
			t.Errorf("empty collection id should be omitted")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"document_id": "srv-2"})
	})

	rec, err := client.AnalyzeText(context.Background(), "some clause", "")
	if err != nil {
		t.Fatalf("AnalyzeText failed: %v", err)
	}
	if rec.ID != "srv-2" {
		t.Errorf("unexpected record id %q", rec.ID)
	}
}

func TestListDocumentsPagination(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "10" || r.URL.Query().Get("offset") != "20" {
			t.Errorf("pagination not forwarded: %s", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `{"documents":[{"document_id":"d1","filename":"a.pdf"}]}`)
	})

	docs, err := client.ListDocuments(context.Background(), Page{Limit: 10, Offset: 20})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "d1" {
		t.Errorf("unexpected documents: %+v", docs)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   ErrorCode
	}{
		{"unauthorized", 401, `{"detail":"expired"}`, CodeUnauthorized},
		{"forbidden", 403, `{"detail":"not yours"}`, CodeForbidden},
		{"rate limited", 429, `{}`, CodeUploadLimit},
		{"server error", 500, `oops`, CodeUnavailable},
		{"upload limit envelope", 400, `{"error":{"code":"upload_limit_exceeded","message":"limit reached"}}`, CodeUploadLimit},
		{"chat limit envelope", 400, `{"error":{"code":"chat_limit","message":"chat limit"}}`, CodeChatLimit},
		{"token limit envelope", 400, `{"error":{"code":"token_limit","message":"too long"}}`, CodeTokenLimit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			_, err := client.GetDocument(context.Background(), "d1")
			var svcErr *ServiceError
			if !errors.As(err, &svcErr) {
				t.Fatalf("expected *ServiceError, got %v", err)
			}
			if svcErr.Code != tc.want {
				t.Errorf("expected code %s, got %s", tc.want, svcErr.Code)
			}
			if svcErr.Status != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, svcErr.Status)
			}
		})
	}
}

func TestQuotaLimited(t *testing.T) {
	if !(&ServiceError{Code: CodeUploadLimit}).QuotaLimited() {
		t.Errorf("upload-limit should be quota limited")
	}
	if (&ServiceError{Code: CodeForbidden}).QuotaLimited() {
		t.Errorf("forbidden is not quota limited")
	}
}

func TestMalformedSuccessBodyIsBadResponse(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json at all`)
	})

	_, err := client.GetDocument(context.Background(), "d1")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != CodeBadResponse {
		t.Errorf("expected bad-response, got %v", err)
	}
}

func TestDecodeStringList(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{"structured", `["a","b"]`, []string{"a", "b"}, false},
		{"encoded string", `"[\"a\",\"b\"]"`, []string{"a", "b"}, false},
		{"empty string", `""`, nil, false},
		{"null", `null`, nil, false},
		{"number", `42`, nil, true},
		{"garbage string", `"not a list"`, nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeStringList(json.RawMessage(tc.raw))
			if tc.wantErr != (err != nil) {
				t.Fatalf("error mismatch: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}
