package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/timmy/nlsql-console/internal/domain"
)

func TestBackendClient_ProcessMetadata(t *testing.T) {
	var gotFields map[string]string
	var gotFiles map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/metadata/process" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotFields = map[string]string{
			"db_key":       r.FormValue("db_key"),
			"database_sid": r.FormValue("database_sid"),
			"schema_name":  r.FormValue("schema_name"),
		}
		gotFiles = map[string]string{}
		for field, headers := range r.MultipartForm.File {
			f, _ := headers[0].Open()
			body, _ := io.ReadAll(f)
			f.Close()
			gotFiles[field] = headers[0].Filename + ":" + string(body)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":          true,
			"tables_processed": 42,
			"database_sid":     "ORCL",
			"schema_name":      "HR",
		})
	}))
	defer srv.Close()

	client := NewBackendClient(&BackendConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	inputs := map[domain.InputSlotID]domain.FileHandle{
		"table_metadata":     &memHandle{name: "tables.csv", body: "t\n"},
		"column_definitions": &memHandle{name: "columns.csv", body: "c\n"},
	}

	result, err := client.ProcessMetadata(context.Background(), domain.TargetRef{SourceID: "ORCL", Namespace: "HR"}, inputs)
	if err != nil {
		t.Fatalf("ProcessMetadata failed: %v", err)
	}
	if !result.Success || result.TablesProcessed != 42 {
		t.Errorf("unexpected result %+v", result)
	}
	if gotFields["db_key"] != "ORCL" || gotFields["database_sid"] != "ORCL" || gotFields["schema_name"] != "HR" {
		t.Errorf("unexpected form fields %v", gotFields)
	}
	if gotFiles["table_metadata"] != "tables.csv:t\n" || gotFiles["column_definitions"] != "columns.csv:c\n" {
		t.Errorf("unexpected files %v", gotFiles)
	}
}

func TestBackendClient_ProcessMetadataFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantResult bool
	}{
		{"success false", http.StatusOK, `{"success":false,"error":"schema lookup failed"}`, "schema lookup failed", true},
		{"success false without text", http.StatusOK, `{"success":false}`, "metadata processing failed", true},
		{"detail", http.StatusBadRequest, `{"detail":"Database not registered: ORCL"}`, "Database not registered: ORCL", false},
		{"no detail", http.StatusBadGateway, `oops`, "metadata process API error: status 502", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client := NewBackendClient(&BackendConfig{BaseURL: srv.URL})
			result, err := client.ProcessMetadata(context.Background(), domain.TargetRef{SourceID: "ORCL", Namespace: "HR"},
				map[domain.InputSlotID]domain.FileHandle{"table_metadata": &memHandle{name: "t.csv", body: "t\n"}})

			var backendErr *BackendError
			if !errors.As(err, &backendErr) {
				t.Fatalf("expected *BackendError, got %v", err)
			}
			if backendErr.Message != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, backendErr.Message)
			}
			if backendErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, backendErr.StatusCode)
			}
			if (result != nil) != tt.wantResult {
				t.Errorf("unexpected result %+v", result)
			}
		})
	}
}

func TestBackendClient_ListDatabases(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/databases/list" {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"detail":"not found"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"databases":[{"database_sid":"ORCL","schema_name":"HR","host":"db","port":1521,"is_connected":true,"table_count":12}],"total_count":1}`)
	}))
	defer srv.Close()

	client := NewBackendClient(&BackendConfig{BaseURL: srv.URL})
	dbs, err := client.ListDatabases(context.Background())
	if err != nil {
		t.Fatalf("ListDatabases failed: %v", err)
	}
	if len(dbs) != 1 || dbs[0].DatabaseSID != "ORCL" || dbs[0].TableCount != 12 || !dbs[0].IsConnected {
		t.Fatalf("unexpected databases %+v", dbs)
	}
	if dbs[0].Target().Key() != "ORCL:HR" {
		t.Errorf("unexpected target key %s", dbs[0].Target().Key())
	}

	bad := NewBackendClient(&BackendConfig{BaseURL: srv.URL + "/missing"})
	if _, err := bad.ListDatabases(context.Background()); err == nil {
		t.Error("expected error for non-200 response")
	}
}
