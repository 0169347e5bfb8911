package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAppend(t *testing.T) {
	var got struct {
		ItemIDs []int64 `json:"item_ids"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/products/deltas" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"accepted","request_id":"r-1","accepted":2,"pending":2}`))
	}))
	defer server.Close()

	out, err := runCmd(t, "append", "--url", server.URL, "7", "9")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(got.ItemIDs) != 2 || got.ItemIDs[0] != 7 || got.ItemIDs[1] != 9 {
		t.Errorf("posted ids = %v, want [7 9]", got.ItemIDs)
	}
	if !strings.Contains(out, "accepted 2 item(s)") {
		t.Errorf("output = %q", out)
	}
}

func TestAppendRejectsBadID(t *testing.T) {
	for _, arg := range []string{"abc", "0", "-3"} {
		if _, err := runCmd(t, "append", "--url", "http://127.0.0.1:1", "--", arg); err == nil {
			t.Errorf("append %q: expected error", arg)
		}
	}
}

func TestPollOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current_page":1,"last_page":1,"page_size":100,"total_count":2,"max_id":5,
			"products":[{"entity_id":3,"type":"simple","sku":"A"},{"entity_id":4,"type":"simple","sku":"B"}]}`))
	}))
	defer server.Close()

	out, err := runCmd(t, "poll", "--once", "--url", server.URL)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), out)
	}
	if !strings.Contains(lines[0], `"entity_id":3`) || !strings.Contains(lines[1], `"entity_id":4`) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, `"version"`) {
		t.Errorf("output = %q", out)
	}
}
