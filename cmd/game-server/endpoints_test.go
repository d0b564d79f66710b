package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-werewolf/internal/config"
	"ai-werewolf/internal/testutil"
)

func TestGameStateEndpointVersioning(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	srv := httptest.NewServer(newRouter(st, config.AppConfig{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/game-state")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var getOut struct {
		OK   bool            `json:"ok"`
		Data json.RawMessage `json:"data"`
	}
	decodeBody(t, resp, &getOut)
	if !getOut.OK || string(getOut.Data) != "null" {
		t.Fatalf("empty get = %+v", getOut)
	}

	put := func(version int64, state string) *http.Response {
		body, _ := json.Marshal(map[string]any{"version": version, "state": json.RawMessage(state)})
		req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/game-state", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("put: %v", err)
		}
		return resp
	}

	resp = put(0, `{"day":1}`)
	var putOut struct {
		OK      bool  `json:"ok"`
		Version int64 `json:"version"`
	}
	decodeBody(t, resp, &putOut)
	if !putOut.OK || putOut.Version != 1 {
		t.Fatalf("first put = %+v", putOut)
	}

	resp = put(0, `{"day":9}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("stale put status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = put(1, `{"day":2}`)
	decodeBody(t, resp, &putOut)
	if putOut.Version != 2 {
		t.Fatalf("second put = %+v", putOut)
	}
}

func TestGameHistoryEndpoints(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	srv := httptest.NewServer(newRouter(st, config.AppConfig{}))
	defer srv.Close()

	body := []byte(`{"status":"in_progress","state":{"phase":"NIGHT"}}`)
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/game-history/g1", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/game-history")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var listOut struct {
		OK    bool `json:"ok"`
		Items []struct {
			GameID string `json:"gameId"`
			Status string `json:"status"`
		} `json:"items"`
	}
	decodeBody(t, resp, &listOut)
	if len(listOut.Items) != 1 || listOut.Items[0].GameID != "g1" {
		t.Fatalf("list = %+v", listOut)
	}

	// Invalid status rejected.
	req, _ = http.NewRequest(http.MethodPut, srv.URL+"/api/game-history/g1", bytes.NewReader([]byte(`{"status":"broken"}`)))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put invalid: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid status code = %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/game-history/g1", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/game-history/g1")
	if err != nil {
		t.Fatalf("get deleted: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
