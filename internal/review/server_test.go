package review_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"voicetag/internal/review"
	"voicetag/internal/testsupport"
)

func newTestServer(t *testing.T) (*review.Server, *httptest.Server, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	srv := review.NewServer(cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	video := filepath.Join(testsupport.BaseDir(cfg), "meeting.mp4")
	testsupport.WriteFile(t, video, "video")
	return srv, ts, video
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func loadSession(t *testing.T, ts *httptest.Server, video string) []review.Segment {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/session/video", map[string]string{"path": video})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load video status %d", resp.StatusCode)
	}

	segmentsFile := filepath.Join(filepath.Dir(video), "engine.json")
	payload := `{"segments":[
        {"start": 0.0, "end": 2.5, "text": "hello there"},
        {"start": 2.5, "end": 4.0, "text": "goodbye now"}
    ]}`
	testsupport.WriteFile(t, segmentsFile, payload)

	resp = postJSON(t, ts.URL+"/api/session/segments", map[string]string{"path": segmentsFile})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load segments status %d", resp.StatusCode)
	}
	return decode[[]review.Segment](t, resp)
}

func TestLoadVideoRequiredBeforeSegments(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/session/segments", map[string]string{"path": "whatever.json"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without a loaded video, got %d", resp.StatusCode)
	}
}

func TestLoadVideoRejectsMissingFile(t *testing.T) {
	_, ts, video := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/session/video", map[string]string{"path": video + ".missing"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing video, got %d", resp.StatusCode)
	}
}

func TestSessionSegmentLifecycle(t *testing.T) {
	_, ts, video := newTestServer(t)
	imported := loadSession(t, ts, video)
	if len(imported) != 2 {
		t.Fatalf("expected 2 imported segments, got %d", len(imported))
	}
	if imported[0].ID == "" || imported[0].ID == imported[1].ID {
		t.Fatalf("imported segments need distinct ids: %+v", imported)
	}

	// Label the first segment.
	update := map[string]string{"speaker": "alice"}
	req, err := http.NewRequest(http.MethodPatch,
		ts.URL+"/api/segments/"+imported[0].ID, bytes.NewReader(mustJSON(t, update)))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("patch segment: %v", err)
	}
	defer resp.Body.Close()
	updated := decode[review.Segment](t, resp)
	if updated.Speaker != "alice" {
		t.Fatalf("speaker not updated: %+v", updated)
	}

	// Delete the second segment.
	del, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/segments/"+imported[1].ID, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	delResp, err := http.DefaultClient.Do(del)
	if err != nil {
		t.Fatalf("delete segment: %v", err)
	}
	delResp.Body.Close()

	listResp, err := http.Get(ts.URL + "/api/segments")
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	defer listResp.Body.Close()
	remaining := decode[[]review.Segment](t, listResp)
	if len(remaining) != 1 || remaining[0].Speaker != "alice" {
		t.Fatalf("unexpected remaining segments: %+v", remaining)
	}
}

func TestNewVideoLoadClearsSegments(t *testing.T) {
	srv, ts, video := newTestServer(t)
	loadSession(t, ts, video)
	if len(srv.Session().Segments()) == 0 {
		t.Fatal("segments should be loaded")
	}

	resp := postJSON(t, ts.URL+"/api/session/video", map[string]string{"path": video})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reload video status %d", resp.StatusCode)
	}
	if len(srv.Session().Segments()) != 0 {
		t.Fatal("loading a video must clear the segment list")
	}
}

func TestExportSortedByStart(t *testing.T) {
	_, ts, video := newTestServer(t)
	loadSession(t, ts, video)

	// Add a segment that starts before the imported ones.
	resp := postJSON(t, ts.URL+"/api/segments", review.Segment{
		StartTime: -1, EndTime: 0, Speaker: "bob",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add segment status %d", resp.StatusCode)
	}

	exportResp, err := http.Get(ts.URL + "/api/export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer exportResp.Body.Close()
	labels := decode[[]review.ExportLabel](t, exportResp)
	if len(labels) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(labels))
	}
	if labels[0].Speaker != "bob" {
		t.Fatalf("export not sorted by start time: %+v", labels)
	}
}

func TestSaveAndReloadLabels(t *testing.T) {
	srv, ts, video := newTestServer(t)
	imported := loadSession(t, ts, video)

	if _, err := srv.Session().SetSpeaker(imported[0].ID, "alice"); err != nil {
		t.Fatalf("set speaker: %v", err)
	}

	saveResp := postJSON(t, ts.URL+"/api/labels/save", map[string]string{"filename": "round.json"})
	if saveResp.StatusCode != http.StatusOK {
		t.Fatalf("save labels status %d", saveResp.StatusCode)
	}
	saved := decode[map[string]string](t, saveResp)

	// Wipe the session, then load the saved file back.
	postJSON(t, ts.URL+"/api/session/video", map[string]string{"path": video})
	loadResp := postJSON(t, ts.URL+"/api/labels/load", map[string]string{"path": saved["path"]})
	if loadResp.StatusCode != http.StatusOK {
		t.Fatalf("load labels status %d", loadResp.StatusCode)
	}
	restored := decode[[]review.Segment](t, loadResp)
	if len(restored) != 2 || restored[0].Speaker != "alice" {
		t.Fatalf("labels did not round trip: %+v", restored)
	}
}

func TestSaveLabelsRejectsPathTraversal(t *testing.T) {
	_, ts, video := newTestServer(t)
	loadSession(t, ts, video)

	resp := postJSON(t, ts.URL+"/api/labels/save", map[string]string{"filename": "../escape.json"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for traversal filename, got %d", resp.StatusCode)
	}
}

func TestSpeakersEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/speakers")
	if err != nil {
		t.Fatalf("get speakers: %v", err)
	}
	defer resp.Body.Close()
	speakers := decode[[]string](t, resp)
	if fmt.Sprint(speakers) != fmt.Sprint([]string{"alice", "bob"}) {
		t.Fatalf("unexpected speakers: %v", speakers)
	}
}

func mustJSON(t *testing.T, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
