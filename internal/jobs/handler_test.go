package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"tutorial-backend/internal/pipeline"
)

func newTestRouter(svc *Service, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Next()
	})
	api := r.Group("/api/v1")
	NewHandler(svc).RegisterRoutes(api)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitEndpointAccepted(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	r := newTestRouter(svc, "user-1")

	w := doRequest(t, r, http.MethodPost, "/api/v1/generate", gin.H{
		"repoRef": "github.com/demo/repo",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if id, _ := resp["jobId"].(string); id == "" || resp["status"] != StatusQueued {
		t.Fatalf("unexpected response %v", resp)
	}
}

func TestSubmitEndpointRejectsMissingRepoRef(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	r := newTestRouter(svc, "user-1")

	w := doRequest(t, r, http.MethodPost, "/api/v1/generate", gin.H{"language": "english"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "validation_error") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGetJobEndpoint(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: testRepoDir(t)})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Run(context.Background(), job.ID); err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(svc, "user-1")

	w := doRequest(t, r, http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != StatusCompleted {
		t.Errorf("status = %v", resp["status"])
	}
	if resp["progress"].(float64) != 100 {
		t.Errorf("progress = %v", resp["progress"])
	}
	logs, ok := resp["logs"].([]any)
	if !ok || len(logs) == 0 {
		t.Error("logs missing from job view")
	}
	if _, ok := resp["result"]; !ok {
		t.Error("completed job view missing result")
	}
}

func TestGetJobEndpointOwnerMismatch(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: "github.com/demo/repo"})
	if err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(svc, "user-2")

	w := doRequest(t, r, http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestListJobsEndpoint(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	for i := 0; i < 3; i++ {
		if _, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: "github.com/demo/repo"}); err != nil {
			t.Fatal(err)
		}
	}
	r := newTestRouter(svc, "user-1")

	w := doRequest(t, r, http.MethodGet, "/api/v1/jobs?limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(resp))
	}
}

func TestArtifactEndpointNotReady(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: "github.com/demo/repo"})
	if err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(svc, "user-1")

	w := doRequest(t, r, http.MethodGet, "/api/v1/jobs/"+job.ID+"/artifact", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "not_ready") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestArtifactEndpointCompleted(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: testRepoDir(t)})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Run(context.Background(), job.ID); err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(svc, "user-1")

	w := doRequest(t, r, http.MethodGet, "/api/v1/jobs/"+job.ID+"/artifact", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var artifact pipeline.Artifact
	if err := json.Unmarshal(w.Body.Bytes(), &artifact); err != nil {
		t.Fatal(err)
	}
	if len(artifact.Chapters) != 2 {
		t.Fatalf("chapters = %v", artifact.Chapters)
	}
}

func TestDownloadHTMLEndpoint(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: testRepoDir(t)})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Run(context.Background(), job.ID); err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(svc, "user-1")

	w := doRequest(t, r, http.MethodGet, "/api/v1/jobs/"+job.ID+"/download/html", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("content disposition = %s", cd)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("body is not an HTML document")
	}
}

func TestCancelEndpoint(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: testRepoDir(t)})
	if err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(svc, "user-1")

	w := doRequest(t, r, http.MethodPost, "/api/v1/jobs/"+job.ID+"/cancel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != StatusFailed {
		t.Errorf("status after cancel = %v", resp["status"])
	}
}
