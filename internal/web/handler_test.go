package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/sqlmystery/internal/lesson"
	"github.com/SimonWaldherr/sqlmystery/internal/query"
	"github.com/SimonWaldherr/sqlmystery/internal/store"
)

type fakeBackend struct {
	outcome   query.Outcome
	ran       []string
	schemaErr error
}

func (f *fakeBackend) Run(_ context.Context, sql string) query.Outcome {
	f.ran = append(f.ran, sql)
	return f.outcome
}

func (f *fakeBackend) Check(answer string) bool { return answer == "Southwest" }

func (f *fakeBackend) Schema(context.Context) ([]store.TableInfo, error) {
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	return []store.TableInfo{{
		Name:    "crimes",
		Columns: []store.ColumnInfo{{Name: "DR_NO", Type: "INTEGER"}},
		Rows:    6,
	}}, nil
}

func tableOutcome() query.Outcome {
	return query.Outcome{
		Kind:    query.Table,
		Columns: []string{"CRIMINAL_ID", "INCIDENT_AREA", "WEAPON"},
		Rows:    [][]any{{int64(501), "Southwest", nil}},
	}
}

func newTestHandler(t *testing.T, b Backend) *Handler {
	t.Helper()
	return NewHandler(b, Options{})
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPageRendersLesson(t *testing.T) {
	h := newTestHandler(t, &fakeBackend{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	l := lesson.Default()
	assert.Contains(t, body, "<title>Mystery App</title>")
	assert.Contains(t, body, "Case of the Sorted Crimes")
	assert.Contains(t, body, "SELECT * FROM crimes;")
	assert.Contains(t, body, `/assets/Murder_Scene_v3-copy_800.png`)
	assert.Equal(t, len(l.Steps), strings.Count(body, "<textarea"))
	assert.Equal(t, 1, strings.Count(body, `id="checkpoint"`))
	assert.NotContains(t, body, `class="result"`)

	// the checkpoint sits between step four and step five
	cp := strings.Index(body, `id="checkpoint"`)
	assert.Greater(t, cp, strings.Index(body, `id="step-q4"`))
	assert.Less(t, cp, strings.Index(body, `id="step-q5"`))
}

func TestRunShowsTableForTriggeredStepOnly(t *testing.T) {
	fb := &fakeBackend{outcome: tableOutcome()}
	h := newTestHandler(t, fb)
	rec := postForm(h, "/run", url.Values{
		"step":   {"q2"},
		"sql_q1": {"SELECT count(*) FROM victim"},
		"sql_q2": {"SELECT * FROM criminals"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"SELECT * FROM criminals"}, fb.ran)
	body := rec.Body.String()
	assert.Contains(t, body, "SELECT count(*) FROM victim")
	assert.Contains(t, body, "<th>INCIDENT_AREA</th>")
	assert.Contains(t, body, "<td>501</td>")
	assert.Contains(t, body, "<td>NULL</td>")
	assert.Contains(t, body, "1 rows")
	assert.Equal(t, 1, strings.Count(body, `<div class="result">`))

	res := strings.Index(body, `<div class="result">`)
	assert.Greater(t, res, strings.Index(body, `id="step-q2"`))
	assert.Less(t, res, strings.Index(body, `id="step-q3"`))
}

func TestRunFallsBackToDefaultQuery(t *testing.T) {
	fb := &fakeBackend{outcome: tableOutcome()}
	h := newTestHandler(t, fb)
	rec := postForm(h, "/run", url.Values{"step": {"q1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"SELECT * FROM crimes;"}, fb.ran)
}

func TestRunEmptyAndFailedOutcomes(t *testing.T) {
	fb := &fakeBackend{outcome: query.Outcome{Kind: query.Empty, Columns: []string{"x"}}}
	h := newTestHandler(t, fb)
	rec := postForm(h, "/run", url.Values{"step": {"q1"}, "sql_q1": {"SELECT 1 WHERE 0"}})
	assert.Contains(t, rec.Body.String(), "No results found. Check your query and try again.")
	assert.NotContains(t, rec.Body.String(), "<table>")

	fb.outcome = query.Outcome{Kind: query.Failed, Reason: "no such table: nowhere"}
	rec = postForm(h, "/run", url.Values{"step": {"q1"}, "sql_q1": {"SELECT * FROM nowhere"}})
	assert.Contains(t, rec.Body.String(), "An error occurred: no such table: nowhere")
}

func TestRunTruncatedNote(t *testing.T) {
	out := tableOutcome()
	out.Truncated = true
	h := newTestHandler(t, &fakeBackend{outcome: out})
	rec := postForm(h, "/run", url.Values{"step": {"q1"}})
	assert.Contains(t, rec.Body.String(), "Showing the first 1 rows.")
}

func TestRunEscapesUserText(t *testing.T) {
	fb := &fakeBackend{outcome: query.Outcome{Kind: query.Failed, Reason: "<b>bad</b>"}}
	h := newTestHandler(t, fb)
	rec := postForm(h, "/run", url.Values{"step": {"q1"}, "sql_q1": {"</textarea><script>x</script>"}})
	body := rec.Body.String()
	assert.NotContains(t, body, "<script>x</script>")
	assert.NotContains(t, body, "<b>bad</b>")
	assert.Contains(t, body, "&lt;b&gt;bad&lt;/b&gt;")
}

func TestRunRejectsBadRequests(t *testing.T) {
	h := newTestHandler(t, &fakeBackend{})
	rec := postForm(h, "/run", url.Values{"step": {"q99"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckAnswer(t *testing.T) {
	h := newTestHandler(t, &fakeBackend{})

	rec := postForm(h, "/check", url.Values{"answer": {"Southwest"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Correct! Your input matches the solution.")
	assert.Contains(t, rec.Body.String(), `value="Southwest"`)

	rec = postForm(h, "/check", url.Values{"answer": {"southwest"}, "sql_q3": {"SELECT 3"}})
	assert.Contains(t, rec.Body.String(), "Incorrect! Your input does not match the solution.")
	assert.Contains(t, rec.Body.String(), "SELECT 3")
}

func TestRevealSolution(t *testing.T) {
	h := newTestHandler(t, &fakeBackend{})
	rec := postForm(h, "/solution", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "The correct solution is:")
	assert.Contains(t, body, "INCIDENT_AREA")
	assert.Contains(t, body, "Southwest")
	assert.NotContains(t, body, "Incorrect!")
}

func TestAPIQuery(t *testing.T) {
	fb := &fakeBackend{outcome: tableOutcome()}
	h := newTestHandler(t, fb)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"sql":"SELECT 1"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "table", got["kind"])
	assert.Equal(t, float64(1), got["count"])
	assert.Equal(t, []any{"CRIMINAL_ID", "INCIDENT_AREA", "WEAPON"}, got["columns"])
	assert.Equal(t, []string{"SELECT 1"}, fb.ran)

	req = httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{sql`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIQueryExport(t *testing.T) {
	fb := &fakeBackend{outcome: tableOutcome()}
	h := newTestHandler(t, fb)

	req := httptest.NewRequest(http.MethodPost, "/api/query?format=csv", strings.NewReader(`{"sql":"SELECT 1"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "result.csv")
	assert.Equal(t, "CRIMINAL_ID,INCIDENT_AREA,WEAPON\n501,Southwest,\n", rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/query?format=pdf", strings.NewReader(`{"sql":"SELECT 1"}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fb.outcome = query.Outcome{Kind: query.Failed, Reason: "syntax error"}
	req = httptest.NewRequest(http.MethodPost, "/api/query?format=xml", strings.NewReader(`{"sql":"SELEKT"}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "syntax error")
}

func TestAPICheckAndSchema(t *testing.T) {
	fb := &fakeBackend{}
	h := newTestHandler(t, fb)

	req := httptest.NewRequest(http.MethodPost, "/api/check", strings.NewReader(`{"answer":"Southwest"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"correct":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tables":[{"name":"crimes","columns":[{"name":"DR_NO","type":"INTEGER"}],"rows":6}]}`, rec.Body.String())

	fb.schemaErr = errors.New("store closed")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthzAndRequestID(t *testing.T) {
	h := newTestHandler(t, &fakeBackend{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "erd.txt"), []byte("diagram"), 0o644))
	h := NewHandler(&fakeBackend{}, Options{AssetsDir: dir})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/erd.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "diagram", rec.Body.String())
}

func TestCustomLessonWithoutCheckpoint(t *testing.T) {
	l, err := lesson.Parse([]byte(`
title: Tiny
steps:
  - id: only
    label: Go
    query: SELECT 42
`))
	require.NoError(t, err)
	h := NewHandler(&fakeBackend{outcome: tableOutcome()}, Options{Lesson: l, CSS: "body{}"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Tiny</title>")
	assert.Contains(t, body, "body{}")
	assert.NotContains(t, body, `id="checkpoint"`)
	assert.Contains(t, body, "SELECT 42")
}
