// Package web is the presentation layer: it renders the lesson as one HTML
// page, runs the query of whichever step the learner triggered, checks the
// answer, and exposes the same operations as a small JSON API.
package web

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SimonWaldherr/sqlmystery/internal/lesson"
	"github.com/SimonWaldherr/sqlmystery/internal/query"
	"github.com/SimonWaldherr/sqlmystery/internal/store"
)

// Backend is what the page needs from the application.
type Backend interface {
	Run(ctx context.Context, sql string) query.Outcome
	Check(answer string) bool
	Schema(ctx context.Context) ([]store.TableInfo, error)
}

// Options configures a Handler.
type Options struct {
	Lesson *lesson.Lesson
	// AssetsDir is served under /assets/. Empty disables it.
	AssetsDir string
	// CSS replaces the built-in stylesheet when set.
	CSS    string
	Logger *zap.SugaredLogger
}

// Handler serves the mystery page and its API.
type Handler struct {
	backend Backend
	lesson  *lesson.Lesson
	css     string
	tmpl    *template.Template
	mux     *http.ServeMux
	log     *zap.SugaredLogger
}

// NewHandler builds the routes.
func NewHandler(b Backend, opts Options) *Handler {
	l := opts.Lesson
	if l == nil {
		l = lesson.Default()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	css := opts.CSS
	if css == "" {
		css = baseCSS
	}
	h := &Handler{
		backend: b,
		lesson:  l,
		css:     css,
		tmpl:    template.Must(template.New("page").Parse(defaultTemplate)),
		mux:     http.NewServeMux(),
		log:     log,
	}

	h.mux.HandleFunc("/", h.handlePage)
	h.mux.HandleFunc("/run", h.handleRun)
	h.mux.HandleFunc("/check", h.handleCheck)
	h.mux.HandleFunc("/solution", h.handleSolution)
	h.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	h.mux.HandleFunc("/api/query", h.handleAPIQuery)
	h.mux.HandleFunc("/api/check", h.handleAPICheck)
	h.mux.HandleFunc("/api/schema", h.handleAPISchema)
	if opts.AssetsDir != "" {
		if _, err := os.Stat(opts.AssetsDir); err != nil {
			log.Warnw("assets directory unavailable", "dir", opts.AssetsDir, "error", err)
		}
		h.mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(opts.AssetsDir))))
	}
	return h
}

// ServeHTTP tags each request with an id and logs it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", reqID)
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)
	h.log.Debugw("http request", "id", reqID, "method", r.Method, "path", r.URL.Path,
		"status", rec.status, "duration", time.Since(start))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// pageState is everything one render needs beyond the lesson. Text areas
// keep whatever the learner typed; only the triggered step has a result.
type pageState struct {
	texts      map[string]string
	ranStep    string
	outcome    query.Outcome
	answer     string
	checkShown bool
	correct    bool
	revealed   bool
}

func (h *Handler) stateFromForm(r *http.Request) pageState {
	st := pageState{texts: make(map[string]string, len(h.lesson.Steps))}
	for _, s := range h.lesson.Steps {
		if v, ok := r.PostForm["sql_"+s.ID]; ok && len(v) > 0 {
			st.texts[s.ID] = v[0]
		}
	}
	st.answer = r.PostFormValue("answer")
	return st
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.render(w, pageState{})
}

func (h *Handler) parsePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	if !h.parsePost(w, r) {
		return
	}
	st := h.stateFromForm(r)
	stepID := r.PostFormValue("step")
	step, ok := h.lesson.Step(stepID)
	if !ok {
		http.Error(w, "unknown step", http.StatusBadRequest)
		return
	}
	text, ok := st.texts[step.ID]
	if !ok {
		text = step.Query
		st.texts[step.ID] = text
	}
	st.ranStep = step.ID
	st.outcome = h.backend.Run(r.Context(), text)
	h.render(w, st)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !h.parsePost(w, r) {
		return
	}
	st := h.stateFromForm(r)
	st.checkShown = true
	st.correct = h.backend.Check(st.answer)
	h.render(w, st)
}

func (h *Handler) handleSolution(w http.ResponseWriter, r *http.Request) {
	if !h.parsePost(w, r) {
		return
	}
	st := h.stateFromForm(r)
	st.revealed = true
	h.render(w, st)
}

func (h *Handler) components(st pageState) []component {
	l := h.lesson
	comps := []component{heroComponent{Title: l.Title, Image: l.Hero}}
	for _, s := range l.Intro {
		comps = append(comps, textComponent{Heading: s.Heading, Body: s.Body, Image: s.Image})
	}
	if l.QueriesHeading != "" {
		comps = append(comps, headingComponent{Text: l.QueriesHeading})
	}
	for _, s := range l.Steps {
		text, ok := st.texts[s.ID]
		if !ok {
			text = s.Query
		}
		sc := stepComponent{Step: s, Text: text}
		if st.ranStep == s.ID {
			sc.Result = outcomeComponent(st.outcome, l.Messages)
		}
		comps = append(comps, sc)
		if l.HasCheckpoint() && l.Checkpoint.After == s.ID {
			comps = append(comps, h.checkpoint(st))
		}
	}
	return comps
}

func (h *Handler) checkpoint(st pageState) component {
	l := h.lesson
	cc := checkpointComponent{Checkpoint: l.Checkpoint, Answer: st.answer}
	switch {
	case st.revealed:
		cc.Result = solutionComponent{
			Intro: l.Messages.Reveal,
			Field: l.Checkpoint.Solution.Field,
			Value: l.Checkpoint.Solution.Value,
		}
	case st.checkShown && st.correct:
		cc.Result = alertComponent{Level: "success", Message: l.Messages.Correct}
	case st.checkShown:
		cc.Result = alertComponent{Level: "error", Message: l.Messages.Incorrect}
	}
	return cc
}

func (h *Handler) render(w http.ResponseWriter, st pageState) {
	var body strings.Builder
	for _, c := range h.components(st) {
		body.WriteString(c.HTML())
	}

	type pageData struct {
		Title  string
		Styles template.CSS
		Body   template.HTML
	}
	var buf bytes.Buffer
	err := h.tmpl.Execute(&buf, pageData{
		Title:  h.lesson.PageTitle,
		Styles: template.CSS(h.css),
		Body:   template.HTML(body.String()),
	})
	if err != nil {
		h.log.Errorw("render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
