package server

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/edadash/internal/clean"
	"github.com/KaramelBytes/edadash/internal/loader"
	"github.com/KaramelBytes/edadash/internal/outlier"
	"github.com/KaramelBytes/edadash/internal/plot"
	"github.com/KaramelBytes/edadash/internal/session"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	st, _ := s.store.Get(id)
	q := r.URL.Query()
	p := newPage(st, s.opt, q)
	if q.Get("kind") != "" && p.PlotURL != "" {
		// Remember the submitted chart for later page loads.
		_, _ = s.store.Update(id, func(cur session.State) (session.State, error) {
			cur.Plot = p.chart
			return cur, nil
		})
	}
	w.Header().Set("Cache-Control", "no-cache")
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		s.log.WithError(err).Error("template error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// update applies fn to the caller's session and sends the browser back to
// the page, where the resulting notices are shown.
func (s *Server) update(w http.ResponseWriter, r *http.Request, fn func(session.State) (session.State, error)) {
	id := s.sessionID(w, r)
	if _, err := s.store.Update(id, fn); err != nil {
		s.log.WithField("session", id).WithError(err).Debug("interaction returned error")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func notice(level session.Level, format string, args ...any) func(session.State) (session.State, error) {
	return func(st session.State) (session.State, error) {
		return st.WithNotice(level, fmt.Sprintf(format, args...)), nil
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.update(w, r, notice(session.LevelError, "File too large: the limit is %s", formatSize(s.opt.MaxUploadBytes)))
			return
		}
		s.update(w, r, notice(session.LevelError, "Failed to read upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.update(w, r, notice(session.LevelError, "Choose a file to upload (%s)", strings.Join(loader.Extensions(), ", ")))
		return
	}
	defer file.Close()

	index, _ := strconv.Atoi(r.FormValue("sheet_index"))
	dash := s.dash.WithSheet(strings.TrimSpace(r.FormValue("sheet")), index)
	s.update(w, r, func(st session.State) (session.State, error) {
		return dash.Upload(st, filepath.Base(header.Filename), file)
	})
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad form", http.StatusBadRequest)
		return
	}
	cols := r.PostForm["columns"]
	s.update(w, r, func(st session.State) (session.State, error) {
		return s.dash.DropColumns(st, cols)
	})
}

func (s *Server) handleFill(w http.ResponseWriter, r *http.Request) {
	strategy, err := clean.ParseStrategy(r.FormValue("strategy"))
	if err != nil {
		s.update(w, r, notice(session.LevelError, "%v", err))
		return
	}
	opt := clean.FillOptions{Categorical: r.FormValue("categorical") != ""}
	s.update(w, r, func(st session.State) (session.State, error) {
		return s.dash.FillMissing(st, strategy, opt)
	})
}

func (s *Server) handleDedupe(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, s.dash.DropDuplicates)
}

func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	policy, err := outlier.ParsePolicy(r.FormValue("policy"))
	if err != nil {
		s.update(w, r, notice(session.LevelError, "%v", err))
		return
	}
	col := r.FormValue("column")
	s.update(w, r, func(st session.State) (session.State, error) {
		return s.dash.HandleOutliers(st, col, policy)
	})
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := plot.Request{X: q.Get("x"), Y: q.Get("y"), Title: q.Get("title")}
	if k := q.Get("kind"); k != "" {
		kind, err := plot.ParseKind(k)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Kind = kind
	}
	req.Bins, _ = strconv.Atoi(q.Get("bins"))

	// Image loads only read the session; the page reports plot problems.
	st, _ := s.store.Get(s.sessionID(w, r))
	png, _, err := s.dash.Plot(st, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.update(w, r, func(st session.State) (session.State, error) {
		return s.dash.GenerateReport(ctx, st)
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	st, _ := s.store.Get(id)
	if st.Report == nil {
		http.Error(w, "No report generated yet", http.StatusNotFound)
		return
	}
	var path string
	switch r.PathValue("kind") {
	case "html":
		path = st.Report.HTML
	case "pdf":
		path = st.Report.PDF
	case "json":
		path = st.Report.JSON
	default:
		http.Error(w, "Unknown report kind", http.StatusNotFound)
		return
	}
	if path == "" {
		http.Error(w, "Report file not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filepath.Base(path)}))
	http.ServeFile(w, r, path)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := loader.FormatCSV
	if strings.HasSuffix(r.URL.Path, ".xlsx") {
		format = loader.FormatXLSX
	}
	id := s.sessionID(w, r)
	st, _ := s.store.Get(id)
	b, name, err := s.dash.Export(st, format)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrNoData) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	ctype := "text/csv; charset=utf-8"
	if format == loader.FormatXLSX {
		ctype = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	_, _ = w.Write(b)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, func(st session.State) (session.State, error) {
		return s.dash.Reset(st), nil
	})
}
