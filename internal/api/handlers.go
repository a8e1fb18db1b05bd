package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/John-Robertt/absauthor/internal/directory"
	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/logging"
	"github.com/John-Robertt/absauthor/internal/slug"
)

type errorBody struct {
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

type resolveRequest struct {
	Candidates []string `json:"candidates"`
}

type resolveResponse struct {
	Found  bool                `json:"found"`
	Author *domain.AuthorMatch `json:"author,omitempty"`
}

type refreshResponse struct {
	Authors         int `json:"authors"`
	FailedLibraries int `json:"failed_libraries"`
}

type linkRequest struct {
	URL   string `json:"url"`
	Apply bool   `json:"apply"`
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ResolveHandler 在 ABS 作者目录中查找候选人名。
func (s *Server) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Candidates) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "candidates 不能为空")
		return
	}

	m, ok, err := s.Pipeline.Resolver.Resolve(r.Context(), req.Candidates)
	if err != nil {
		s.logger().Warn("resolve failed", logging.Error(err))
		if errors.Is(err, directory.ErrNotConfigured) {
			writeError(w, http.StatusInternalServerError, domain.ErrCodeConfigMissingBaseURL, "没有配置 ABS 服务地址")
			return
		}
		writeError(w, http.StatusBadGateway, domain.ErrCodeDirectoryUnavailable, err.Error())
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, resolveResponse{Found: false})
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{
		Found: true,
		Author: &domain.AuthorMatch{
			ID:        m.Record.ID,
			Name:      m.Record.Name,
			Tier:      string(m.Tier),
			Candidate: m.Candidate,
		},
	})
}

// RefreshHandler 丢弃作者目录快照并重新读取 ABS。
func (s *Server) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Pipeline.Resolver.Refresh(r.Context())
	if err != nil {
		s.logger().Warn("directory refresh failed", logging.Error(err))
		if errors.Is(err, directory.ErrNotConfigured) {
			writeError(w, http.StatusInternalServerError, domain.ErrCodeConfigMissingBaseURL, "没有配置 ABS 服务地址")
			return
		}
		writeError(w, http.StatusBadGateway, domain.ErrCodeDirectoryUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Authors: snap.Len(), FailedLibraries: len(snap.Failures)})
}

// LinkHandler 处理单个 LitRes 作者页。apply=true 只在服务以 --apply 启动时允许。
func (s *Server) LinkHandler(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sl, err := slug.Extract(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrCodeInvalidTarget, err.Error())
		return
	}

	p := s.Pipeline
	if req.Apply && !p.Eff.Apply {
		writeError(w, http.StatusForbidden, "apply_disabled", "服务以 dry-run 启动；需要写入请使用 serve --apply")
		return
	}
	if !req.Apply {
		p = p.DryRun()
	}

	target := domain.Target{Slug: sl, Name: slug.CandidateName(sl), Input: req.URL}
	item := p.LinkOne(r.Context(), target)
	p.Record(r.Context(), uuid.NewString(), item)
	writeJSON(w, http.StatusOK, item)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "请求体不是合法 JSON："+err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{ErrorCode: code, ErrorMsg: strings.TrimSpace(msg)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
