// Package mininghttp exposes the role mining JSON API.
package mininghttp

import (
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sentinel-iga/sentinel/internal/mining"
	"github.com/sentinel-iga/sentinel/internal/platform/httpx"
	"github.com/sentinel-iga/sentinel/report"
)

// Handler wires the mining run endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *mining.Service
	pdf      *report.Client
	validate *validator.Validate
}

// NewHandler constructs handler. The pdf client may be nil; the PDF export
// endpoint then responds 501.
func NewHandler(logger *slog.Logger, service *mining.Service, pdf *report.Client) *Handler {
	return &Handler{logger: logger, service: service, pdf: pdf, validate: validator.New()}
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/mining", func(r chi.Router) {
		r.Post("/runs", h.triggerRun)
		r.Get("/runs", h.listRuns)
		r.Get("/runs/{id}", h.getRun)
		r.Get("/runs/{id}/export", h.exportRun)
		r.Get("/runs/{id}/export.pdf", h.exportRunPDF)
	})
}

func (h *Handler) triggerRun(w http.ResponseWriter, r *http.Request) {
	var req mining.RunRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, validationFields(err))
		return
	}
	run, err := h.service.TriggerRun(r.Context(), req)
	if err != nil {
		if errors.Is(err, mining.ErrUnknownAlgorithm) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
			return
		}
		h.logger.Error("trigger mining run", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, run)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.service.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("list mining runs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if runs == nil {
		runs = []mining.Run{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, mining.ErrRunNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get mining run", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func (h *Handler) exportRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	run, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, mining.ErrRunNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("export mining run", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if run.Result == nil || run.Status != mining.RunCompleted {
		httpx.Problem(w, http.StatusConflict, "Conflict", "run has no completed result to export")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=mining_run_"+runID+".csv")
	writer := csv.NewWriter(w)
	for _, row := range mining.ExportClusters(run.Result.Clusters) {
		if err := writer.Write(row); err != nil {
			break
		}
	}
	writer.Flush()
}

func (h *Handler) exportRunPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusNotImplemented, "Not Implemented", "pdf rendering is not configured")
		return
	}
	runID := chi.URLParam(r, "id")
	run, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, mining.ErrRunNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("export mining run pdf", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	html, err := report.RunHTML(run.Result)
	if err != nil {
		httpx.Problem(w, http.StatusConflict, "Conflict", "run has no completed result to export")
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render mining pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "pdf rendering failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=mining_run_"+runID+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		fields["request"] = err.Error()
		return fields
	}
	for _, fe := range invalid {
		fields[strings.ToLower(fe.Field())] = "failed " + fe.Tag() + " validation"
	}
	return fields
}
