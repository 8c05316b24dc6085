package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/liamcoop/cartrules/evaluator"
	"github.com/liamcoop/cartrules/internal/logger"
	"github.com/liamcoop/cartrules/predicate"
	"github.com/liamcoop/cartrules/projectengine"
	"github.com/liamcoop/cartrules/rules"
)

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	projects := len(s.engineManager.ListProjects())

	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:         "unhealthy",
				ProjectsLoaded: projects,
				Error:          err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy", ProjectsLoaded: projects})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, MetricsResponse{
		TotalErrors:       logger.TotalErrors.Load(),
		TotalWarnings:     logger.TotalWarnings.Load(),
		Total5xxErrors:    logger.Total5xxErrors.Load(),
		Total4xxErrors:    logger.Total4xxErrors.Load(),
		Total400Errors:    logger.Total400Errors.Load(),
		Total404Errors:    logger.Total404Errors.Load(),
		UnknownOperators:  logger.UnknownOperators.Load(),
		PredicateFailures: logger.PredicateFailures.Load(),
		SlowEvaluations:   logger.SlowEvaluations.Load(),
	})
}

// Evaluation handler: previews the project's discounts against a cart
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.ProjectKey == "" {
		respondError(w, http.StatusBadRequest, "projectKey is required", nil)
		return
	}
	if req.Cart == nil {
		respondError(w, http.StatusBadRequest, "cart is required", nil)
		return
	}

	engine, err := s.engineManager.GetEngine(req.ProjectKey)
	if err != nil {
		respondError(w, http.StatusNotFound, "project not found", err)
		return
	}

	startTime := time.Now()

	var (
		discounts []*rules.Discount
		failures  []EvaluateError
	)
	if len(req.DiscountIDs) > 0 {
		// explicitly requested discounts are previewed even when inactive
		for _, id := range req.DiscountIDs {
			d, err := engine.GetDiscount(id)
			if err != nil {
				failures = append(failures, EvaluateError{DiscountID: id, Error: err.Error()})
				continue
			}
			discounts = append(discounts, d)
		}
		if strings.TrimSpace(req.Filter) != "" {
			f, err := rules.CompileFilter(req.Filter)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid filter", err)
				return
			}
			if discounts, err = f.Apply(discounts); err != nil {
				respondError(w, http.StatusBadRequest, "filter failed", err)
				return
			}
		}
	} else {
		discounts, err = engine.Select(req.Filter)
		if err != nil {
			respondError(w, statusFor(err), "failed to select discounts", err)
			return
		}
	}

	results, err := engine.EvaluateDiscounts(r.Context(), req.Cart, discounts)
	if err != nil {
		respondError(w, statusFor(err), "evaluation failed", err)
		return
	}

	respondJSON(w, http.StatusOK, EvaluateResponse{
		Results:        results,
		Errors:         failures,
		EvaluationTime: time.Since(startTime).String(),
	})
}

// handleEvaluatePredicate previews an ad-hoc predicate without storing it
func (s *Server) handleEvaluatePredicate(w http.ResponseWriter, r *http.Request) {
	var req PredicateEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Cart == nil {
		respondError(w, http.StatusBadRequest, "cart is required", nil)
		return
	}

	result := evaluator.EvaluatePredicate(r.Context(), req.Predicate, req.Cart, &evaluator.Options{
		CategoryResolver: rules.CategoryResolver(rules.NewInMemoryCategoryStore(req.Categories)),
	})
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleParsePredicate(w http.ResponseWriter, r *http.Request) {
	var req PredicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	node, err := predicate.Parse(req.Predicate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse predicate", err)
		return
	}

	respondJSON(w, http.StatusOK, ParseResponse{
		Predicate: req.Predicate,
		AST:       node,
		Partial:   predicate.IsPartialPredicate(req.Predicate),
	})
}

func (s *Server) handleStringifyPredicate(w http.ResponseWriter, r *http.Request) {
	var req StringifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.AST) == 0 {
		respondError(w, http.StatusBadRequest, "ast is required", nil)
		return
	}

	node, err := predicate.DecodeNode(req.AST)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid predicate tree", err)
		return
	}
	if err := predicate.Validate(node); err != nil {
		respondError(w, http.StatusBadRequest, "invalid predicate tree", err)
		return
	}

	respondJSON(w, http.StatusOK, PredicateRequest{Predicate: predicate.Stringify(node)})
}

// List projects handler
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects := []ProjectResponse{}
	for _, p := range s.engineManager.ListProjects() {
		projects = append(projects, toProjectResponse(p))
	}
	respondJSON(w, http.StatusOK, ProjectsListResponse{Projects: projects})
}

// Create project handler
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := projectengine.ValidateProjectKey(req.Key); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	p, err := s.engineManager.CreateProject(req.Key, req.Name)
	if err != nil {
		respondError(w, statusFor(err), "failed to create project", err)
		return
	}

	respondJSON(w, http.StatusCreated, toProjectResponse(*p))
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.engineManager.GetProject(chi.URLParam(r, "projectKey"))
	if err != nil {
		respondError(w, http.StatusNotFound, "project not found", err)
		return
	}
	respondJSON(w, http.StatusOK, toProjectResponse(*p))
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.engineManager.DeleteProject(chi.URLParam(r, "projectKey")); err != nil {
		respondError(w, statusFor(err), "failed to delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Replace categories handler (zero downtime: the project engine is swapped)
func (s *Server) handleReplaceCategories(w http.ResponseWriter, r *http.Request) {
	projectKey := chi.URLParam(r, "projectKey")

	var req CategoriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := projectengine.ValidateCategories(req.Categories); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	if err := s.engineManager.ReplaceCategories(projectKey, req.Categories); err != nil {
		respondError(w, statusFor(err), "failed to replace categories", err)
		return
	}

	s.respondCategories(w, projectKey)
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	s.respondCategories(w, chi.URLParam(r, "projectKey"))
}

func (s *Server) respondCategories(w http.ResponseWriter, projectKey string) {
	categories, err := s.engineManager.Categories(projectKey)
	if err != nil {
		respondError(w, statusFor(err), "failed to list categories", err)
		return
	}
	respondJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}

// Create discount handler
func (s *Server) handleCreateDiscount(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.projectEngine(w, r)
	if !ok {
		return
	}

	var req DiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	d := req.toDiscount(true)
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	if err := projectengine.ValidateDiscount(d); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	// Add discount (this parses and validates the predicate)
	if err := engine.AddDiscount(d); err != nil {
		respondError(w, statusFor(err), "failed to add discount", err)
		return
	}

	respondJSON(w, http.StatusCreated, d)
}

// List discounts handler
func (s *Server) handleListDiscounts(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.projectEngine(w, r)
	if !ok {
		return
	}

	discounts, err := engine.ListDiscounts()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list discounts", err)
		return
	}
	if discounts == nil {
		discounts = []*rules.Discount{}
	}

	respondJSON(w, http.StatusOK, DiscountsListResponse{Discounts: discounts})
}

func (s *Server) handleGetDiscount(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.projectEngine(w, r)
	if !ok {
		return
	}

	d, err := engine.GetDiscount(chi.URLParam(r, "discountId"))
	if err != nil {
		respondError(w, statusFor(err), "discount not found", err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// Update discount handler. An omitted isActive keeps the stored value.
func (s *Server) handleUpdateDiscount(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.projectEngine(w, r)
	if !ok {
		return
	}
	discountID := chi.URLParam(r, "discountId")

	var req DiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	existing, err := engine.GetDiscount(discountID)
	if err != nil {
		respondError(w, statusFor(err), "discount not found", err)
		return
	}

	d := req.toDiscount(existing.Active)
	d.ID = discountID

	if err := projectengine.ValidateDiscount(d); err != nil {
		respondError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	if err := engine.UpdateDiscount(d); err != nil {
		respondError(w, statusFor(err), "failed to update discount", err)
		return
	}

	updated, err := engine.GetDiscount(discountID)
	if err != nil {
		respondError(w, statusFor(err), "failed to read updated discount", err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// Delete discount handler
func (s *Server) handleDeleteDiscount(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.projectEngine(w, r)
	if !ok {
		return
	}

	if err := engine.DeleteDiscount(chi.URLParam(r, "discountId")); err != nil {
		respondError(w, statusFor(err), "failed to delete discount", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// projectEngine resolves the {projectKey} route parameter, writing a 404 when it is unknown
func (s *Server) projectEngine(w http.ResponseWriter, r *http.Request) (*rules.Engine, bool) {
	engine, err := s.engineManager.GetEngine(chi.URLParam(r, "projectKey"))
	if err != nil {
		respondError(w, http.StatusNotFound, "project not found", err)
		return nil, false
	}
	return engine, true
}

func (req DiscountRequest) toDiscount(defaultActive bool) *rules.Discount {
	active := defaultActive
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &rules.Discount{
		ID:                   req.ID,
		Key:                  req.Key,
		Name:                 req.Name,
		Predicate:            req.CartPredicate,
		SortOrder:            req.SortOrder,
		RequiresDiscountCode: req.RequiresDiscountCode,
		Active:               active,
	}
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case projectengine.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, rules.ErrDiscountExists), errors.Is(err, projectengine.ErrProjectExists):
		return http.StatusConflict
	case errors.Is(err, rules.ErrInvalidPredicate), errors.Is(err, rules.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Debug("failed to write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	switch {
	case status >= 500:
		logger.ErrorHttp5xx()
		logger.Error(message, "status", status, "error", err)
	case status >= 400:
		logger.WarnHttp4xx(status)
	}

	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}
