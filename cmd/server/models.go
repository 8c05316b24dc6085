package main

import (
	"encoding/json"
	"time"

	"github.com/liamcoop/cartrules/evaluator"
	"github.com/liamcoop/cartrules/predicate"
	"github.com/liamcoop/cartrules/projectengine"
	"github.com/liamcoop/cartrules/rules"
)

// API request and response models

// CreateProjectRequest is the body for creating a project
type CreateProjectRequest struct {
	Key  string `json:"key" example:"my-shop"`
	Name string `json:"name,omitempty" example:"My Shop"`
}

// ProjectResponse is a project in API responses
type ProjectResponse struct {
	Key       string    `json:"key" example:"my-shop"`
	Name      string    `json:"name" example:"My Shop"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProjectsListResponse is the response for listing projects
type ProjectsListResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

// CategoriesRequest replaces the category names of a project
type CategoriesRequest struct {
	Categories map[string]string `json:"categories"`
}

// CategoriesResponse lists the category names of a project
type CategoriesResponse struct {
	Categories []rules.Category `json:"categories"`
}

// DiscountRequest is the body for creating or updating a cart discount.
// Active defaults to true on creation.
type DiscountRequest struct {
	ID                   string `json:"id,omitempty"`
	Key                  string `json:"key,omitempty" example:"summer-sale"`
	Name                 string `json:"name" example:"10% off shoes over 50 EUR"`
	CartPredicate        string `json:"cartPredicate" example:"lineItemTotal(categories.id contains \"c1\") >= \"50.00 EUR\""`
	SortOrder            string `json:"sortOrder,omitempty" example:"0.5"`
	RequiresDiscountCode bool   `json:"requiresDiscountCode"`
	IsActive             *bool  `json:"isActive,omitempty"`
}

// DiscountsListResponse is the response for listing discounts
type DiscountsListResponse struct {
	Discounts []*rules.Discount `json:"discounts"`
}

// EvaluateRequest previews the discounts of a project against a cart
type EvaluateRequest struct {
	ProjectKey  string          `json:"projectKey" example:"my-shop"`
	Cart        *evaluator.Cart `json:"cart"`
	DiscountIDs []string        `json:"discountIds,omitempty"`
	// Filter is a CEL expression over discount metadata, e.g. "!discount.requiresDiscountCode"
	Filter string `json:"filter,omitempty"`
}

// EvaluateResponse holds one result per evaluated discount, highest sort order first
type EvaluateResponse struct {
	Results        []*rules.DiscountResult `json:"results"`
	Errors         []EvaluateError         `json:"errors,omitempty"`
	EvaluationTime string                  `json:"evaluationTime" example:"1.2ms"`
}

// EvaluateError reports a requested discount that could not be evaluated
type EvaluateError struct {
	DiscountID string `json:"discountId"`
	Error      string `json:"error"`
}

// PredicateEvaluateRequest evaluates a single predicate without storing it
type PredicateEvaluateRequest struct {
	Predicate  string            `json:"predicate" example:"totalPrice >= \"100.00 USD\""`
	Cart       *evaluator.Cart   `json:"cart"`
	Categories map[string]string `json:"categories,omitempty"`
}

// PredicateRequest carries a predicate string
type PredicateRequest struct {
	Predicate string `json:"predicate"`
}

// ParseResponse is the tree of a parsed predicate
type ParseResponse struct {
	Predicate string         `json:"predicate"`
	AST       predicate.Node `json:"ast"`
	Partial   bool           `json:"partial"`
}

// StringifyRequest carries a predicate tree
type StringifyRequest struct {
	AST json.RawMessage `json:"ast"`
}

// ErrorResponse is an error in API responses
type ErrorResponse struct {
	Error   string `json:"error" example:"discount not found"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the health check response
type HealthResponse struct {
	Status         string `json:"status" example:"healthy"`
	ProjectsLoaded int    `json:"projectsLoaded"`
	Error          string `json:"error,omitempty"`
}

// MetricsResponse exposes the process counters
type MetricsResponse struct {
	TotalErrors       int64 `json:"totalErrors"`
	TotalWarnings     int64 `json:"totalWarnings"`
	Total5xxErrors    int64 `json:"total5xxErrors"`
	Total4xxErrors    int64 `json:"total4xxErrors"`
	Total400Errors    int64 `json:"total400Errors"`
	Total404Errors    int64 `json:"total404Errors"`
	UnknownOperators  int64 `json:"unknownOperators"`
	PredicateFailures int64 `json:"predicateFailures"`
	SlowEvaluations   int64 `json:"slowEvaluations"`
}

func toProjectResponse(p projectengine.Project) ProjectResponse {
	return ProjectResponse{Key: p.Key, Name: p.Name, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}
