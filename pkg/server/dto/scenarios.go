package dto

import (
	"errors"
	"strings"

	"github.com/soundprediction/synthmem/pkg/types"
)

// Validation errors
var (
	ErrEmptyDescription   = errors.New("description cannot be empty")
	ErrDescriptionTooLong = errors.New("description exceeds maximum length (8192)")
	ErrTooManyStubs       = errors.New("people and entities must each be 100 or fewer")
	ErrEmptyGraph         = errors.New("graph must contain at least one node")
	ErrEmptyFocalID       = errors.New("focal_id cannot be empty")
	ErrNegativeRadius     = errors.New("radius cannot be negative")
)

// MaxDescriptionLength bounds world descriptions to prevent abuse
const MaxDescriptionLength = 8192

// GenerateScenarioRequest asks for a full build-and-generate run over one world.
type GenerateScenarioRequest struct {
	Description    string `json:"description" binding:"required"`
	People         int    `json:"people,omitempty"`
	Entities       int    `json:"entities,omitempty"`
	FocalNodes     int    `json:"focal_nodes,omitempty"`
	QueriesPerHop  int    `json:"queries_per_hop,omitempty"`
	UpdatesPerNode int    `json:"updates_per_node,omitempty"`
	Seed           int64  `json:"seed,omitempty"`
}

// Validate performs validation on GenerateScenarioRequest
func (r *GenerateScenarioRequest) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	if len(r.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if r.People > 100 || r.Entities > 100 {
		return ErrTooManyStubs
	}
	return nil
}

// GenerateScenarioResponse reports the artifacts written for one run.
type GenerateScenarioResponse struct {
	InstanceID   string `json:"instance_id"`
	InstancePath string `json:"instance_path"`
	Nodes        int    `json:"nodes"`
	Edges        int    `json:"edges"`
	Reports      any    `json:"reports"`
}

// PreviewDocumentsRequest renders one focal node's neighborhood without
// touching any generation service or the filesystem.
type PreviewDocumentsRequest struct {
	Graph   types.GraphPayload `json:"graph" binding:"required"`
	FocalID string             `json:"focal_id" binding:"required"`
	Radius  int                `json:"radius,omitempty"`
}

// Validate performs validation on PreviewDocumentsRequest
func (r *PreviewDocumentsRequest) Validate() error {
	if len(r.Graph.Nodes) == 0 {
		return ErrEmptyGraph
	}
	if strings.TrimSpace(r.FocalID) == "" {
		return ErrEmptyFocalID
	}
	if r.Radius < 0 {
		return ErrNegativeRadius
	}
	return nil
}

// PreviewDocumentsResponse carries the rendered documents.
type PreviewDocumentsResponse struct {
	Documents []PreviewDocument `json:"documents"`
}

// PreviewDocument is one rendered document with its markdown serialization.
type PreviewDocument struct {
	Key      string `json:"key"`
	Path     string `json:"path"`
	Markdown string `json:"markdown"`
}
