package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/contrast"
	"github.com/jmylchreest/pagetint/internal/dom"
)

// Message actions.
const (
	ActionExtractColors    = "extractColors"
	ActionScanContrast     = "scanContrast"
	ActionHighlightElement = "highlightElement"
	ActionColorsExtracted  = "colorsExtracted"
)

// ErrUnknownAction is returned by Handle for unrecognised actions.
var ErrUnknownAction = errors.New("unknown action")

// Request is a message from a client to the session.
type Request struct {
	Action       string `json:"action"`
	ElementIndex int    `json:"elementIndex,omitempty"`
}

// Response answers a Request. Only the field matching the request's action
// is serialised.
type Response struct {
	Colors  []colour.WeightedColour
	Issues  []contrast.Issue
	Success bool

	action string
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	switch r.action {
	case ActionExtractColors:
		colors := r.Colors
		if colors == nil {
			colors = []colour.WeightedColour{}
		}
		return json.Marshal(struct {
			Colors []colour.WeightedColour `json:"colors"`
		}{colors})
	case ActionScanContrast:
		issues := r.Issues
		if issues == nil {
			issues = []contrast.Issue{}
		}
		return json.Marshal(struct {
			Issues []contrast.Issue `json:"issues"`
		}{issues})
	default:
		return json.Marshal(struct {
			Success bool `json:"success"`
		}{r.Success})
	}
}

// Event is an unsolicited message from the session.
type Event struct {
	Action string                  `json:"action"`
	Colors []colour.WeightedColour `json:"colors"`
}

// Handle dispatches a request. Highlight requests always succeed: indexes
// that do not resolve and pages that cannot draw are ignored.
func (a *Analyzer) Handle(ctx context.Context, req Request) (Response, error) {
	switch req.Action {
	case ActionExtractColors:
		colours, err := a.Extract(ctx)
		if err != nil {
			return Response{}, err
		}
		return Response{Colors: colours, action: req.Action}, nil

	case ActionScanContrast:
		res, err := a.ScanContrast(ctx)
		if err != nil {
			return Response{}, err
		}
		return Response{Issues: res.Issues, action: req.Action}, nil

	case ActionHighlightElement:
		if err := a.Highlight(ctx, req.ElementIndex); err != nil {
			if !errors.Is(err, dom.ErrHighlightUnsupported) {
				return Response{}, err
			}
			a.logger.Debug("highlight not supported by source", "index", req.ElementIndex)
		}
		return Response{Success: true, action: req.Action}, nil

	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}
