package handlers

import (
	"net/http"

	"github.com/pharmaqc/rx-ocr/export"
	"github.com/pharmaqc/rx-ocr/extractor"
)

// FieldInfo describes one field and its ordered patterns.
type FieldInfo struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Patterns []string `json:"patterns"`
}

// Fields lists the fields in canonical order with their pattern sources,
// highest priority first.
//
// GET /v1/fields
func (h *HTTPHandlerImpl) Fields(w http.ResponseWriter, r *http.Request) {
	rules := extractor.Rules()
	out := make([]FieldInfo, 0, len(rules))
	for _, rule := range rules {
		info := FieldInfo{
			Name:     string(rule.Field),
			Label:    export.Label(rule.Field),
			Patterns: make([]string, 0, len(rule.Patterns)),
		}
		for _, p := range rule.Patterns {
			info.Patterns = append(info.Patterns, p.Source)
		}
		out = append(out, info)
	}
	h.RespondWithJSON(w, http.StatusOK, map[string]any{"fields": out})
}
