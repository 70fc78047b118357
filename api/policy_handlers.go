package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Kalenite/adminauth/httputil"
	"github.com/Kalenite/adminauth/policy"
)

// PolicyHandlers serves the administrative policy-rule endpoints.
type PolicyHandlers struct {
	engine policy.Engine
}

// ListRules handles GET /sys/policies?sub=...
func (h *PolicyHandlers) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.engine.ListRules(r.Context(), r.URL.Query().Get("sub"))
	if err != nil {
		writePolicyError(w, err)
		return
	}
	httputil.WriteSuccess(w, rules)
}

// CreateRule handles POST /sys/policies. Accepts one rule or a batch.
func (h *PolicyHandlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rules []policy.Rule
	if err := httputil.DecodeJSON(r, &rules); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, 0, "malformed request body")
		return
	}
	if len(rules) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, 0, "at least one rule is required")
		return
	}

	var err error
	if len(rules) == 1 {
		err = h.engine.AddRule(r.Context(), rules[0])
	} else {
		err = h.engine.AddRules(r.Context(), rules)
	}
	if err != nil {
		writePolicyError(w, err)
		return
	}
	httputil.WriteSuccess(w, nil)
}

// DeleteRule handles DELETE /sys/policies with the rule in the body.
func (h *PolicyHandlers) DeleteRule(w http.ResponseWriter, r *http.Request) {
	var rules []policy.Rule
	if err := httputil.DecodeJSON(r, &rules); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, 0, "malformed request body")
		return
	}
	if len(rules) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, 0, "at least one rule is required")
		return
	}

	var err error
	if len(rules) == 1 {
		err = h.engine.RemoveRule(r.Context(), rules[0])
	} else {
		err = h.engine.RemoveRules(r.Context(), rules)
	}
	if err != nil {
		writePolicyError(w, err)
		return
	}
	httputil.WriteSuccess(w, nil)
}

// DeleteBySubject handles DELETE /sys/policies/subjects/{sub}: purges every
// rule and grouping of one subject, returning the removed count.
func (h *PolicyHandlers) DeleteBySubject(w http.ResponseWriter, r *http.Request) {
	count, err := h.engine.RemoveRulesBySubject(r.Context(), mux.Vars(r)["sub"])
	if err != nil {
		writePolicyError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]int{"count": count})
}

// ListGroupings handles GET /sys/policies/groups.
func (h *PolicyHandlers) ListGroupings(w http.ResponseWriter, r *http.Request) {
	gs, err := h.engine.ListGroupings(r.Context())
	if err != nil {
		writePolicyError(w, err)
		return
	}
	httputil.WriteSuccess(w, gs)
}

// CreateGrouping handles POST /sys/policies/groups. Accepts one grouping or
// a batch.
func (h *PolicyHandlers) CreateGrouping(w http.ResponseWriter, r *http.Request) {
	var gs []policy.Grouping
	if err := httputil.DecodeJSON(r, &gs); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, 0, "malformed request body")
		return
	}
	if len(gs) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, 0, "at least one grouping is required")
		return
	}

	var err error
	if len(gs) == 1 {
		err = h.engine.AddGrouping(r.Context(), gs[0])
	} else {
		err = h.engine.AddGroupings(r.Context(), gs)
	}
	if err != nil {
		writePolicyError(w, err)
		return
	}
	httputil.WriteSuccess(w, nil)
}

// DeleteGrouping handles DELETE /sys/policies/groups with the grouping in
// the body.
func (h *PolicyHandlers) DeleteGrouping(w http.ResponseWriter, r *http.Request) {
	var g policy.Grouping
	if err := httputil.DecodeJSON(r, &g); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, 0, "malformed request body")
		return
	}
	if err := h.engine.RemoveGrouping(r.Context(), g); err != nil {
		writePolicyError(w, err)
		return
	}
	httputil.WriteSuccess(w, nil)
}
