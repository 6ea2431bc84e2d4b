package web

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	"gymadmin/internal/application/orchestrators"
	"gymadmin/internal/application/projections"
	"gymadmin/internal/domain/member"
)

func (s *server) writeDeps() orchestrators.MemberWriteDeps {
	return orchestrators.MemberWriteDeps{
		MemberStore:  s.stores.MemberStore,
		TrainerStore: s.stores.TrainerStore,
		Calculator:   s.opts.Calculator,
		Cache:        s.opts.Cache,
		Metrics:      s.opts.Metrics,
	}
}

// view renders m with its trainer's name; a dangling trainer renders without one.
func (s *server) view(ctx context.Context, m member.Member) projections.MemberView {
	var name string
	if m.TrainerID != nil {
		if t, err := s.stores.TrainerStore.GetByID(ctx, *m.TrainerID); err == nil {
			name = t.Name
		}
	}
	return projections.NewMemberView(m, name, s.opts.Now())
}

// handleListMembers serves GET /api/members.
// Query: q, membership_type, payment_status, status, trainer_id, sort, dir, page, per_page
func (s *server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	lp := projections.MemberListSchema.Parse(r.URL.Query())
	deps := projections.GetMemberListDeps{
		MemberStore:  s.stores.MemberStore,
		TrainerStore: s.stores.TrainerStore,
	}
	result, err := projections.QueryGetMemberList(r.Context(), projections.NewGetMemberListQuery(lp), deps, s.opts.Now())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "member")
	if err != nil {
		writeError(w, r, err)
		return
	}
	deps := projections.GetMemberProfileDeps{
		MemberStore:  s.stores.MemberStore,
		TrainerStore: s.stores.TrainerStore,
	}
	view, err := projections.QueryGetMemberProfile(r.Context(), id, deps, s.opts.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var input member.Input
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	m, err := orchestrators.ExecuteCreateMember(r.Context(), input, s.writeDeps(), s.opts.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/members/"+formatID(m.ID))
	writeJSON(w, http.StatusCreated, s.view(r.Context(), m))
}

// handleUpdateMember serves PUT /api/members/{id}; the body fully replaces the member.
func (s *server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "member")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var input member.Input
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	m, err := orchestrators.ExecuteUpdateMember(r.Context(), id, input, s.writeDeps(), s.opts.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(r.Context(), m))
}

func (s *server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "member")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := orchestrators.ExecuteDeleteMember(r.Context(), id, s.writeDeps()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImportMembers serves POST /api/members/import.
// The CSV arrives either as a text/csv body or as the multipart field "file".
// Flags: dry_run validates without writing; update replaces members matched by email.
func (s *server) handleImportMembers(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var body io.Reader
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "text/csv", "application/csv":
		body = r.Body
	case "multipart/form-data":
		file, _, err := r.FormFile("file")
		if err != nil {
			badRequest(w, "multipart upload needs a \"file\" field")
			return
		}
		defer file.Close()
		body = file
	default:
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody{Error: "send text/csv or multipart/form-data"})
		return
	}

	input := orchestrators.ImportMembersInput{
		Reader:     body,
		DryRun:     queryBool(r, "dry_run"),
		UpdateMode: queryBool(r, "update"),
	}
	deps := orchestrators.ImportMembersDeps{Write: s.writeDeps(), Trainers: s.stores.TrainerStore}
	result, err := orchestrators.ExecuteImportMembers(r.Context(), input, deps, s.opts.Now())
	if err != nil {
		var structural *orchestrators.ImportMembersValidationError
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &structural):
			badRequest(w, structural.Message)
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "import file too large"})
		default:
			internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}
