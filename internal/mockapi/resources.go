package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/maresidence/pkg/slogx"
)

// Object is a JSON object as stored and served by the fake provider.
type Object = map[string]any

// resource describes how the provider exposes one collection.
type resource struct {
	envelope  string // singular key wrapping an entity
	creatable bool
}

var resources = map[string]resource{
	"news":             {envelope: "news"},
	"adverts":          {envelope: "advert", creatable: true},
	"advertcategories": {envelope: "advertcategory"},
	"events":           {envelope: "event"},
	"habitations":      {envelope: "habitation"},
	"habitationgroups": {envelope: "habitationgroup"},
	"recommendations":  {envelope: "recommendation", creatable: true},
	"users":            {envelope: "user", creatable: true},
	"associations":     {envelope: "association"},
	"shops":            {envelope: "shop"},
}

// Seed stores entity under resource and returns its id. An "id" already
// present in entity is kept; otherwise one is minted. "self" is always set.
func (s *Server) Seed(name string, entity Object) (string, error) {
	if _, ok := resources[name]; !ok {
		return "", fmt.Errorf("unknown resource %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(name, entity), nil
}

func (s *Server) insertLocked(name string, entity Object) string {
	stored := make(Object, len(entity)+2)
	for k, v := range entity {
		stored[k] = v
	}

	id, _ := stored["id"].(string)
	if id == "" {
		id = s.ids.New().String()
	}
	stored["id"] = id
	stored["self"] = "/api/" + name + "/" + id

	if s.items[name] == nil {
		s.items[name] = make(map[string]Object)
	}
	if _, exists := s.items[name][id]; !exists {
		s.order[name] = append(s.order[name], id)
	}
	s.items[name][id] = stored

	return id
}

// requestInfo echoes what the provider understood of a list request.
func requestInfo(r *http.Request) Object {
	query := Object{}
	for k, v := range r.URL.Query() {
		if k == "access_token" {
			continue
		}
		if len(v) == 1 {
			query[k] = v[0]
		} else {
			query[k] = v
		}
	}

	info := Object{"query": query}
	if v := acceptVersion(r); v != "" {
		info["version"] = v
	}
	return info
}

// acceptVersion extracts N from "application/<vendor>.vN".
func acceptVersion(r *http.Request) string {
	accept := r.Header.Get("Accept")
	i := strings.LastIndex(accept, ".v")
	if !strings.HasPrefix(accept, "application/") || i < 0 {
		return ""
	}
	return accept[i+2:]
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("resource")
	if _, ok := resources[name]; !ok {
		writeError(w, http.StatusNotFound, "not_found", "No route found for "+r.URL.Path)
		return
	}

	s.mu.RLock()
	list := make([]Object, 0, len(s.order[name]))
	for _, id := range s.order[name] {
		list = append(list, s.items[name][id])
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, Object{
		"request": requestInfo(r),
		name:      list,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("resource")
	res, ok := resources[name]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "No route found for "+r.URL.Path)
		return
	}

	id := r.PathValue("id")

	s.mu.RLock()
	entity, ok := s.items[name][id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("%s %q not found", res.envelope, id))
		return
	}

	writeJSON(w, http.StatusOK, Object{res.envelope: entity})
}

// handleCreate stores the entity wrapped in the resource envelope. Users are
// unique by email: a duplicate answers 409 with the existing user.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("resource")
	res, ok := resources[name]
	if !ok || !res.creatable {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Resource cannot be created")
		return
	}

	fields, ok := decodeEnvelope(w, r, res.envelope)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "users" {
		email, _ := fields["email"].(string)
		if email == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
			return
		}
		for _, id := range s.order[name] {
			if existing := s.items[name][id]; existing["email"] == email {
				writeJSON(w, http.StatusConflict, Object{res.envelope: existing})
				return
			}
		}
	}

	delete(fields, "id")
	id := s.insertLocked(name, fields)
	slogx.FromContext(r.Context()).Info("resource created", "resource", name, "id", id)

	writeJSON(w, http.StatusCreated, Object{res.envelope: s.items[name][id]})
}

func (s *Server) handleListShares(w http.ResponseWriter, r *http.Request) {
	advertID := r.PathValue("id")

	s.mu.RLock()
	_, exists := s.items["adverts"][advertID]
	shares := append([]Object{}, s.shares[advertID]...)
	s.mu.RUnlock()

	if !exists {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("advert %q not found", advertID))
		return
	}

	writeJSON(w, http.StatusOK, Object{
		"request": requestInfo(r),
		"shares":  shares,
	})
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	advertID := r.PathValue("id")

	fields, ok := decodeEnvelope(w, r, "share")
	if !ok {
		return
	}

	email, _ := fields["email"].(string)
	if email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items["adverts"][advertID]; !exists {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("advert %q not found", advertID))
		return
	}

	share := Object{"email": email, "advert": advertID}
	for k, v := range fields {
		if _, set := share[k]; !set {
			share[k] = v
		}
	}
	s.shares[advertID] = append(s.shares[advertID], share)

	writeJSON(w, http.StatusCreated, Object{"share": share})
}

// decodeEnvelope reads {"<envelope>": {...}} and writes a 400 when the body
// does not have that shape.
func decodeEnvelope(w http.ResponseWriter, r *http.Request, envelope string) (Object, bool) {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "invalid_request", "Content-Type must be application/json")
		return nil, false
	}

	var body map[string]Object
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return nil, false
	}

	fields, ok := body[envelope]
	if !ok || fields == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Missing %q envelope", envelope))
		return nil, false
	}
	return fields, true
}
