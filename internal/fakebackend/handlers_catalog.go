package fakebackend

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/validate"
)

func (s *Server) handleStases(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := append([]api.Stase{}, s.stases...)
	s.mu.RUnlock()
	writeData(w, http.StatusOK, out, "")
}

func (s *Server) handleGroups(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := append([]api.Group{}, s.groups...)
	s.mu.RUnlock()
	writeData(w, http.StatusOK, out, "")
}

func (s *Server) handleListActivities(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := make([]api.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		out = append(out, *a)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeData(w, http.StatusOK, out, "")
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var in api.ActivityInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Activity(in); err != nil {
		writeValidation(w, err)
		return
	}

	s.mu.Lock()
	advisor, ok := s.users[in.ClinicAdvisorID]
	if !ok || advisor.role != api.RoleClinicPreceptor {
		s.mu.Unlock()
		writeError(w, http.StatusUnprocessableEntity, "Please select a clinic advisor")
		return
	}
	id := s.newID()
	a := &api.Activity{
		ID:                id,
		Name:              in.Name,
		Indicators:        in.Indicators,
		ClinicAdvisorID:   in.ClinicAdvisorID,
		AdvisorClinicName: advisor.profile.Name,
		CreatedAt:         s.now().Format("2006-01-02 15:04:05"),
	}
	s.activities[id] = a
	out := *a
	s.mu.Unlock()

	writeData(w, http.StatusCreated, out, "Activity created")
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var in api.ActivityInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Activity(in); err != nil {
		writeValidation(w, err)
		return
	}

	s.mu.Lock()
	a, found := s.activities[id]
	advisor, advisorOK := s.users[in.ClinicAdvisorID]
	switch {
	case !found:
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Activity not found")
		return
	case !advisorOK || advisor.role != api.RoleClinicPreceptor:
		s.mu.Unlock()
		writeError(w, http.StatusUnprocessableEntity, "Please select a clinic advisor")
		return
	}
	a.Name, a.Indicators = in.Name, in.Indicators
	a.ClinicAdvisorID, a.AdvisorClinicName = in.ClinicAdvisorID, advisor.profile.Name
	out := *a
	s.mu.Unlock()

	writeData(w, http.StatusOK, out, "Activity updated")
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	s.mu.Lock()
	_, found := s.activities[id]
	delete(s.activities, id)
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "Activity not found")
		return
	}
	writeData(w, http.StatusOK, nil, "Activity deleted")
}

// clinicAdvisorRow mirrors the backend, which keys advisors by advisor_id.
type clinicAdvisorRow struct {
	AdvisorID int64  `json:"advisor_id"`
	Name      string `json:"name"`
	Location  string `json:"location,omitempty"`
	Room      string `json:"room,omitempty"`
}

func (s *Server) handleClinicAdvisors(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := []clinicAdvisorRow{}
	for _, u := range s.users {
		if u.role == api.RoleClinicPreceptor {
			out = append(out, clinicAdvisorRow{AdvisorID: u.id, Name: u.profile.Name, Location: u.profile.Location, Room: u.profile.Room})
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].AdvisorID < out[j].AdvisorID })
	writeData(w, http.StatusOK, out, "")
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	caller, _ := s.caller(r)

	s.mu.RLock()
	var st api.Statistics
	for _, v := range s.visits {
		if !s.visibleLocked(caller, v) {
			continue
		}
		st.Visits++
		switch v.status {
		case api.StatusVerified:
			st.Verified++
		case api.StatusRejected:
			st.Rejected++
		default:
			st.Pending++
		}
	}
	if caller.role.IsProgramHead() {
		for _, u := range s.users {
			switch {
			case u.role.IsStudent():
				st.Students++
			case u.role.IsAdvisor():
				st.Advisors++
			}
		}
	}
	s.mu.RUnlock()
	writeData(w, http.StatusOK, st, "")
}

// visibleLocked decides which visits count toward a caller's statistics.
func (s *Server) visibleLocked(caller user, v *visit) bool {
	switch {
	case caller.role.IsStudent():
		return v.studentID == caller.id
	case caller.role == api.RoleClinicPreceptor:
		a, ok := s.activities[v.activityID]
		return ok && a.ClinicAdvisorID == caller.id
	}
	return true
}

func (s *Server) handleFiles(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := make([]api.FileInfo, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f.info)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeData(w, http.StatusOK, out, "")
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	s.mu.RLock()
	f, found := s.files[id]
	s.mu.RUnlock()
	if !found {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(f.content)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.info.Name+`"`)
	_, _ = w.Write(f.content)
}
