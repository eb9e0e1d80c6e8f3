package fakebackend

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/sikad/api"
)

const maxUpload = 10 << 20

type evidenceForm struct {
	activityID int64
	evidence   api.Evidence
	photo      []byte
}

func (s *Server) parseEvidence(r *http.Request) (evidenceForm, string) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return evidenceForm{}, "Invalid multipart form"
	}
	var f evidenceForm
	var err error
	if f.activityID, err = strconv.ParseInt(r.FormValue("activity_id"), 10, 64); err != nil || f.activityID <= 0 {
		return f, "Activity ID is missing"
	}
	f.evidence = api.Evidence{
		Date:      r.FormValue("date"),
		CheckTime: r.FormValue("check_time"),
		Latitude:  r.FormValue("latitude"),
		Longitude: r.FormValue("longitude"),
		Address:   r.FormValue("address"),
	}
	if f.evidence.Date == "" || f.evidence.CheckTime == "" {
		return f, "Tanggal dan jam wajib diisi"
	}
	if f.evidence.Latitude == "" || f.evidence.Longitude == "" {
		return f, "Lokasi tidak tersedia"
	}
	photo, _, err := r.FormFile("photo")
	if err != nil {
		return f, "Foto harus diambil"
	}
	defer photo.Close()
	if f.photo, err = io.ReadAll(io.LimitReader(photo, maxUpload)); err != nil || len(f.photo) == 0 {
		return f, "Foto harus diambil"
	}
	return f, ""
}

// storePhotoLocked keeps the upload and returns its public path.
func (s *Server) storePhotoLocked(data []byte) string {
	name := uuid.NewString() + ".jpg"
	s.uploads[name] = data
	return "/uploads/" + name
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	form, problem := s.parseEvidence(r)
	if problem != "" {
		writeError(w, http.StatusUnprocessableEntity, problem)
		return
	}
	studentID := sessionFrom(r.Context()).userID

	s.mu.Lock()
	if _, ok := s.activities[form.activityID]; !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Activity not found")
		return
	}
	for _, v := range s.visits {
		if v.studentID == studentID && v.checkOut == nil {
			s.mu.Unlock()
			writeError(w, http.StatusConflict, "Masih ada check-in yang belum check-out")
			return
		}
	}
	v := &visit{id: s.newID(), studentID: studentID, activityID: form.activityID, checkIn: form.evidence, status: api.StatusPending}
	v.checkIn.ID = v.id
	v.checkIn.Photo = s.storePhotoLocked(form.photo)
	s.visits[v.id] = v
	out := v.entry()
	s.mu.Unlock()

	writeData(w, http.StatusCreated, out, "Check-in berhasil")
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Check-in ID or Activity ID is missing")
		return
	}
	form, problem := s.parseEvidence(r)
	if problem != "" {
		writeError(w, http.StatusUnprocessableEntity, problem)
		return
	}
	description := strings.TrimSpace(r.FormValue("description"))
	if description == "" {
		writeError(w, http.StatusUnprocessableEntity, "Deskripsi kegiatan harus diisi")
		return
	}
	studentID := sessionFrom(r.Context()).userID

	s.mu.Lock()
	v, found := s.visits[id]
	switch {
	case !found || v.studentID != studentID:
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Check-in not found")
		return
	case v.checkOut != nil:
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "Sudah check-out")
		return
	}
	out := form.evidence
	out.ID = s.newID()
	out.Description = description
	out.Photo = s.storePhotoLocked(form.photo)
	v.checkOut = &out
	entry := v.entry()
	s.mu.Unlock()

	writeData(w, http.StatusOK, entry, "Check-out berhasil")
}

func (s *Server) handleStudentLogbooks(w http.ResponseWriter, r *http.Request) {
	studentID := sessionFrom(r.Context()).userID

	s.mu.RLock()
	var out []api.LogbookEntry
	for _, v := range s.visits {
		if v.studentID == studentID {
			out = append(out, v.entry())
		}
	}
	s.mu.RUnlock()

	// Newest first; ids are allocated in order.
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInID > out[j].CheckInID })
	if out == nil {
		out = []api.LogbookEntry{}
	}
	writeData(w, http.StatusOK, out, "")
}

func (s *Server) handleLogbookDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	caller, _ := s.caller(r)

	s.mu.RLock()
	defer s.mu.RUnlock()
	v, found := s.visits[id]
	if !found || (caller.role.IsStudent() && v.studentID != caller.id) {
		writeError(w, http.StatusNotFound, "Logbook not found")
		return
	}

	var d api.LogbookDetails
	if st, ok := s.users[v.studentID]; ok {
		d.Student.ID = st.id
		d.Student.Name = st.profile.Name
		d.Student.NIM = st.profile.StudentID
		d.Student.GroupName = st.groupName
	}
	d.Activity.ID = v.activityID
	if a, ok := s.activities[v.activityID]; ok {
		d.Activity.Name = a.Name
	}
	d.CheckIn = v.checkIn
	if v.checkOut != nil {
		out := *v.checkOut
		d.CheckOut = &out
	}
	d.Status = v.status
	writeData(w, http.StatusOK, d, "")
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	var in api.Verification
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Status != api.StatusVerified && in.Status != api.StatusRejected {
		writeError(w, http.StatusUnprocessableEntity, "Status must be verified or rejected")
		return
	}

	s.mu.Lock()
	v, found := s.visits[id]
	if !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Logbook not found")
		return
	}
	if v.checkOut == nil {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "Mahasiswa belum check-out")
		return
	}
	v.status, v.note = in.Status, in.Note
	out := v.entry()
	s.mu.Unlock()

	writeData(w, http.StatusOK, out, "Logbook updated")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	data, ok := s.uploads[chi.URLParam(r, "name")]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(data)
}
