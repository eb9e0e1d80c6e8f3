package fakebackend

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/internal/rate"
	"github.com/MrEthical07/sikad/validate"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	key := strings.ToLower(strings.TrimSpace(req.Username))

	if err := s.limiter.Check(r.Context(), key); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			writeError(w, http.StatusTooManyRequests, "Terlalu banyak percobaan login. Coba lagi nanti.")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "Service unavailable")
		return
	}

	s.mu.RLock()
	id, found := s.byUsername[key]
	var u user
	if found {
		u = *s.users[id]
	}
	s.mu.RUnlock()

	ok, rehash := false, false
	if found {
		ok, rehash = s.checkPassword(u, req.Password)
	}
	if !ok {
		_ = s.limiter.Fail(r.Context(), key)
		// No message: clients show their own wording for bad credentials.
		writeError(w, http.StatusUnauthorized, "")
		return
	}
	_ = s.limiter.Reset(r.Context(), key)

	if rehash {
		if hash, err := s.hasher.Hash(req.Password); err == nil {
			s.mu.Lock()
			if stored, ok := s.users[u.id]; ok {
				stored.passwordHash = hash
			}
			s.mu.Unlock()
		}
	}

	token, err := s.signer.Issue(strconv.FormatInt(u.id, 10), string(u.role))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeData(w, http.StatusOK, api.LoginData{Token: token}, "Login successful")
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	u, ok := s.caller(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	writeData(w, http.StatusOK, u.view(), "")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Revoke(sessionFrom(r.Context()).token)
	writeData(w, http.StatusOK, nil, "Logged out")
}

func (s *Server) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	var in api.StudentRegistration
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// Confirmation is a client concern; the backend re-checks the rest.
	if err := validate.StudentRegistration(in, in.Password); err != nil {
		writeValidation(w, err)
		return
	}
	p := api.Profile{
		Name: in.Name, Username: in.Username, Email: in.Email, Phone: in.Phone,
		Birthday: in.Birthday, Gender: in.Gender, StudentID: in.StudentID, GroupID: in.GroupID,
	}
	s.register(w, in.Password, api.RoleStudent, p)
}

func (s *Server) handleRegisterAdvisor(w http.ResponseWriter, r *http.Request) {
	var in api.AdvisorRegistration
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.AdvisorRegistration(in, in.Password); err != nil {
		writeValidation(w, err)
		return
	}
	role := api.RoleClinicPreceptor
	if in.Type == api.AdvisorAcademic {
		role = api.RoleAcademicPreceptor
	}
	p := api.Profile{
		Name: in.Name, Username: in.Username, Email: in.Email, Phone: in.Phone,
		Birthday: in.Birthday, Gender: in.Gender, StaseID: in.StaseID, AdvisorType: in.Type,
		NPWP: in.NPWP, NIP: in.NIP, Location: in.Location, Room: in.Room,
	}
	s.register(w, in.Password, role, p)
}

func (s *Server) register(w http.ResponseWriter, pw string, role api.Role, p api.Profile) {
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.mu.Lock()
	if _, taken := s.byUsername[strings.ToLower(p.Username)]; taken {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "Username sudah digunakan")
		return
	}
	id := s.addUserLocked(hash, role, p)
	out := s.users[id].view()
	s.mu.Unlock()

	writeData(w, http.StatusCreated, out, "Registrasi berhasil")
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var in api.StudentProfileUpdate
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.StudentProfile(in); err != nil {
		writeValidation(w, err)
		return
	}
	s.updateProfile(w, r, func(u *user) {
		u.profile.Name, u.profile.Email, u.profile.Phone = in.Name, in.Email, in.Phone
		if in.Birthday != "" {
			u.profile.Birthday = in.Birthday
		}
		if in.Gender != "" {
			u.profile.Gender = in.Gender
		}
		if in.StudentID != "" {
			u.profile.StudentID = in.StudentID
		}
	})
}

func (s *Server) handleUpdateAdvisor(w http.ResponseWriter, r *http.Request) {
	var in api.AdvisorProfileUpdate
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.AdvisorProfile(in); err != nil {
		writeValidation(w, err)
		return
	}
	s.updateProfile(w, r, func(u *user) {
		u.profile.Name, u.profile.Email, u.profile.Phone = in.Name, in.Email, in.Phone
		if in.Birthday != "" {
			u.profile.Birthday = in.Birthday
		}
		u.profile.StaseID, u.profile.AdvisorType = in.StaseID, in.Type
		u.profile.NPWP, u.profile.NIP = in.NPWP, in.NIP
		u.profile.Location, u.profile.Room = in.Location, in.Room
	})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, apply func(*user)) {
	id := sessionFrom(r.Context()).userID
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	apply(u)
	out := u.view()
	s.mu.Unlock()
	writeData(w, http.StatusOK, out, "Profile updated")
}

func writeValidation(w http.ResponseWriter, err error) {
	var ve *validate.Error
	if errors.As(err, &ve) {
		writeError(w, http.StatusUnprocessableEntity, ve.Message())
		return
	}
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}
