package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Role is the backend-supplied tag that decides which screens a user sees.
type Role string

const (
	RoleStudent           Role = "student"
	RoleAdvisor           Role = "advisor"
	RoleProgramHead       Role = "kaprodi"
	RoleMahasiswa         Role = "mahasiswa"
	RoleDosen             Role = "dosen"
	RoleAcademicPreceptor Role = "preseptor_akademik"
	RoleClinicPreceptor   Role = "preseptor_klinik"
)

// IsStudent reports whether r is a student role in either vocabulary.
func (r Role) IsStudent() bool {
	return r == RoleStudent || r == RoleMahasiswa
}

// IsAdvisor reports whether r is any advisor or preceptor role.
func (r Role) IsAdvisor() bool {
	switch r {
	case RoleAdvisor, RoleDosen, RoleAcademicPreceptor, RoleClinicPreceptor:
		return true
	}
	return false
}

// IsProgramHead reports whether r sees program-wide statistics.
func (r Role) IsProgramHead() bool {
	return r == RoleProgramHead
}

// AdvisorType distinguishes academic from clinic advisors.
type AdvisorType string

const (
	AdvisorAcademic AdvisorType = "academic"
	AdvisorClinic   AdvisorType = "clinic"
)

// ID is a backend identifier that may arrive as a JSON number or string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Int64 parses a numeric ID.
func (id ID) Int64() (int64, error) {
	return strconv.ParseInt(string(id), 10, 64)
}

// Profile is the session user. Known fields are typed; anything else the backend
// sends is kept verbatim in Extra and written back by MarshalJSON.
type Profile struct {
	ID          ID          `json:"id"`
	Name        string      `json:"name"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Role        Role        `json:"role"`
	Phone       string      `json:"phone,omitempty"`
	Birthday    string      `json:"birthday,omitempty"`
	Gender      string      `json:"gender,omitempty"`
	StudentID   string      `json:"student_id,omitempty"`
	GroupID     int64       `json:"group_id,omitempty"`
	StaseID     int64       `json:"stase_id,omitempty"`
	AdvisorType AdvisorType `json:"type,omitempty"`
	NPWP        string      `json:"npwp,omitempty"`
	NIP         string      `json:"nip,omitempty"`
	Location    string      `json:"location,omitempty"`
	Room        string      `json:"room,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type profileFields Profile

var profileKnownKeys = map[string]struct{}{
	"id": {}, "name": {}, "username": {}, "email": {}, "role": {}, "phone": {},
	"birthday": {}, "gender": {}, "student_id": {}, "group_id": {}, "stase_id": {},
	"type": {}, "npwp": {}, "nip": {}, "location": {}, "room": {},
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	var known profileFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*p = Profile(known)
	p.Extra = nil
	for k, v := range all {
		if _, ok := profileKnownKeys[k]; ok {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[k] = v
	}
	return nil
}

func (p Profile) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(profileFields(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return known, nil
	}
	merged := make(map[string]json.RawMessage, len(p.Extra)+len(profileKnownKeys))
	for k, v := range p.Extra {
		if _, ok := profileKnownKeys[k]; ok {
			continue
		}
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// ExtraString returns an extension field decoded as a string.
func (p Profile) ExtraString(key string) (string, bool) {
	raw, ok := p.Extra[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// LoginData is the payload of a successful login.
type LoginData struct {
	Token string `json:"token"`
}

// Stase is a clinical rotation station.
type Stase struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Group is a student cohort.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Activity is an advisor-created rotation activity students log against.
type Activity struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Indicators        string `json:"indicators"`
	ClinicAdvisorID   int64  `json:"clinic_advisor_id,omitempty"`
	AdvisorClinicName string `json:"advisor_clinic_name,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
}

// ActivityInput creates or updates an [Activity].
type ActivityInput struct {
	Name            string `json:"name"`
	Indicators      string `json:"indicators"`
	ClinicAdvisorID int64  `json:"clinic_advisor_id"`
}

// ClinicAdvisor is a selectable supervisor for activities. Some backends send the
// advisor row id as advisor_id; [ClinicAdvisor.UnmarshalJSON] prefers it over id.
type ClinicAdvisor struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Room     string `json:"room,omitempty"`
}

func (a *ClinicAdvisor) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        int64  `json:"id"`
		AdvisorID int64  `json:"advisor_id"`
		Name      string `json:"name"`
		Location  string `json:"location"`
		Room      string `json:"room"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.ID = raw.ID
	if raw.AdvisorID != 0 {
		a.ID = raw.AdvisorID
	}
	a.Name, a.Location, a.Room = raw.Name, raw.Location, raw.Room
	return nil
}

// LogbookStatus is the verification state of a visit.
type LogbookStatus string

const (
	StatusPending  LogbookStatus = "pending"
	StatusVerified LogbookStatus = "verified"
	StatusRejected LogbookStatus = "rejected"
	StatusDraft    LogbookStatus = "draft"
)

// LogbookEntry summarizes one check-in and its optional check-out.
type LogbookEntry struct {
	CheckInID    int64         `json:"check_in_id"`
	ActivityID   int64         `json:"activity_id,omitempty"`
	CheckInDate  string        `json:"check_in_date"`
	CheckInTime  string        `json:"check_in_time"`
	CheckOutDate *string       `json:"check_out_date"`
	CheckOutTime *string       `json:"check_out_time"`
	Status       LogbookStatus `json:"status"`
}

// CheckedOut reports whether the entry has a check-out.
func (e LogbookEntry) CheckedOut() bool {
	return e.CheckOutDate != nil && *e.CheckOutDate != ""
}

// Evidence is the photo and location captured at check-in or check-out.
type Evidence struct {
	ID          int64  `json:"id"`
	Address     string `json:"address"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Photo       string `json:"photo"`
	CheckTime   string `json:"check_time"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

// LogbookDetails is the full record of one visit.
type LogbookDetails struct {
	Student struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		NIM       string `json:"nim"`
		GroupName string `json:"group_name"`
	} `json:"student"`
	Activity struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"activity"`
	CheckIn  Evidence          `json:"check_in"`
	CheckOut *Evidence         `json:"check_out,omitempty"`
	Scores   []json.RawMessage `json:"scores,omitempty"`
	Status   LogbookStatus     `json:"status,omitempty"`
}

// Verification is an advisor's decision on a visit.
type Verification struct {
	Status LogbookStatus `json:"status"`
	Note   string        `json:"note,omitempty"`
}

// Statistics backs the dashboard cards. Fields not relevant to the caller's role are zero.
type Statistics struct {
	Visits   int `json:"visits"`
	Verified int `json:"verified"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected,omitempty"`
	Students int `json:"students,omitempty"`
	Advisors int `json:"advisors,omitempty"`
}

// FileInfo describes a downloadable guide document.
type FileInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	Size      int64  `json:"size,omitempty"`
}

// StudentRegistration creates a student account.
type StudentRegistration struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Birthday  string `json:"birthday"`
	Gender    string `json:"gender"`
	StudentID string `json:"student_id"`
	GroupID   int64  `json:"group_id"`
	Password  string `json:"password"`
}

// AdvisorRegistration creates an advisor account.
type AdvisorRegistration struct {
	Name     string      `json:"name"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone"`
	Birthday string      `json:"birthday"`
	Gender   string      `json:"gender"`
	StaseID  int64       `json:"stase_id"`
	Type     AdvisorType `json:"type"`
	NPWP     string      `json:"npwp,omitempty"`
	NIP      string      `json:"nip,omitempty"`
	Location string      `json:"location,omitempty"`
	Room     string      `json:"room,omitempty"`
	Password string      `json:"password"`
}

// StudentProfileUpdate edits the caller's student profile.
type StudentProfileUpdate struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Birthday  string `json:"birthday"`
	Gender    string `json:"gender"`
	StudentID string `json:"student_id"`
}

// AdvisorProfileUpdate edits the caller's advisor profile.
type AdvisorProfileUpdate struct {
	Name     string      `json:"name"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone"`
	Birthday string      `json:"birthday"`
	Gender   string      `json:"gender"`
	StaseID  int64       `json:"stase_id"`
	Type     AdvisorType `json:"type"`
	NPWP     string      `json:"npwp,omitempty"`
	NIP      string      `json:"nip,omitempty"`
	Location string      `json:"location,omitempty"`
	Room     string      `json:"room,omitempty"`
}
