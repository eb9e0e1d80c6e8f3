package validate

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/password"
)

// ErrInvalid matches every [*Error] via errors.Is.
var ErrInvalid = errors.New("validation failed")

// FieldError is one failed check.
type FieldError struct {
	Field   string
	Message string
}

// Error collects the failed checks of one form.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalid.Error()
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *Error) Is(target error) bool { return target == ErrInvalid }

// Message is the first failure, which is what a form shows.
func (e *Error) Message() string {
	if len(e.Fields) == 0 {
		return ErrInvalid.Error()
	}
	return e.Fields[0].Message
}

// Has reports whether field failed.
func (e *Error) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type collector struct {
	fields []FieldError
}

func (c *collector) add(field, msg string) {
	c.fields = append(c.fields, FieldError{Field: field, Message: msg})
}

func (c *collector) required(field, value, msg string) {
	if strings.TrimSpace(value) == "" {
		c.add(field, msg)
	}
}

func (c *collector) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &Error{Fields: c.fields}
}

var birthdayPattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)

// BirthdayLayout is the date layout the backend accepts for birthdays.
const BirthdayLayout = "02-01-2006"

// Birthday checks a dd-mm-yyyy date.
func Birthday(s string) error {
	var c collector
	c.birthday(s)
	return c.err()
}

func (c *collector) birthday(s string) {
	if strings.TrimSpace(s) == "" {
		c.add("birthday", "Tanggal lahir wajib diisi")
		return
	}
	if !birthdayPattern.MatchString(s) {
		c.add("birthday", "Format tanggal lahir tidak valid")
		return
	}
	if _, err := time.Parse(BirthdayLayout, s); err != nil {
		c.add("birthday", "Format tanggal lahir tidak valid")
	}
}

func (c *collector) password(pw, confirm string) {
	if err := password.Check(pw); err != nil {
		// Report the first broken rule, matching the form's one-alert flow.
		msg := err.Error()
		if i := strings.IndexByte(msg, '\n'); i >= 0 {
			msg = msg[:i]
		}
		c.add("password", msg)
		return
	}
	if err := password.Confirm(pw, confirm); err != nil {
		c.add("confirm_password", err.Error())
	}
}

// Login checks that both credentials are present.
func Login(username, pw string) error {
	var c collector
	c.required("username", username, "Username wajib diisi")
	c.required("password", pw, "Password wajib diisi")
	return c.err()
}

// StudentRegistration checks a student sign-up form.
func StudentRegistration(in api.StudentRegistration, confirm string) error {
	var c collector
	c.required("name", in.Name, "Nama wajib diisi")
	c.required("gender", in.Gender, "Jenis kelamin wajib dipilih")
	c.required("phone", in.Phone, "Nomor telepon wajib diisi")
	c.birthday(in.Birthday)
	c.required("student_id", in.StudentID, "NIM wajib diisi")
	if in.GroupID == 0 {
		c.add("group_id", "Kelompok wajib dipilih")
	}
	c.required("email", in.Email, "Email wajib diisi")
	c.required("username", in.Username, "Username wajib diisi")
	c.password(in.Password, confirm)
	return c.err()
}

// AdvisorRegistration checks an advisor sign-up form.
func AdvisorRegistration(in api.AdvisorRegistration, confirm string) error {
	var c collector
	c.required("name", in.Name, "Nama wajib diisi")
	c.required("gender", in.Gender, "Jenis kelamin wajib dipilih")
	c.required("phone", in.Phone, "Nomor telepon wajib diisi")
	c.birthday(in.Birthday)
	c.advisor(in.StaseID, in.Type, in.NPWP, in.NIP, in.Location, in.Room)
	c.required("email", in.Email, "Email wajib diisi")
	c.required("username", in.Username, "Username wajib diisi")
	c.password(in.Password, confirm)
	return c.err()
}

func (c *collector) advisor(staseID int64, typ api.AdvisorType, npwp, nip, location, room string) {
	if staseID == 0 {
		c.add("stase_id", "Stase wajib dipilih")
	}
	switch typ {
	case api.AdvisorAcademic:
		if strings.TrimSpace(npwp) == "" || strings.TrimSpace(nip) == "" {
			c.add("npwp", "NPWP and NIP are required for academic advisors")
		}
	case api.AdvisorClinic:
		if strings.TrimSpace(location) == "" || strings.TrimSpace(room) == "" {
			c.add("location", "Location and room are required for clinic advisors")
		}
	default:
		c.add("type", "Silakan pilih role Anda")
	}
}

// StudentProfile checks a student profile update.
func StudentProfile(in api.StudentProfileUpdate) error {
	var c collector
	c.profileBasics(in.Name, in.Email, in.Phone)
	if in.Birthday != "" {
		c.birthday(in.Birthday)
	}
	return c.err()
}

// AdvisorProfile checks an advisor profile update.
func AdvisorProfile(in api.AdvisorProfileUpdate) error {
	var c collector
	c.profileBasics(in.Name, in.Email, in.Phone)
	if in.Birthday != "" {
		c.birthday(in.Birthday)
	}
	c.advisor(in.StaseID, in.Type, in.NPWP, in.NIP, in.Location, in.Room)
	return c.err()
}

func (c *collector) profileBasics(name, email, phone string) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || strings.TrimSpace(phone) == "" {
		c.add("name", "Please fill in all required fields")
	}
}

// Activity checks an activity create or update form.
func Activity(in api.ActivityInput) error {
	var c collector
	c.required("name", in.Name, "Name is required")
	c.required("indicators", in.Indicators, "Indicators are required")
	if in.ClinicAdvisorID == 0 {
		c.add("clinic_advisor_id", "Please select a clinic advisor")
	}
	return c.err()
}

// CheckIn checks arrival evidence.
func CheckIn(in api.CheckInForm) error {
	var c collector
	c.evidence(in.ActivityID, in.Photo, in.Location)
	return c.err()
}

// CheckOut checks departure evidence.
func CheckOut(checkInID int64, in api.CheckOutForm) error {
	var c collector
	if checkInID == 0 {
		c.add("check_in_id", "Check-in ID or Activity ID is missing")
	}
	c.evidence(in.ActivityID, in.Photo, in.Location)
	c.required("description", in.Description, "Deskripsi kegiatan harus diisi")
	return c.err()
}

func (c *collector) evidence(activityID int64, photo api.Photo, loc api.Location) {
	if activityID == 0 {
		c.add("activity_id", "Activity ID is missing")
	}
	if photo.Content == nil {
		c.add("photo", "Foto harus diambil")
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		c.add("location", "Lokasi tidak tersedia")
	}
}

// Verification checks an advisor's decision.
func Verification(in api.Verification) error {
	var c collector
	switch in.Status {
	case api.StatusVerified, api.StatusRejected:
	default:
		c.add("status", "Status must be verified or rejected")
	}
	return c.err()
}
