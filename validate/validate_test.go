package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/MrEthical07/sikad/api"
)

func validStudent() api.StudentRegistration {
	return api.StudentRegistration{
		Name: "Budi", Username: "budi", Email: "budi@example.com", Phone: "0812",
		Birthday: "17-08-2001", Gender: "L", StudentID: "K1111", GroupID: 2, Password: "Secret1!",
	}
}

func fieldsOf(t *testing.T, err error) *Error {
	t.Helper()
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Fatal("expected errors.Is ErrInvalid")
	}
	return ve
}

func TestStudentRegistration(t *testing.T) {
	if err := StudentRegistration(validStudent(), "Secret1!"); err != nil {
		t.Fatalf("unexpected %v", err)
	}

	in := validStudent()
	in.GroupID = 0
	in.StudentID = ""
	ve := fieldsOf(t, StudentRegistration(in, "Secret1!"))
	if !ve.Has("group_id") || !ve.Has("student_id") {
		t.Fatalf("unexpected fields %+v", ve.Fields)
	}
	if ve.Message() != "NIM wajib diisi" {
		t.Fatalf("unexpected first message %q", ve.Message())
	}

	ve = fieldsOf(t, StudentRegistration(validStudent(), "Secret2!"))
	if !ve.Has("confirm_password") {
		t.Fatalf("expected confirm mismatch, got %+v", ve.Fields)
	}

	in = validStudent()
	in.Password = "secret1!"
	ve = fieldsOf(t, StudentRegistration(in, "secret1!"))
	if ve.Message() != "Password harus mengandung huruf besar" {
		t.Fatalf("unexpected password message %q", ve.Message())
	}
}

func TestBirthday(t *testing.T) {
	for _, ok := range []string{"01-01-2000", "29-02-2004"} {
		if err := Birthday(ok); err != nil {
			t.Fatalf("Birthday(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "2000-01-01", "1-1-2000", "31-02-2001", "aa-bb-cccc"} {
		if err := Birthday(bad); err == nil {
			t.Fatalf("Birthday(%q) accepted", bad)
		}
	}
}

func TestAdvisorTypeRequirements(t *testing.T) {
	base := api.AdvisorRegistration{
		Name: "Sari", Username: "sari", Email: "s@example.com", Phone: "1", Birthday: "01-01-1980",
		Gender: "P", StaseID: 3, Password: "Secret1!",
	}

	academic := base
	academic.Type = api.AdvisorAcademic
	ve := fieldsOf(t, AdvisorRegistration(academic, "Secret1!"))
	if !strings.Contains(ve.Message(), "NPWP and NIP") {
		t.Fatalf("unexpected %q", ve.Message())
	}
	academic.NPWP, academic.NIP = "12", "34"
	if err := AdvisorRegistration(academic, "Secret1!"); err != nil {
		t.Fatalf("unexpected %v", err)
	}

	clinic := base
	clinic.Type = api.AdvisorClinic
	clinic.Location = "RS Wahidin"
	ve = fieldsOf(t, AdvisorRegistration(clinic, "Secret1!"))
	if !ve.Has("location") {
		t.Fatalf("expected location failure, got %+v", ve.Fields)
	}

	none := base
	none.StaseID = 0
	ve = fieldsOf(t, AdvisorRegistration(none, "Secret1!"))
	if !ve.Has("stase_id") || !ve.Has("type") {
		t.Fatalf("unexpected fields %+v", ve.Fields)
	}
}

func TestProfileRequiresBasics(t *testing.T) {
	err := StudentProfile(api.StudentProfileUpdate{Name: "Budi", Email: "b@example.com"})
	if fieldsOf(t, err).Message() != "Please fill in all required fields" {
		t.Fatalf("unexpected %v", err)
	}
	if err := StudentProfile(api.StudentProfileUpdate{Name: "Budi", Email: "b@example.com", Phone: "1"}); err != nil {
		t.Fatalf("unexpected %v", err)
	}
}

func TestActivity(t *testing.T) {
	ve := fieldsOf(t, Activity(api.ActivityInput{}))
	if len(ve.Fields) != 3 {
		t.Fatalf("expected three failures, got %+v", ve.Fields)
	}
	if err := Activity(api.ActivityInput{Name: "Triage", Indicators: "x", ClinicAdvisorID: 4}); err != nil {
		t.Fatalf("unexpected %v", err)
	}
}

func TestCheckInAndOut(t *testing.T) {
	ve := fieldsOf(t, CheckIn(api.CheckInForm{ActivityID: 1}))
	if !ve.Has("photo") || !ve.Has("location") {
		t.Fatalf("unexpected %+v", ve.Fields)
	}
	form := api.CheckInForm{
		ActivityID: 1,
		Photo:      api.Photo{Content: strings.NewReader("x")},
		Location:   api.Location{Latitude: -5.1, Longitude: 119.4},
	}
	if err := CheckIn(form); err != nil {
		t.Fatalf("unexpected %v", err)
	}

	out := api.CheckOutForm{ActivityID: 1, Photo: form.Photo, Location: form.Location}
	ve = fieldsOf(t, CheckOut(9, out))
	if !ve.Has("description") || len(ve.Fields) != 1 {
		t.Fatalf("unexpected %+v", ve.Fields)
	}
}

func TestLoginAndVerification(t *testing.T) {
	if err := Login("", ""); len(fieldsOf(t, err).Fields) != 2 {
		t.Fatalf("unexpected %v", err)
	}
	if err := Verification(api.Verification{Status: api.StatusPending}); err == nil {
		t.Fatal("pending is not a decision")
	}
	if err := Verification(api.Verification{Status: api.StatusVerified}); err != nil {
		t.Fatalf("unexpected %v", err)
	}
}
