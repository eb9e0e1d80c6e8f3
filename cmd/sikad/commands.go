package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/MrEthical07/sikad"
	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/guard"
)

type cli struct {
	engine *sikad.Engine
	out    io.Writer
	stdin  io.Reader
}

type command struct {
	summary string
	// route maps the command onto a guarded route. Empty skips the guard.
	route func(guard.Routes) string
	run   func(ctx context.Context, c *cli, args []string) error
}

func loginRoute(r guard.Routes) string    { return r.Login }
func registerRoute(r guard.Routes) string { return r.Register }
func unguarded(guard.Routes) string       { return "" }

// tab places a command under the authenticated home route.
func tab(name string) func(guard.Routes) string {
	return func(r guard.Routes) string {
		return strings.TrimSuffix(r.Home, "/") + "/" + name
	}
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"login":            {"sign in: login <username> [-password p]", loginRoute, runLogin},
		"logout":           {"sign out, also when offline", unguarded, runLogout},
		"whoami":           {"show the signed-in profile and session report", tab("profile"), runWhoami},
		"verify":           {"ask the backend whether the session is still valid", unguarded, runVerify},
		"route":            {"show the guard decision for a path: route <path>", unguarded, runRoute},
		"activities":       {"list activities", tab("activities"), runActivities},
		"activity-create":  {"create an activity", tab("activities"), runActivityCreate},
		"activity-update":  {"update an activity: activity-update <id>", tab("activities"), runActivityUpdate},
		"activity-delete":  {"delete an activity: activity-delete <id>", tab("activities"), runActivityDelete},
		"advisors":         {"list clinic advisors", tab("activities"), runAdvisors},
		"checkin":          {"check in with photo and location", tab("checkin"), runCheckIn},
		"checkout":         {"check out: checkout <check-in id>", tab("checkin"), runCheckOut},
		"logbooks":         {"list your logbook entries", tab("logbook"), runLogbooks},
		"logbook":          {"show one visit: logbook <check-in id>", tab("logbook"), runLogbook},
		"verify-visit":     {"verify or reject a visit: verify-visit <check-in id>", tab("logbook"), runVerifyVisit},
		"stats":            {"show dashboard statistics", tab("index"), runStats},
		"files":            {"list guide documents", tab("files"), runFiles},
		"download":         {"download a guide: download <id> [-o path]", tab("files"), runDownload},
		"stases":           {"list rotation stations", unguarded, runStases},
		"groups":           {"list student groups", unguarded, runGroups},
		"register-student": {"register a student account", registerRoute, runRegisterStudent},
		"register-advisor": {"register an advisor account", registerRoute, runRegisterAdvisor},
		"profile-update":   {"update your profile", tab("profile"), runProfileUpdate},
	}
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func argID(fs *flag.FlagSet) (int64, error) {
	if fs.NArg() < 1 {
		return 0, fmt.Errorf("%s: id required", fs.Name())
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: bad id %q", fs.Name(), fs.Arg(0))
	}
	return id, nil
}

// parse accepts flags before and after positional arguments.
func parse(fs *flag.FlagSet, args []string) error {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	return fs.Parse(positional)
}

func (c *cli) readPassword(prompt string) (string, error) {
	if pw := os.Getenv("SIKAD_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

/*
====================================
SESSION
====================================
*/

func runLogin(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("login")
	pw := fs.String("password", "", "password; SIKAD_PASSWORD or stdin when empty")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *pw == "" {
		var err error
		if *pw, err = c.readPassword("Password: "); err != nil {
			return err
		}
	}
	res, err := c.engine.Login(ctx, fs.Arg(0), *pw)
	if err != nil {
		if res.Message != "" {
			return errors.New(res.Message)
		}
		return err
	}
	p := c.engine.Profile()
	fmt.Fprintf(c.out, "Login berhasil: %s (%s)\n", p.Name, p.Role)
	return nil
}

func runLogout(ctx context.Context, c *cli, _ []string) error {
	if err := c.engine.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Logout berhasil")
	return nil
}

func runWhoami(_ context.Context, c *cli, _ []string) error {
	report := c.engine.SecurityReport()
	return c.print(struct {
		Profile  api.Profile `json:"profile"`
		State    string      `json:"state"`
		Expires  string      `json:"token_expires_at,omitempty"`
		Warnings []string    `json:"warnings,omitempty"`
	}{
		Profile:  c.engine.Profile(),
		State:    report.State.String(),
		Expires:  formatTime(report),
		Warnings: report.Warnings(),
	})
}

func formatTime(r sikad.SecurityReport) string {
	if r.TokenExpiresAt.IsZero() {
		return ""
	}
	return r.TokenExpiresAt.Format("2006-01-02 15:04:05 MST")
}

func runVerify(ctx context.Context, c *cli, _ []string) error {
	if !c.engine.VerifySession(ctx) {
		return sikad.ErrSessionRejected
	}
	fmt.Fprintln(c.out, "Sesi valid")
	return nil
}

func runRoute(_ context.Context, c *cli, args []string) error {
	if len(args) != 1 {
		return errors.New("route: path required")
	}
	d := guard.Decide(c.engine.State(), args[0], c.engine.Routes())
	if d.Action == guard.Redirect {
		fmt.Fprintf(c.out, "%s -> %s\n", d.Action, d.Target)
		return nil
	}
	fmt.Fprintln(c.out, d.Action)
	return nil
}

/*
====================================
ACTIVITIES
====================================
*/

func runActivities(ctx context.Context, c *cli, _ []string) error {
	acts, err := c.engine.Activities(ctx)
	if err != nil {
		return err
	}
	return c.print(acts)
}

func activityFlags(name string) (*flag.FlagSet, *api.ActivityInput) {
	fs := newFlags(name)
	in := &api.ActivityInput{}
	fs.StringVar(&in.Name, "name", "", "activity name")
	fs.StringVar(&in.Indicators, "indicators", "", "competency indicators")
	fs.Int64Var(&in.ClinicAdvisorID, "advisor", 0, "clinic advisor id (see: sikad advisors)")
	return fs, in
}

func runActivityCreate(ctx context.Context, c *cli, args []string) error {
	fs, in := activityFlags("activity-create")
	if err := parse(fs, args); err != nil {
		return err
	}
	act, err := c.engine.CreateActivity(ctx, *in)
	if err != nil {
		return err
	}
	return c.print(act)
}

func runActivityUpdate(ctx context.Context, c *cli, args []string) error {
	fs, in := activityFlags("activity-update")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := argID(fs)
	if err != nil {
		return err
	}
	act, err := c.engine.UpdateActivity(ctx, id, *in)
	if err != nil {
		return err
	}
	return c.print(act)
}

func runActivityDelete(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("activity-delete")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := argID(fs)
	if err != nil {
		return err
	}
	if err := c.engine.DeleteActivity(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Aktivitas %d dihapus\n", id)
	return nil
}

func runAdvisors(ctx context.Context, c *cli, _ []string) error {
	advisors, err := c.engine.ClinicAdvisors(ctx)
	if err != nil {
		return err
	}
	return c.print(advisors)
}

/*
====================================
LOGBOOK
====================================
*/

type evidenceFlags struct {
	activity  int64
	lat, lng  float64
	address   string
	photoPath string
}

func (e *evidenceFlags) register(fs *flag.FlagSet) {
	fs.Int64Var(&e.activity, "activity", 0, "activity id")
	fs.Float64Var(&e.lat, "lat", 0, "latitude")
	fs.Float64Var(&e.lng, "lng", 0, "longitude")
	fs.StringVar(&e.address, "address", "", "address shown on the logbook")
	fs.StringVar(&e.photoPath, "photo", "", "JPEG evidence photo")
}

// open returns the location and photo. The caller closes the returned file.
func (e *evidenceFlags) open() (api.Location, api.Photo, io.Closer, error) {
	loc := api.Location{Latitude: e.lat, Longitude: e.lng, Address: e.address}
	if e.photoPath == "" {
		return loc, api.Photo{}, io.NopCloser(nil), nil
	}
	f, err := os.Open(e.photoPath)
	if err != nil {
		return loc, api.Photo{}, nil, err
	}
	return loc, api.Photo{Filename: f.Name(), ContentType: "image/jpeg", Content: f}, f, nil
}

func runCheckIn(ctx context.Context, c *cli, args []string) error {
	var ev evidenceFlags
	fs := newFlags("checkin")
	ev.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if today, err := c.engine.HasCheckInToday(ctx); err == nil && today {
		fmt.Fprintln(os.Stderr, "Anda sudah check-in hari ini")
	}
	loc, photo, closer, err := ev.open()
	if err != nil {
		return err
	}
	defer closer.Close()
	entry, err := c.engine.CheckIn(ctx, api.CheckInForm{ActivityID: ev.activity, Location: loc, Photo: photo})
	if err != nil {
		return err
	}
	return c.print(entry)
}

func runCheckOut(ctx context.Context, c *cli, args []string) error {
	var ev evidenceFlags
	fs := newFlags("checkout")
	ev.register(fs)
	description := fs.String("description", "", "what was done during the visit")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := argID(fs)
	if err != nil {
		open, ok, openErr := c.engine.OpenCheckIn(ctx)
		if openErr != nil || !ok {
			return err
		}
		id = open.CheckInID
		if ev.activity == 0 {
			ev.activity = open.ActivityID
		}
	}
	loc, photo, closer, err := ev.open()
	if err != nil {
		return err
	}
	defer closer.Close()
	entry, err := c.engine.CheckOut(ctx, id, api.CheckOutForm{
		ActivityID:  ev.activity,
		Location:    loc,
		Photo:       photo,
		Description: *description,
	})
	if err != nil {
		return err
	}
	return c.print(entry)
}

func runLogbooks(ctx context.Context, c *cli, _ []string) error {
	entries, err := c.engine.Logbooks(ctx)
	if err != nil {
		return err
	}
	return c.print(entries)
}

func runLogbook(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("logbook")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := argID(fs)
	if err != nil {
		return err
	}
	details, err := c.engine.LogbookDetails(ctx, id)
	if err != nil {
		return err
	}
	return c.print(details)
}

func runVerifyVisit(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("verify-visit")
	status := fs.String("status", string(api.StatusVerified), "verified or rejected")
	note := fs.String("note", "", "note for the student")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := argID(fs)
	if err != nil {
		return err
	}
	entry, err := c.engine.VerifyLogbook(ctx, id, api.Verification{Status: api.LogbookStatus(*status), Note: *note})
	if err != nil {
		return err
	}
	return c.print(entry)
}

func runStats(ctx context.Context, c *cli, _ []string) error {
	stats, err := c.engine.Statistics(ctx)
	if err != nil {
		return err
	}
	return c.print(stats)
}

/*
====================================
FILES / LOOKUPS
====================================
*/

func runFiles(ctx context.Context, c *cli, _ []string) error {
	files, err := c.engine.Files(ctx)
	if err != nil {
		return err
	}
	return c.print(files)
}

func runDownload(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("download")
	out := fs.String("o", "", "output path; defaults to the file name")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := argID(fs)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = fmt.Sprintf("sikad-file-%d", id)
		if files, err := c.engine.Files(ctx); err == nil {
			for _, f := range files {
				if f.ID == id && f.Name != "" {
					path = f.Name
				}
			}
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := c.engine.DownloadFile(ctx, id, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	fmt.Fprintf(c.out, "%s (%d bytes)\n", path, n)
	return nil
}

func runStases(ctx context.Context, c *cli, _ []string) error {
	stases, err := c.engine.Stases(ctx)
	if err != nil {
		return err
	}
	return c.print(stases)
}

func runGroups(ctx context.Context, c *cli, _ []string) error {
	groups, err := c.engine.Groups(ctx)
	if err != nil {
		return err
	}
	return c.print(groups)
}

/*
====================================
ACCOUNT
====================================
*/

type profileFlags struct {
	name, username, email, phone, birthday, gender string
}

// register binds the flags with the current field values as defaults.
func (p *profileFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&p.name, "name", p.name, "full name")
	fs.StringVar(&p.username, "username", p.username, "username")
	fs.StringVar(&p.email, "email", p.email, "email")
	fs.StringVar(&p.phone, "phone", p.phone, "phone number")
	fs.StringVar(&p.birthday, "birthday", p.birthday, "birthday as dd-mm-yyyy")
	fs.StringVar(&p.gender, "gender", p.gender, "L or P")
}

type advisorFlags struct {
	stase                     int64
	typ                       string
	npwp, nip, location, room string
}

func (a *advisorFlags) register(fs *flag.FlagSet) {
	fs.Int64Var(&a.stase, "stase", a.stase, "stase id (see: sikad stases)")
	fs.StringVar(&a.typ, "type", a.typ, "academic or clinic")
	fs.StringVar(&a.npwp, "npwp", a.npwp, "tax number (academic)")
	fs.StringVar(&a.nip, "nip", a.nip, "employee number (academic)")
	fs.StringVar(&a.location, "location", a.location, "hospital (clinic)")
	fs.StringVar(&a.room, "room", a.room, "ward (clinic)")
}

func (c *cli) newPassword(fs *flag.FlagSet) (string, string, error) {
	pw := fs.Lookup("password").Value.String()
	confirm := fs.Lookup("confirm").Value.String()
	if pw != "" {
		if confirm == "" {
			confirm = pw
		}
		return pw, confirm, nil
	}
	pw, err := c.readPassword("Password: ")
	if err != nil {
		return "", "", err
	}
	confirm, err = c.readPassword("Konfirmasi password: ")
	return pw, confirm, err
}

func passwordFlags(fs *flag.FlagSet) {
	fs.String("password", "", "new account password")
	fs.String("confirm", "", "password confirmation; defaults to -password")
}

func runRegisterStudent(ctx context.Context, c *cli, args []string) error {
	var p profileFlags
	fs := newFlags("register-student")
	p.register(fs)
	studentID := fs.String("student-id", "", "NIM")
	group := fs.Int64("group", 0, "group id (see: sikad groups)")
	passwordFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	pw, confirm, err := c.newPassword(fs)
	if err != nil {
		return err
	}
	profile, err := c.engine.RegisterStudent(ctx, api.StudentRegistration{
		Name: p.name, Username: p.username, Email: p.email, Phone: p.phone,
		Birthday: p.birthday, Gender: p.gender, StudentID: *studentID, GroupID: *group,
		Password: pw,
	}, confirm)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Registrasi berhasil: %s. Silakan login.\n", profile.Username)
	return nil
}

func runRegisterAdvisor(ctx context.Context, c *cli, args []string) error {
	var p profileFlags
	a := advisorFlags{typ: string(api.AdvisorClinic)}
	fs := newFlags("register-advisor")
	p.register(fs)
	a.register(fs)
	passwordFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	pw, confirm, err := c.newPassword(fs)
	if err != nil {
		return err
	}
	profile, err := c.engine.RegisterAdvisor(ctx, api.AdvisorRegistration{
		Name: p.name, Username: p.username, Email: p.email, Phone: p.phone,
		Birthday: p.birthday, Gender: p.gender,
		StaseID: a.stase, Type: api.AdvisorType(a.typ),
		NPWP: a.npwp, NIP: a.nip, Location: a.location, Room: a.room,
		Password: pw,
	}, confirm)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Registrasi berhasil: %s. Silakan login.\n", profile.Username)
	return nil
}

// runProfileUpdate starts from the cached profile so only the given flags change.
func runProfileUpdate(ctx context.Context, c *cli, args []string) error {
	cur := c.engine.Profile()
	p := profileFlags{name: cur.Name, username: cur.Username, email: cur.Email, phone: cur.Phone, birthday: cur.Birthday, gender: cur.Gender}
	a := advisorFlags{stase: cur.StaseID, typ: string(cur.AdvisorType), npwp: cur.NPWP, nip: cur.NIP, location: cur.Location, room: cur.Room}
	studentID := cur.StudentID

	fs := newFlags("profile-update")
	p.register(fs)
	if cur.Role.IsStudent() {
		fs.StringVar(&studentID, "student-id", studentID, "NIM")
	} else {
		a.register(fs)
	}
	if err := parse(fs, args); err != nil {
		return err
	}

	var (
		updated api.Profile
		err     error
	)
	if cur.Role.IsStudent() {
		updated, err = c.engine.UpdateStudentProfile(ctx, api.StudentProfileUpdate{
			Name: p.name, Username: p.username, Email: p.email, Phone: p.phone,
			Birthday: p.birthday, Gender: p.gender, StudentID: studentID,
		})
	} else {
		updated, err = c.engine.UpdateAdvisorProfile(ctx, api.AdvisorProfileUpdate{
			Name: p.name, Username: p.username, Email: p.email, Phone: p.phone,
			Birthday: p.birthday, Gender: p.gender,
			StaseID: a.stase, Type: api.AdvisorType(a.typ),
			NPWP: a.npwp, NIP: a.nip, Location: a.location, Room: a.room,
		})
	}
	if err != nil {
		return err
	}
	return c.print(updated)
}
