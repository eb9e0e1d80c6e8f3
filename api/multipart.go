package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "02-01-2006"
	timeLayout = "15:04:00"
)

// Photo is the image evidence attached to a check-in or check-out.
type Photo struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// Location is the device position at capture time.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// CheckInForm is submitted when a student arrives at an activity.
type CheckInForm struct {
	ActivityID int64
	Location   Location
	Photo      Photo
	// At defaults to the current time.
	At time.Time
}

// CheckOutForm is submitted when a student leaves.
type CheckOutForm struct {
	ActivityID  int64
	Location    Location
	Photo       Photo
	Description string
	At          time.Time
}

type formField struct {
	name  string
	value string
}

type multipartBody struct {
	fields []formField
	photo  *Photo
}

func (b *multipartBody) add(name, value string) {
	b.fields = append(b.fields, formField{name: name, value: value})
}

// encode renders the form into memory so the request can be replayed by redirects.
func (b *multipartBody) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range b.fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("encode form field %s: %w", f.name, err)
		}
	}
	if b.photo != nil {
		if b.photo.Content == nil {
			return nil, "", errors.New("photo content required")
		}
		name := b.photo.Filename
		if name == "" {
			name = "photo.jpg"
		}
		ct := b.photo.ContentType
		if ct == "" {
			ct = "image/jpeg"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename="%s"`, escapeQuotes(name)))
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("encode photo: %w", err)
		}
		if _, err := io.Copy(part, b.photo.Content); err != nil {
			return nil, "", fmt.Errorf("read photo: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func (c *Client) evidenceForm(activityID int64, loc Location, photo Photo, at time.Time) *multipartBody {
	if at.IsZero() {
		at = time.Now()
	}
	at = at.In(c.location)
	b := &multipartBody{photo: &photo}
	b.add("activity_id", strconv.FormatInt(activityID, 10))
	b.add("date", at.Format(dateLayout))
	b.add("check_time", at.Format(timeLayout))
	b.add("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	b.add("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	b.add("address", loc.Address)
	return b
}

// HasCheckInOn reports whether entries already hold a check-in on day's calendar date
// in loc. Entry dates may be YYYY-MM-DD, optionally followed by a time, or dd-mm-yyyy.
// The date part is taken as written; a trailing offset does not shift it into loc.
func HasCheckInOn(entries []LogbookEntry, day time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.In(loc).Date()
	for _, e := range entries {
		got, ok := entryDate(e.CheckInDate, loc)
		if !ok {
			continue
		}
		gy, gm, gd := got.Date()
		if gy == y && gm == m && gd == d {
			return true
		}
	}
	return false
}

func entryDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if i := strings.IndexAny(raw, "T "); i > 0 {
		raw = raw[:i]
	}
	for _, layout := range []string{"2006-01-02", dateLayout} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
