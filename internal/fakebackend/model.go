package fakebackend

import (
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/sikad/api"
)

type user struct {
	id           int64
	passwordHash string
	role         api.Role
	profile      api.Profile
	groupName    string
}

func (u user) view() api.Profile {
	p := u.profile
	p.ID = api.ID(strconv.FormatInt(u.id, 10))
	p.Role = u.role
	return p
}

// checkPassword accepts bcrypt hashes from seeded rows and Argon2id hashes from
// registration. rehash is set when the stored hash should be upgraded.
func (s *Server) checkPassword(u user, pw string) (ok, rehash bool) {
	if strings.HasPrefix(u.passwordHash, "$2") {
		if bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(pw)) != nil {
			return false, false
		}
		return true, true
	}
	ok, err := s.hasher.Verify(pw, u.passwordHash)
	if err != nil || !ok {
		return false, false
	}
	stale, err := s.hasher.NeedsRehash(u.passwordHash)
	return true, err == nil && stale
}

type visit struct {
	id         int64
	studentID  int64
	activityID int64
	checkIn    api.Evidence
	checkOut   *api.Evidence
	status     api.LogbookStatus
	note       string
}

func (v *visit) entry() api.LogbookEntry {
	e := api.LogbookEntry{
		CheckInID:   v.id,
		ActivityID:  v.activityID,
		CheckInDate: v.checkIn.Date,
		CheckInTime: v.checkIn.CheckTime,
		Status:      v.status,
	}
	if v.checkOut != nil {
		date, tm := v.checkOut.Date, v.checkOut.CheckTime
		e.CheckOutDate, e.CheckOutTime = &date, &tm
	}
	return e
}

type file struct {
	info    api.FileInfo
	content []byte
}
