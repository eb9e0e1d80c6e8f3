package fakebackend

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/sikad/api"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "Rahasia1!"

// Seeded usernames.
const (
	SeedStudent     = "budi"
	SeedClinic      = "dr.sari"
	SeedAcademic    = "dr.andi"
	SeedProgramHead = "kaprodi"
)

func (s *Server) seed() error {
	// MinCost keeps start-up fast; the hash is only here to exercise the legacy path.
	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stases = []api.Stase{
		{ID: 1, Name: "Keperawatan Medikal Bedah"},
		{ID: 2, Name: "Keperawatan Anak"},
		{ID: 3, Name: "Keperawatan Maternitas"},
	}
	s.groups = []api.Group{
		{ID: 1, Name: "Kelompok A"},
		{ID: 2, Name: "Kelompok B"},
	}

	s.addUserLocked(string(hash), api.RoleStudent, api.Profile{
		Name: "Budi Santoso", Username: SeedStudent, Email: "budi@example.ac.id",
		Phone: "081234567890", Birthday: "17-08-2001", Gender: "L",
		StudentID: "2101001", GroupID: 1,
	})
	clinic := s.addUserLocked(string(hash), api.RoleClinicPreceptor, api.Profile{
		Name: "dr. Sari Wulandari", Username: SeedClinic, Email: "sari@example.ac.id",
		Phone: "081298765432", Gender: "P", StaseID: 1,
		AdvisorType: api.AdvisorClinic, Location: "RSUD Makassar", Room: "Bedah 2",
	})
	s.addUserLocked(string(hash), api.RoleAcademicPreceptor, api.Profile{
		Name: "dr. Andi Pratama", Username: SeedAcademic, Email: "andi@example.ac.id",
		Phone: "081211112222", Gender: "L", StaseID: 1,
		AdvisorType: api.AdvisorAcademic, NPWP: "12.345.678.9-012.000", NIP: "198001012005011001",
	})
	s.addUserLocked(string(hash), api.RoleProgramHead, api.Profile{
		Name: "Ns. Rina Kartika", Username: SeedProgramHead, Email: "kaprodi@example.ac.id",
		Phone: "081233334444", Gender: "P",
	})

	id := s.newID()
	s.activities[id] = &api.Activity{
		ID:                id,
		Name:              "Perawatan luka post operasi",
		Indicators:        "Mampu melakukan perawatan luka steril",
		ClinicAdvisorID:   clinic,
		AdvisorClinicName: "dr. Sari Wulandari",
		CreatedAt:         s.now().Format("2006-01-02 15:04:05"),
	}

	fid := s.newID()
	content := []byte("%PDF-1.4\n% Panduan Praktik Klinik\n")
	s.files[fid] = &file{
		info:    api.FileInfo{ID: fid, Name: "Panduan Praktik Klinik.pdf", CreatedAt: s.now().Format("2006-01-02"), Size: int64(len(content))},
		content: content,
	}
	return nil
}

func (s *Server) addUserLocked(hash string, role api.Role, p api.Profile) int64 {
	id := s.newID()
	s.users[id] = &user{id: id, passwordHash: hash, role: role, profile: p, groupName: s.groupNameLocked(p.GroupID)}
	s.byUsername[strings.ToLower(p.Username)] = id
	return id
}

func (s *Server) groupNameLocked(id int64) string {
	for _, g := range s.groups {
		if g.ID == id {
			return g.Name
		}
	}
	return ""
}
