package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/practitioner"
)

// DefaultDirectory is installed by the seed command.
var DefaultDirectory = []practitioner.Practitioner{
	{Name: "Dr. Anand", Specialty: "General Physician", PhoneNumber: "+919778229882"},
	{Name: "Dr. Archana", Specialty: "Neurologist", PhoneNumber: "+17435002186"},
}

type DirectoryService struct {
	practitioners practitioner.Repository
	rooms         RoomIssuer
	log           *zap.Logger
}

func NewDirectoryService(practitioners practitioner.Repository, rooms RoomIssuer, log *zap.Logger) *DirectoryService {
	return &DirectoryService{practitioners: practitioners, rooms: rooms, log: log.Named("directory")}
}

func (s *DirectoryService) ListPractitioners(ctx context.Context, specialty string) ([]*practitioner.Practitioner, error) {
	return s.practitioners.List(ctx, strings.TrimSpace(specialty))
}

// Seed inserts the entries whose name is not yet taken and gives each a
// standing room link. Returns how many were created.
func (s *DirectoryService) Seed(ctx context.Context, entries []practitioner.Practitioner) (int, error) {
	created := 0
	for _, e := range entries {
		if strings.TrimSpace(e.Specialty) == "" {
			return created, practitioner.ErrSpecialtyRequired
		}

		_, err := s.practitioners.GetByName(ctx, e.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, practitioner.ErrPractitionerNotFound) {
			return created, fmt.Errorf("looking up %s: %w", e.Name, err)
		}

		p := e
		if p.VideoCallLink == "" {
			p.VideoCallLink = s.rooms.Issue(p.Name)
		}
		if err := s.practitioners.Create(ctx, &p); err != nil {
			return created, fmt.Errorf("creating %s: %w", e.Name, err)
		}
		created++
		s.log.Info("practitioner seeded", zap.String("name", p.Name), zap.String("specialty", p.Specialty))
	}
	return created, nil
}
