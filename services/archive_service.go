package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tleague/storage"
)

// ArchiveService сохраняет итоговый снимок турнира во внешнее хранилище.
type ArchiveService interface {
	// Archive uploads the overview and returns its public location (may be empty).
	Archive(ctx context.Context, overview *TournamentOverview) (string, error)
	Remove(ctx context.Context, tournamentID int) error
}

type archiveSnapshot struct {
	ArchivedAt time.Time `json:"archived_at"`
	*TournamentOverview
}

type archiveService struct {
	store  storage.ObjectStore
	clock  Clock
	logger *slog.Logger
}

// NewArchiveService returns a service that does nothing when store is nil.
func NewArchiveService(store storage.ObjectStore, clock Clock, logger *slog.Logger) ArchiveService {
	return &archiveService{store: store, clock: clock, logger: logger}
}

func archiveKey(tournamentID int) string {
	return fmt.Sprintf("tournaments/%d/final.json", tournamentID)
}

func (s *archiveService) Archive(ctx context.Context, overview *TournamentOverview) (string, error) {
	if s.store == nil || overview == nil || overview.Tournament == nil {
		return "", nil
	}
	body, err := json.Marshal(archiveSnapshot{ArchivedAt: s.clock.Now(), TournamentOverview: overview})
	if err != nil {
		return "", fmt.Errorf("failed to encode archive: %w", err)
	}
	res, err := s.store.Put(ctx, archiveKey(overview.Tournament.ID), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "tournament archived",
		slog.Int("tournament_id", overview.Tournament.ID), slog.String("key", res.Key))
	return res.Location, nil
}

func (s *archiveService) Remove(ctx context.Context, tournamentID int) error {
	if s.store == nil {
		return nil
	}
	return s.store.Delete(ctx, archiveKey(tournamentID))
}
