package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// DigestPrefix is the folder digest snapshots are written to
	DigestPrefix = "digests/"

	snapshotLayout = "20060102T150405Z"
)

// SnapshotName returns digests/<UTC timestamp>.json. Names sort chronologically.
func SnapshotName(t time.Time) string {
	return DigestPrefix + t.UTC().Format(snapshotLayout) + ".json"
}

// Archive stores digest reports and keeps at most keep of them
type Archive struct {
	store StorageInterface
	keep  int
}

// NewArchive wraps store. A non-positive keep disables pruning.
func NewArchive(store StorageInterface, keep int) *Archive {
	return &Archive{store: store, keep: keep}
}

// Save writes report and prunes the oldest snapshots
func (a *Archive) Save(ctx context.Context, report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	name := SnapshotName(report.GeneratedAt)
	if err := a.store.Store(ctx, name, data); err != nil {
		return "", err
	}

	if err := a.prune(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to prune old digest snapshots")
	}
	return name, nil
}

// Latest returns the most recent stored report, or ErrNotExist
func (a *Archive) Latest(ctx context.Context) (*models.Report, error) {
	names, err := a.names(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrNotExist
	}

	data, err := a.store.Retrieve(ctx, names[len(names)-1])
	if err != nil {
		return nil, err
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", names[len(names)-1], err)
	}
	return &report, nil
}

func (a *Archive) names(ctx context.Context) ([]string, error) {
	names, err := a.store.List(ctx, DigestPrefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (a *Archive) prune(ctx context.Context) error {
	if a.keep <= 0 {
		return nil
	}
	names, err := a.names(ctx)
	if err != nil {
		return err
	}
	for len(names) > a.keep {
		if err := a.store.Delete(ctx, names[0]); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}
