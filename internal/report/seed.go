package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Seeder replaces a whole report collection.
type Seeder interface {
	ReplaceCollection(ctx context.Context, name string, records []json.RawMessage) error
}

// SeedFile loads a JSON document of the form
// {"userReports": [...], "mapLocations": [...]} into s. Collections absent
// from the document are left untouched; other keys are ignored.
func SeedFile(ctx context.Context, s Seeder, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}

	total := 0
	for _, name := range []string{domain.CollectionUserReports, domain.CollectionMapLocations} {
		body, ok := doc[name]
		if !ok {
			continue
		}
		var records []json.RawMessage
		if err := json.Unmarshal(body, &records); err != nil {
			return total, fmt.Errorf("decode seed collection %s: %w", name, err)
		}
		if err := s.ReplaceCollection(ctx, name, records); err != nil {
			return total, fmt.Errorf("seed %s: %w", name, err)
		}
		total += len(records)
	}
	return total, nil
}
