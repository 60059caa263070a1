package findings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/webaudit/webaudit/pkg/shared/files"
)

// Store persists findings as one JSON file per ID under a findings directory.
// It is append-mostly: stages write new findings for their own phase, later
// stages only annotate the mutable fields.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) a findings directory.
func NewStore(dir string) (*Store, error) {
	if err := files.CreateFolderIfNotExists(dir); err != nil {
		return nil, fmt.Errorf("failed to create findings directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the findings directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes a finding keyed by its ID.
func (s *Store) Save(record Finding) error {
	if record.ID == "" {
		return fmt.Errorf("finding has no ID")
	}
	data, err := json.MarshalIndent(record, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal finding %s: %w", record.ID, err)
	}
	path := filepath.Join(s.dir, record.ID+".json")
	if err := files.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write finding %s: %w", record.ID, err)
	}
	return nil
}

// Load reads one finding by ID and re-validates it.
func (s *Store) Load(id string) (Finding, error) {
	var record Finding
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return record, fmt.Errorf("failed to read finding %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to parse finding %s: %w", id, err)
	}
	if result := Validate(record); !result.Valid {
		return record, &SchemaValidationError{Violations: result.Errors}
	}
	return record, nil
}

// LoadAll reads every finding in the store, ordered by ID.
func (s *Store) LoadAll() ([]Finding, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read findings directory: %w", err)
	}

	var all []Finding
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		record, err := s.Load(id)
		if err != nil {
			return nil, err
		}
		all = append(all, record)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

// Annotation carries the only fields later stages are permitted to update.
type Annotation struct {
	VerificationStatus *string
	ReviewDecision     *string
	IsFalsePositive    *bool
}

// Annotate updates the mutable fields of a stored finding and bumps updated_at.
// Every other field is left untouched.
func (s *Store) Annotate(id string, ann Annotation) error {
	record, err := s.Load(id)
	if err != nil {
		return err
	}

	if ann.VerificationStatus != nil {
		record.VerificationStatus = *ann.VerificationStatus
	}
	if ann.ReviewDecision != nil {
		record.ReviewDecision = *ann.ReviewDecision
	}
	if ann.IsFalsePositive != nil {
		record.IsFalsePositive = *ann.IsFalsePositive
	}
	record.UpdatedAt = time.Now().UTC()

	if result := Validate(record); !result.Valid {
		return &SchemaValidationError{Violations: result.Errors}
	}
	return s.Save(record)
}
