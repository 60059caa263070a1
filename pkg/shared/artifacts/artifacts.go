// Package artifacts writes the schema-versioned JSON files each stage leaves
// behind. Every artifact carries the same envelope regardless of payload:
// schema_version, stage and completed_at.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/webaudit/webaudit/pkg/shared/files"
)

// EnvelopeSchemaVersion is stamped on every stage artifact.
const EnvelopeSchemaVersion = "1.0"

// SaveStageArtifact writes payload to <dir>/<stage>.json with the envelope
// fields merged in at the top level. Returns the full artifact path.
func SaveStageArtifact(dir string, logger hclog.Logger, stage string, payload interface{}) (string, error) {
	if err := files.CreateFolderIfNotExists(dir); err != nil {
		return "", fmt.Errorf("failed to create stages folder: %w", err)
	}
	path := filepath.Join(dir, stage+".json")

	envelope := map[string]interface{}{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return path, fmt.Errorf("error marshaling the %s payload: %w", stage, err)
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return path, fmt.Errorf("%s payload is not a JSON object: %w", stage, err)
		}
	}
	envelope["schema_version"] = EnvelopeSchemaVersion
	envelope["stage"] = stage
	envelope["completed_at"] = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(envelope, "", "    ")
	if err != nil {
		return path, fmt.Errorf("error marshaling the %s artifact: %w", stage, err)
	}
	if err := files.WriteFileAtomic(path, data); err != nil {
		return path, fmt.Errorf("error writing the %s artifact: %w", stage, err)
	}

	logger.Debug("stage artifact saved", "stage", stage, "path", path)
	return path, nil
}

// LoadStageArtifact reads a stage artifact back into out.
func LoadStageArtifact(dir, stage string, out interface{}) error {
	path := filepath.Join(dir, stage+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact %q: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s artifact: %w", stage, err)
	}
	return nil
}
