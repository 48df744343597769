package supplyparser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/giygas/iyakuhin-supply/logging"
	"github.com/giygas/iyakuhin-supply/supplyparser/entities"
)

// AssembleEnvelope bundles the rows with the run metadata. fetchDate is
// rendered as a calendar date in its own location.
func AssembleEnvelope(fetchDate time.Time, source string, rows []entities.DataRow) *entities.ResultEnvelope {
	if rows == nil {
		rows = make([]entities.DataRow, 0)
	}
	return &entities.ResultEnvelope{
		FetchDate: fetchDate.Format(dateLayout),
		Source:    source,
		Rows:      rows,
	}
}

// EncodeEnvelope serializes the envelope as compact UTF-8 JSON. Non-ASCII
// text and HTML-sensitive characters are written literally.
func EncodeEnvelope(env *entities.ResultEnvelope) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WriteFileAtomic replaces path with data. The bytes go to a temporary file
// in the same directory which is renamed over path, so readers never see a
// partially written file and a failure leaves the previous content intact.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if _, err := os.Stat(tmpName); err == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		logging.Warn("Failed to set output file mode", "path", tmpName, "error", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// ReadEnvelope loads a previously written output file.
func ReadEnvelope(path string) (*entities.ResultEnvelope, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var env entities.ResultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &env, data, nil
}
