package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jwalitptl/patient-records/internal/model"
)

// LoadSeed decodes initial records from either a bare JSON array or a
// json-server db file of the form {"patients": [...]}.
func LoadSeed(r io.Reader) ([]*model.Patient, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var patients []*model.Patient
	if data[0] == '[' {
		if err := json.Unmarshal(data, &patients); err != nil {
			return nil, fmt.Errorf("failed to decode seed: %w", err)
		}
	} else {
		var db struct {
			Patients []*model.Patient `json:"patients"`
		}
		if err := json.Unmarshal(data, &db); err != nil {
			return nil, fmt.Errorf("failed to decode seed: %w", err)
		}
		patients = db.Patients
	}

	out := make([]*model.Patient, 0, len(patients))
	for _, p := range patients {
		if p != nil && p.ID.Valid() {
			out = append(out, p)
		}
	}
	return out, nil
}
