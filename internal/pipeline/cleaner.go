package pipeline

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Missing-value policies. The policy and the dedup key are deliberately
// configuration, not inferred from the data.
const (
	PolicyDrop = "drop" // remove rows missing optional fields
	PolicyZero = "zero" // fill missing numeric optionals with zero
)

// Cleaner deduplicates validated records and resolves missing optional
// fields. Cleaning is idempotent: running it on already-clean data
// returns the same set.
type Cleaner struct {
	keyFields     []string
	missingPolicy string
	logger        *logrus.Logger
}

// NewCleaner validates the configured dedup key fields and policy up
// front so a typo fails the run instead of silently keying on nothing.
func NewCleaner(keyFields []string, missingPolicy string, logger *logrus.Logger) (*Cleaner, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	if len(keyFields) == 0 {
		return nil, fmt.Errorf("dedup key must name at least one field")
	}
	for _, field := range keyFields {
		switch field {
		case KeyParcelID, KeyDate, KeyPrice, KeyPropertyType, KeyCommuneCode:
		default:
			return nil, fmt.Errorf("unknown dedup key field: %q", field)
		}
	}

	switch missingPolicy {
	case PolicyDrop, PolicyZero:
	default:
		return nil, fmt.Errorf("unknown missing-value policy: %q", missingPolicy)
	}

	return &Cleaner{
		keyFields:     keyFields,
		missingPolicy: missingPolicy,
		logger:        logger,
	}, nil
}

// Clean resolves missing optional fields, then collapses duplicate
// groups to their first occurrence in raw file order. The input slice is
// not modified.
func (c *Cleaner) Clean(records []Record) []Record {
	resolved := c.resolveMissing(records)

	seen := make(map[string]struct{}, len(resolved))
	cleaned := make([]Record, 0, len(resolved))

	for _, record := range resolved {
		key := record.EqualityKey(c.keyFields)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, record)
	}

	c.logger.WithFields(logrus.Fields{
		"input":      len(records),
		"after_fill": len(resolved),
		"output":     len(cleaned),
		"duplicates": len(resolved) - len(cleaned),
	}).Info("Cleaning finished")

	return cleaned
}

func (c *Cleaner) resolveMissing(records []Record) []Record {
	resolved := make([]Record, 0, len(records))

	for _, record := range records {
		if c.missingPolicy == PolicyDrop {
			if record.PostalCode == nil || record.BuildingArea == nil ||
				record.MainRooms == nil || record.LandArea == nil {
				continue
			}
			resolved = append(resolved, record)
			continue
		}

		// PolicyZero: fill numeric defaults without touching the input
		if record.PostalCode == nil {
			zero := 0
			record.PostalCode = &zero
		}
		if record.BuildingArea == nil {
			zero := 0.0
			record.BuildingArea = &zero
		}
		if record.MainRooms == nil {
			zero := 0
			record.MainRooms = &zero
		}
		if record.LandArea == nil {
			zero := 0.0
			record.LandArea = &zero
		}
		resolved = append(resolved, record)
	}

	return resolved
}
