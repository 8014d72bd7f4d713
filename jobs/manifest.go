package jobs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/currency"
)

// DefaultEnsureSchedule runs the ensure task nightly at 02:00 UTC.
const DefaultEnsureSchedule = "0 2 * * *"

// Manifest lists the tenants whose system accounts the worker keeps in place.
//
//	schedule: "0 2 * * *"
//	tenants:
//	  - id: 1
//	    currencies: [USD, IDR]
type Manifest struct {
	Schedule string         `yaml:"schedule"`
	Tenants  []EnsureTarget `yaml:"tenants"`
}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("jobs: read manifest: %w", err)
	}
	return ParseManifest(bytes.NewReader(raw))
}

// ParseManifest decodes a manifest, normalising currency codes and merging
// repeated tenants.
func ParseManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return Manifest{}, fmt.Errorf("jobs: decode manifest: %w", err)
	}
	if m.Schedule == "" {
		m.Schedule = DefaultEnsureSchedule
	}

	merged := make(map[int64]map[string]struct{})
	for _, t := range m.Tenants {
		if t.TenantID <= 0 {
			return Manifest{}, fmt.Errorf("jobs: manifest: invalid tenant id %d", t.TenantID)
		}
		set, ok := merged[t.TenantID]
		if !ok {
			set = make(map[string]struct{})
			merged[t.TenantID] = set
		}
		for _, code := range t.Currencies {
			normalized, err := currency.Normalize(code)
			if err != nil {
				return Manifest{}, fmt.Errorf("jobs: manifest: tenant %d: %w", t.TenantID, err)
			}
			set[normalized] = struct{}{}
		}
	}

	m.Tenants = make([]EnsureTarget, 0, len(merged))
	for id, set := range merged {
		codes := make([]string, 0, len(set))
		for code := range set {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		m.Tenants = append(m.Tenants, EnsureTarget{TenantID: id, Currencies: codes})
	}
	sort.Slice(m.Tenants, func(i, j int) bool { return m.Tenants[i].TenantID < m.Tenants[j].TenantID })
	return m, nil
}

// Cron builds the scheduler entry for the manifest. A manifest without
// tenants yields no entry.
func (m Manifest) Cron() ([]CronRegistration, error) {
	if len(m.Tenants) == 0 {
		return nil, nil
	}
	task, err := NewEnsureSystemAccountsTask(EnsureSystemAccountsPayload{Targets: m.Tenants, Source: "cron"})
	if err != nil {
		return nil, err
	}
	return []CronRegistration{{Spec: m.Schedule, Task: task}}, nil
}
