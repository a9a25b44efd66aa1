// Package testhelper provides the small mystery dataset used across package
// tests and an end-to-end query suite driven by examples.yml.
package testhelper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SimonWaldherr/sqlmystery/internal/dataset"
)

// Fixture CSVs. One kidnapping in a Southwest parking lot on the night of
// 12/08/2023 is the case; the other rows are distractors.
const (
	CrimesCSV = `DR_NO,INCIDENT_AREA,EXACT_LOCATION,CRIME,WEAPON
1001,Southwest,PARKING LOT,KIDNAPPING,HAND GUN
1002,Central,PARKING LOT,KIDNAPPING,KNIFE
1003,Southwest,STREET,ROBBERY,STRONG-ARM
1004,Hollywood,PARKING LOT,VANDALISM,
1005,Central,SIDEWALK,KIDNAPPING,VEHICLE
1006,Southwest,PARKING LOT,ASSAULT,KNIFE
`
	CriminalsCSV = `CRIMINAL_ID,INCIDENT_AREA,INCIDENT_DATE
501,Southwest,12/08/2023 12:00:00 AM
502,Central,12/08/2023 12:00:00 AM
503,Southwest,11/02/2023 08:30:00 PM
504,Hollywood,12/08/2023 12:00:00 AM
`
	VictimCSV = `VICTIM_AGE,VICTIM_GENDER,INCIDENT_AREA
18,F,Southwest
45,M,Southwest
18,F,Central
29,F,Hollywood
`
)

// Row counts of the fixtures.
const (
	CrimesRows    = 6
	CriminalsRows = 4
	VictimRows    = 4
)

// WriteFixtures writes the three CSVs into a temp dir and returns their
// sources in crimes, criminals, victim order.
func WriteFixtures(t testing.TB) []dataset.Source {
	t.Helper()
	dir := t.TempDir()
	files := []struct{ name, content string }{
		{"crimes", CrimesCSV},
		{"criminals", CriminalsCSV},
		{"victim", VictimCSV},
	}
	out := make([]dataset.Source, 0, len(files))
	for _, f := range files {
		p := filepath.Join(dir, f.name+".csv")
		if err := os.WriteFile(p, []byte(f.content), 0644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
		out = append(out, dataset.Source{Name: f.name, Path: p})
	}
	return out
}

// LoadFixtures parses the fixtures.
func LoadFixtures(t testing.TB) []*dataset.Dataset {
	t.Helper()
	sets, err := dataset.LoadAll(WriteFixtures(t), nil)
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	return sets
}
