package scenarios

import (
	"os"
	"path/filepath"
	"testing"
)

func parseScenario(t *testing.T, data string) *Scenario {
	t.Helper()
	sc, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("parse scenario: %v", err)
	}
	return sc
}

func TestNearestDriverScenario(t *testing.T) {
	sc := parseScenario(t, `
name: nearest driver wins
drivers:
  - id: d-close
    lat: 48.5839
    lng: 7.7455
  - id: d-far
    lat: 48.5939
    lng: 7.7455
rides:
  - id: r1
    pickup_lat: 48.5839
    pickup_lng: 7.7455
    dropoff_lat: 48.6000
    dropoff_lng: 7.7455
expected:
  assigned: 1
  failed: 0
  drivers:
    r1: d-close
`)
	RunScenario(t, sc)
}

func TestBestRatedScenario(t *testing.T) {
	sc := parseScenario(t, `
name: best rated driver wins
strategy: rating
drivers:
  - id: d-meh
    lat: 48.5800
    lng: 7.7455
    rating: 4.2
  - id: d-star
    lat: 48.5880
    lng: 7.7455
    rating: 4.9
rides:
  - id: r1
    pickup_lat: 48.5839
    pickup_lng: 7.7455
    dropoff_lat: 48.6000
    dropoff_lng: 7.7455
expected:
  assigned: 1
  failed: 0
  drivers:
    r1: d-star
`)
	RunScenario(t, sc)
}

func TestRadiusExpansionScenario(t *testing.T) {
	// The only driver sits roughly 8 km north of the pickup: outside the
	// 5 km initial radius, inside the limit after two expansions.
	sc := parseScenario(t, `
name: search expands until the driver is in reach
drivers:
  - id: d-remote
    lat: 48.6560
    lng: 7.7455
rides:
  - id: r1
    pickup_lat: 48.5839
    pickup_lng: 7.7455
    dropoff_lat: 48.6000
    dropoff_lng: 7.7455
expected:
  assigned: 1
  failed: 0
  drivers:
    r1: d-remote
`)
	RunScenario(t, sc)
}

func TestNoDriverScenario(t *testing.T) {
	sc := parseScenario(t, `
name: nobody in reach
max_search_attempts: 2
drivers:
  - id: d-elsewhere
    lat: 49.5000
    lng: 7.7455
rides:
  - id: r1
    pickup_lat: 48.5839
    pickup_lng: 7.7455
    dropoff_lat: 48.6000
    dropoff_lng: 7.7455
expected:
  assigned: 0
  failed: 1
`)
	RunScenario(t, sc)
}

func TestDeclineScenario(t *testing.T) {
	sc := parseScenario(t, `
name: declined offer releases the driver
drivers:
  - id: d1
    lat: 48.5839
    lng: 7.7455
rides:
  - id: r1
    pickup_lat: 48.5839
    pickup_lng: 7.7455
    dropoff_lat: 48.6000
    dropoff_lng: 7.7455
decline_rides: [r1]
expected:
  assigned: 1
  failed: 0
`)
	RunScenario(t, sc)
}

func TestLoadScenarioFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	data := `
name: from file
drivers:
  - id: d1
    lat: 48.5839
    lng: 7.7455
rides:
  - id: r1
    pickup_lat: 48.5839
    pickup_lng: 7.7455
    dropoff_lat: 48.6000
    dropoff_lng: 7.7455
expected:
  assigned: 1
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	sc, err := Load(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if sc.Name != "from file" {
		t.Fatalf("unexpected name %q", sc.Name)
	}
	RunScenario(t, sc)
}
