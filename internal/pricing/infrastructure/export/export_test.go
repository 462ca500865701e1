package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"gopkg.in/yaml.v2"
)

var points = []domain.SurfacePoint{
	{Spot: 50, Price: 0.0123456789, Delta: 0.01, Gamma: 0.001, Theta: 0.2, Rho: 0.5, Vega: 1.25},
	{Spot: 100, Price: 10.450584, Delta: 0.636831, Gamma: 0.018762, Theta: 6.414028, Rho: 53.232482, Vega: 37.524035},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, points); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0] != "Spot,Price,Delta,Gamma,Theta,Rho,Vega" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "50.000000,0.012346,0.010000,0.001000,0.200000,0.500000,1.250000" {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestWriteJSONAndYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, points); err != nil {
		t.Fatal(err)
	}
	var fromJSON []domain.SurfacePoint
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil || len(fromJSON) != 2 || fromJSON[1].Vega != points[1].Vega {
		t.Fatalf("json = %v (%v)", fromJSON, err)
	}

	buf.Reset()
	if err := WriteYAML(&buf, points); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "spot: 100") {
		t.Fatalf("yaml = %s", buf.String())
	}
	var fromYAML []domain.SurfacePoint
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil || len(fromYAML) != 2 || fromYAML[0].Spot != 50 {
		t.Fatalf("yaml = %v (%v)", fromYAML, err)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": CSV, "CSV": CSV, "json": JSON, "yml": YAML, "yaml": YAML}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xlsx"); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("err = %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := WriteFile(dir, "american_put", CSV, points)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "american_put.csv" {
		t.Fatalf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.HasPrefix(string(data), "Spot,Price") {
		t.Fatalf("file = %q (%v)", data, err)
	}
}
