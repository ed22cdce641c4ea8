package output

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type row struct {
	UUID   string `json:"uuid" yaml:"uuid"`
	ID     string `json:"id" yaml:"id"`
	Slot   uint16 `json:"slot" yaml:"slot"`
	Hidden string `json:"-" yaml:"-"`
}

var rows = []row{
	{UUID: "AABBCCDDEEFF0011", ID: "0001", Slot: 0, Hidden: "x"},
	{UUID: "1122334455667788", ID: "0002", Slot: 1, Hidden: "y"},
}

func TestTableFormatter(t *testing.T) {
	out := NewFormatter("table").Format(rows)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if fields := strings.Fields(lines[0]); strings.Join(fields, " ") != "UUID ID SLOT" {
		t.Errorf("header = %q", lines[0])
	}
	if fields := strings.Fields(lines[2]); strings.Join(fields, " ") != "1122334455667788 0002 1" {
		t.Errorf("row = %q", lines[2])
	}
	if strings.Contains(out, "HIDDEN") {
		t.Error("skipped field printed")
	}
}

func TestTableFormatterEmptyAndStruct(t *testing.T) {
	if got := (TableFormatter{}).Format([]row{}); got != "No allocations.\n" {
		t.Errorf("empty = %q", got)
	}
	out := (TableFormatter{}).Format(&rows[0])
	if !strings.Contains(out, "UUID:") || !strings.Contains(out, "AABBCCDDEEFF0011") {
		t.Errorf("struct = %q", out)
	}
}

func TestJSONAndYAML(t *testing.T) {
	var fromJSON []row
	if err := json.Unmarshal([]byte(NewFormatter("json").Format(rows)), &fromJSON); err != nil {
		t.Fatalf("json output does not parse: %v", err)
	}
	if len(fromJSON) != 2 || fromJSON[1].ID != "0002" {
		t.Errorf("json = %+v", fromJSON)
	}

	var fromYAML []row
	if err := yaml.Unmarshal([]byte(NewFormatter("YAML").Format(rows)), &fromYAML); err != nil {
		t.Fatalf("yaml output does not parse: %v", err)
	}
	if len(fromYAML) != 2 || fromYAML[0].UUID != "AABBCCDDEEFF0011" {
		t.Errorf("yaml = %+v", fromYAML)
	}
}

func TestValid(t *testing.T) {
	for _, f := range []string{"", "table", "JSON", "yaml"} {
		if !Valid(f) {
			t.Errorf("Valid(%q) = false", f)
		}
	}
	if Valid("xml") {
		t.Error("Valid(\"xml\") = true")
	}
}
