package filter

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

var testSchema = Schema{
	"status": {Column: "status", Kind: KindString, Normalize: func(v string) (string, error) {
		switch strings.ToLower(v) {
		case "planned", "in_progress":
			return strings.ToLower(v), nil
		}
		return "", fmt.Errorf("unknown status %q", v)
	}},
	"school_year":  {Column: "school_year", Kind: KindString},
	"professor_id": {Column: "professor_id", Kind: KindString},
	"start":        {Column: "start_ms", Kind: KindTimestamp},
}

func TestParseEmptyFilter(t *testing.T) {
	cond, err := testSchema.Parse("   ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cond.Empty() {
		t.Fatalf("clause = %q, want empty", cond.Clause)
	}
}

func TestParseEquality(t *testing.T) {
	cond, err := testSchema.Parse(`school_year = "L1"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cond.Clause != "school_year = ?" {
		t.Fatalf("clause = %q, want %q", cond.Clause, "school_year = ?")
	}
	if len(cond.Params) != 1 || cond.Params[0] != "L1" {
		t.Fatalf("params = %v, want [L1]", cond.Params)
	}
}

func TestParseConjunctionNormalizes(t *testing.T) {
	cond, err := testSchema.Parse(`status = "PLANNED" AND professor_id != "p-1"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := "(status = ? AND professor_id != ?)"
	if cond.Clause != want {
		t.Fatalf("clause = %q, want %q", cond.Clause, want)
	}
	if len(cond.Params) != 2 || cond.Params[0] != "planned" || cond.Params[1] != "p-1" {
		t.Fatalf("params = %v, want [planned p-1]", cond.Params)
	}
}

func TestParseDisjunction(t *testing.T) {
	cond, err := testSchema.Parse(`school_year = "L1" OR school_year = "L2"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cond.Clause != "(school_year = ? OR school_year = ?)" {
		t.Fatalf("clause = %q", cond.Clause)
	}
}

func TestParseTimestampBindsMillis(t *testing.T) {
	cond, err := testSchema.Parse(`start >= timestamp("2026-03-10T10:00:00Z")`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cond.Clause != "start_ms >= ?" {
		t.Fatalf("clause = %q, want %q", cond.Clause, "start_ms >= ?")
	}
	want := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC).UnixMilli()
	if len(cond.Params) != 1 || cond.Params[0] != want {
		t.Fatalf("params = %v, want [%d]", cond.Params, want)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	if _, err := testSchema.Parse(`room = "A"`); err == nil {
		t.Fatal("expected error for undeclared field")
	}
}

func TestParseRejectsNormalizeFailure(t *testing.T) {
	if _, err := testSchema.Parse(`status = "archived"`); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestParseRejectsSyntaxError(t *testing.T) {
	if _, err := testSchema.Parse(`school_year = `); err == nil {
		t.Fatal("expected syntax error")
	}
}
