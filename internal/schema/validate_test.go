package schema

import "testing"

func TestValidateMissingColumn(t *testing.T) {
	expected := []string{"CNPJ CLIENTE", "NOME CLIENTE", "CIDADE", "POTENCIAL"}
	headers := []string{"CNPJ CLIENTE", "NOME CLIENTE", "POTENCIAL"}

	res := Validate(expected, headers, true)
	if res.OK {
		t.Fatalf("expected validation failure, got ok")
	}
	if len(res.Missing) != 1 || res.Missing[0] != "CIDADE" {
		t.Fatalf("expected missing [CIDADE], got %v", res.Missing)
	}
	if len(res.Extra) != 0 {
		t.Fatalf("expected no extra columns, got %v", res.Extra)
	}
}

func TestValidateExtraColumnsDoNotInvalidate(t *testing.T) {
	expected := []string{"A", "B"}
	headers := []string{"A", "B", "C", "D"}

	res := Validate(expected, headers, true)
	if !res.OK {
		t.Fatalf("extra columns must not invalidate: %+v", res)
	}
	if len(res.Extra) != 2 || res.Extra[0] != "C" || res.Extra[1] != "D" {
		t.Fatalf("expected extra [C D], got %v", res.Extra)
	}
}

func TestValidateExactMatch(t *testing.T) {
	cols := []string{"A", "B", "C"}
	res := Validate(cols, cols, true)
	if !res.OK || len(res.Missing) != 0 || len(res.Extra) != 0 {
		t.Fatalf("exact match should validate cleanly: %+v", res)
	}
}

func TestValidateNoSchema(t *testing.T) {
	headers := []string{"X", "Y"}
	res := Validate(nil, headers, false)

	if res.OK {
		t.Fatalf("report without schema must not count as valid")
	}
	if !res.NoSchema {
		t.Fatalf("NoSchema flag not set")
	}
	if len(res.Extra) != 2 {
		t.Fatalf("headers should surface as extra when no schema registered: %v", res.Extra)
	}
}

func TestValidateEmptyHeaders(t *testing.T) {
	res := Validate([]string{"A"}, nil, true)
	if res.OK {
		t.Fatalf("empty headers cannot satisfy a schema")
	}
	if len(res.Missing) != 1 || res.Missing[0] != "A" {
		t.Fatalf("expected missing [A], got %v", res.Missing)
	}
}
