package csvx

import "testing"

func TestParseBasic(t *testing.T) {
	raw := "NOME,CIDADE,POTENCIAL\nDANONE,SAO PAULO,ALTO\nNESTLE,CAMPINAS,MEDIO"
	headers, rows := Parse(raw)

	if len(headers) != 3 {
		t.Fatalf("expected 3 headers, got %v", headers)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["NOME"] != "DANONE" || rows[1]["CIDADE"] != "CAMPINAS" {
		t.Fatalf("unexpected row values: %v", rows)
	}
}

func TestParseTrimsWhitespace(t *testing.T) {
	raw := " NOME , CIDADE \n DANONE , SAO PAULO \n"
	headers, rows := Parse(raw)

	if headers[0] != "NOME" || headers[1] != "CIDADE" {
		t.Fatalf("headers not trimmed: %v", headers)
	}
	if rows[0]["NOME"] != "DANONE" || rows[0]["CIDADE"] != "SAO PAULO" {
		t.Fatalf("values not trimmed: %v", rows[0])
	}
}

func TestParseRaggedRowPadded(t *testing.T) {
	raw := "A,B,C\n1,2\n4,5,6"
	_, rows := Parse(raw)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["C"] != "" {
		t.Fatalf("short row should pad missing trailing columns with empty string, got %q", rows[0]["C"])
	}
	if rows[1]["C"] != "6" {
		t.Fatalf("full row mangled: %v", rows[1])
	}
}

func TestParseExtraFieldsIgnored(t *testing.T) {
	raw := "A,B\n1,2,3,4"
	headers, rows := Parse(raw)

	if len(headers) != 2 {
		t.Fatalf("expected 2 headers, got %v", headers)
	}
	if len(rows[0]) != 2 || rows[0]["A"] != "1" || rows[0]["B"] != "2" {
		t.Fatalf("extra fields should be dropped: %v", rows[0])
	}
}

func TestParseTooFewLines(t *testing.T) {
	for _, raw := range []string{"", "   ", "HEADER ONLY", "A,B,C\n"} {
		headers, rows := Parse(raw)
		if headers != nil || rows != nil {
			t.Fatalf("input %q: expected nil headers and rows, got %v / %v", raw, headers, rows)
		}
	}
}

func TestParseIdempotent(t *testing.T) {
	raw := "A,B\n1,2\n3,4"
	h1, r1 := Parse(raw)
	h2, r2 := Parse(raw)

	if len(h1) != len(h2) || len(r1) != len(r2) {
		t.Fatalf("parse not stable: %v/%v vs %v/%v", h1, r1, h2, r2)
	}
	for i := range r1 {
		for k, v := range r1[i] {
			if r2[i][k] != v {
				t.Fatalf("row %d key %s differs: %q vs %q", i, k, v, r2[i][k])
			}
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	_, rows := Parse("A,B\n1,2")
	cp := Clone(rows)
	cp[0]["A"] = "mutated"

	if rows[0]["A"] != "1" {
		t.Fatalf("clone shares storage with original")
	}
	if Clone(nil) != nil {
		t.Fatalf("clone of nil should stay nil")
	}
}
