package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func searchService(t *testing.T, store *memStore) *Service {
	t.Helper()
	var clientes strings.Builder
	clientes.WriteString("NOME,CIDADE\n")
	for i := 0; i < 8; i++ {
		clientes.WriteString("DANONE LTDA,SAO PAULO\n")
	}
	clientes.WriteString("NESTLE,CAMPINAS\n")

	f := &fakeFetcher{bodies: map[string]string{
		"u://clientes": clientes.String(),
		"u://produtos": "SKU,DESC\n10,IOGURTE DANONE\n11,LEITE",
		"u://vendas":   "PEDIDO,VALOR\n77,150",
	}}
	var svc *Service
	if store != nil {
		svc = newTestService(f, store)
	} else {
		svc = newTestService(f, nil)
	}
	if _, err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	return svc
}

func TestSearchCaseInsensitive(t *testing.T) {
	svc := searchService(t, nil)

	res, err := svc.Search(context.Background(), "clientes", "danone", "", 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.TotalMatches != 8 || len(res.Results) != 8 {
		t.Fatalf("expected 8 matches, got %d/%d", res.TotalMatches, len(res.Results))
	}
}

func TestSearchLimitKeepsTrueCount(t *testing.T) {
	svc := searchService(t, nil)

	res, err := svc.Search(context.Background(), "clientes", "DANONE", "", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Results) != 3 {
		t.Fatalf("limit not applied: %d rows", len(res.Results))
	}
	if res.TotalMatches != 8 {
		t.Fatalf("TotalMatches must count beyond the limit, got %d", res.TotalMatches)
	}
}

func TestSearchByField(t *testing.T) {
	svc := searchService(t, nil)

	res, err := svc.Search(context.Background(), "clientes", "sao paulo", "CIDADE", 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.TotalMatches != 8 {
		t.Fatalf("field search missed rows: %d", res.TotalMatches)
	}

	// Field that never contains the needle.
	res, err = svc.Search(context.Background(), "clientes", "sao paulo", "NOME", 100)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.TotalMatches != 0 {
		t.Fatalf("expected no matches in NOME, got %d", res.TotalMatches)
	}
	if res.Results == nil {
		t.Fatalf("empty result set must be non-nil for JSON encoding")
	}
}

func TestSearchUnknownReport(t *testing.T) {
	svc := searchService(t, nil)
	if _, err := svc.Search(context.Background(), "nope", "x", "", 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchAllCapsSamples(t *testing.T) {
	svc := searchService(t, nil)

	groups := svc.SearchAll(context.Background(), "danone")
	if len(groups) != 2 {
		t.Fatalf("expected matches in 2 reports, got %d", len(groups))
	}

	var clientes, produtos GroupResult
	for _, g := range groups {
		switch g.ReportID {
		case "clientes":
			clientes = g
		case "produtos":
			produtos = g
		}
	}
	if clientes.Matches != 8 {
		t.Fatalf("true match count lost: %d", clientes.Matches)
	}
	if len(clientes.Sample) != GlobalSearchCap {
		t.Fatalf("sample must cap at %d, got %d", GlobalSearchCap, len(clientes.Sample))
	}
	if produtos.Matches != 1 || len(produtos.Sample) != 1 {
		t.Fatalf("produtos group wrong: %+v", produtos)
	}
}

func TestSearchAllNoMatches(t *testing.T) {
	svc := searchService(t, nil)
	groups := svc.SearchAll(context.Background(), "zzz-not-there")
	if groups == nil || len(groups) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", groups)
	}
}

func TestSearchRecordsQueries(t *testing.T) {
	store := newMemStore()
	svc := searchService(t, store)

	if _, err := svc.Search(context.Background(), "clientes", "danone", "", 10); err != nil {
		t.Fatalf("search: %v", err)
	}
	svc.SearchAll(context.Background(), "danone")

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.queries != 2 {
		t.Fatalf("expected 2 recorded queries, got %d", store.queries)
	}
}
