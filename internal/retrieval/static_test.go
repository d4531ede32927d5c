package retrieval

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"creativeagent/internal/domain"
)

func cryptoPlan() domain.GenerationPlan {
	return domain.GenerationPlan{
		ProductScope:    "crypto",
		Languages:       []string{"en"},
		PrimaryLanguage: "en",
		SegmentID:       "new_investors",
	}
}

func TestStaticRetrieveDeterministic(t *testing.T) {
	r := NewStaticRetriever(nil, DefaultBounds())
	plan := cryptoPlan()

	first, err := r.Retrieve(context.Background(), plan)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := r.Retrieve(context.Background(), plan)
		if err != nil {
			t.Fatalf("Retrieve run %d: %v", i, err)
		}
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("run %d differs:\n%v\nvs\n%v", i, first.SourceIDs(), next.SourceIDs())
		}
	}
}

func TestStaticRetrievePrefersMatchingProduct(t *testing.T) {
	r := NewStaticRetriever(nil, DefaultBounds())

	got, err := r.Retrieve(context.Background(), cryptoPlan())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	ids := got.SourceIDs()
	cryptoIdx, stocksIdx := -1, -1
	for i, id := range ids {
		switch id {
		case "product_crypto_001":
			cryptoIdx = i
		case "product_stocks_001":
			stocksIdx = i
		}
	}
	if cryptoIdx < 0 {
		t.Fatalf("crypto product snippet not retrieved: %v", ids)
	}
	if stocksIdx >= 0 && stocksIdx < cryptoIdx {
		t.Fatalf("stocks snippet ranked ahead of crypto for a crypto plan: %v", ids)
	}
}

func TestStaticRetrieveHonorsBounds(t *testing.T) {
	r := NewStaticRetriever(nil, Bounds{MaxSnippets: 2, MaxTotalBytes: 8192})
	got, err := r.Retrieve(context.Background(), cryptoPlan())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got.Snippets) > 2 {
		t.Fatalf("snippets = %d, want <= 2", len(got.Snippets))
	}
}

func TestStaticRetrieveByteBound(t *testing.T) {
	r := NewStaticRetriever(nil, Bounds{MaxSnippets: 8, MaxTotalBytes: 150})
	got, err := r.Retrieve(context.Background(), cryptoPlan())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got.Snippets) == 0 {
		t.Fatalf("bounds must always admit the first snippet")
	}
	total := 0
	for _, s := range got.Snippets {
		total += len(s.Text)
	}
	if len(got.Snippets) > 1 && total > 150 {
		t.Fatalf("byte bound exceeded: %d snippets, %d bytes", len(got.Snippets), total)
	}
}

func TestStaticRetrieveCanceledContext(t *testing.T) {
	r := NewStaticRetriever(nil, DefaultBounds())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Retrieve(ctx, cryptoPlan()); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestContextFormatGroupsByKind(t *testing.T) {
	c := Context{Snippets: []Snippet{
		{ID: "p1", Doc: "Catalog", Kind: KindProduct, Section: "crypto", Text: "crypto facts"},
		{ID: "b1", Doc: "Brand", Kind: KindBrand, Text: "brand voice"},
	}}
	formatted := c.Format()
	brandIdx := strings.Index(formatted, "BRAND SOURCES")
	productIdx := strings.Index(formatted, "PRODUCT SOURCES")
	if brandIdx < 0 || productIdx < 0 {
		t.Fatalf("missing section headers:\n%s", formatted)
	}
	if brandIdx > productIdx {
		t.Fatalf("brand section must precede product section")
	}
	if !strings.Contains(formatted, "[p1] Catalog - crypto") {
		t.Fatalf("missing provenance line:\n%s", formatted)
	}
}

func TestContextFormatEmpty(t *testing.T) {
	if got := (Context{}).Format(); got != "" {
		t.Fatalf("Format of empty context = %q, want empty", got)
	}
}
