package workflow_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aitorress/delve-taxonomy/workflow"
)

func TestMinibatches(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		batchSize int
		want      [][]int
	}{
		{"uneven final batch", 3, 2, [][]int{{0, 1}, {2}}},
		{"exact split", 4, 2, [][]int{{0, 1}, {2, 3}}},
		{"single batch covers all", 5, 200, [][]int{{0, 1, 2, 3, 4}}},
		{"batch size one", 3, 1, [][]int{{0}, {1}, {2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := workflow.Minibatches(tt.n, tt.batchSize)
			if err != nil {
				t.Fatalf("Minibatches(%d, %d) error: %v", tt.n, tt.batchSize, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("batch count = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if len(got[i]) != len(tt.want[i]) {
					t.Fatalf("batch %d length = %d, want %d", i, len(got[i]), len(tt.want[i]))
				}
				for j := range tt.want[i] {
					if got[i][j] != tt.want[i][j] {
						t.Errorf("batch %d index %d = %d, want %d", i, j, got[i][j], tt.want[i][j])
					}
				}
			}
		})
	}

	t.Run("zero documents", func(t *testing.T) {
		if _, err := workflow.Minibatches(0, 2); !errors.Is(err, workflow.ErrEmptyDocumentSet) {
			t.Errorf("error = %v, want ErrEmptyDocumentSet", err)
		}
	})

	t.Run("zero batch size", func(t *testing.T) {
		if _, err := workflow.Minibatches(3, 0); !errors.Is(err, workflow.ErrInvalidOptions) {
			t.Errorf("error = %v, want ErrInvalidOptions", err)
		}
	})
}

func TestParseClusterTable(t *testing.T) {
	t.Run("cluster_table wrapper", func(t *testing.T) {
		content := `Here is the taxonomy:
<cluster_table>
  <cluster>
    <id>1</id>
    <name>Billing</name>
    <description>Invoices and payment disputes</description>
  </cluster>
  <cluster>
    <id>2</id>
    <name>Outages</name>
    <description>Service availability reports</description>
  </cluster>
</cluster_table>`

		got := workflow.ParseClusterTable(content)
		if len(got) != 2 {
			t.Fatalf("category count = %d, want 2", len(got))
		}
		if got[0].ID != "1" || got[0].Name != "Billing" || got[0].Description != "Invoices and payment disputes" {
			t.Errorf("first category = %+v", got[0])
		}
		if got[1].Name != "Outages" {
			t.Errorf("second category name = %q, want Outages", got[1].Name)
		}
	})

	t.Run("clusters wrapper", func(t *testing.T) {
		content := `<clusters><cluster><id>7</id><name>Refunds</name><description>Refund requests</description></cluster></clusters>`

		got := workflow.ParseClusterTable(content)
		if len(got) != 1 {
			t.Fatalf("category count = %d, want 1", len(got))
		}
		if got[0].ID != "7" || got[0].Name != "Refunds" {
			t.Errorf("category = %+v", got[0])
		}
	})

	t.Run("bare clusters without wrapper", func(t *testing.T) {
		content := `<cluster><id>1</id><name>Spam</name><description>Unsolicited content</description></cluster>`

		got := workflow.ParseClusterTable(content)
		if len(got) != 1 || got[0].Name != "Spam" {
			t.Fatalf("got %+v, want single Spam category", got)
		}
	})

	t.Run("entry missing name is dropped", func(t *testing.T) {
		content := `<cluster_table>
<cluster><id>1</id><description>orphaned description</description></cluster>
<cluster><id>2</id><name>Kept</name><description>valid entry</description></cluster>
</cluster_table>`

		got := workflow.ParseClusterTable(content)
		if len(got) != 1 || got[0].Name != "Kept" {
			t.Fatalf("got %+v, want single Kept category", got)
		}
	})

	t.Run("malformed content yields empty", func(t *testing.T) {
		if got := workflow.ParseClusterTable("I could not produce a taxonomy."); len(got) != 0 {
			t.Errorf("got %d categories, want 0", len(got))
		}
	})

	t.Run("fields are trimmed", func(t *testing.T) {
		content := `<cluster><id> 3 </id><name>
  Shipping
</name><description>  delivery delays  </description></cluster>`

		got := workflow.ParseClusterTable(content)
		if len(got) != 1 {
			t.Fatalf("category count = %d, want 1", len(got))
		}
		if got[0].ID != "3" || got[0].Name != "Shipping" || got[0].Description != "delivery delays" {
			t.Errorf("category = %+v", got[0])
		}
	})
}

func TestFormatClusterTable(t *testing.T) {
	categories := []workflow.Category{
		{ID: "1", Name: "Billing", Description: "Invoices and payment disputes"},
		{ID: "2", Name: "Outages", Description: "Service availability reports"},
	}

	formatted := workflow.FormatClusterTable(categories)
	if !strings.HasPrefix(formatted, "<cluster_table>") || !strings.HasSuffix(formatted, "</cluster_table>") {
		t.Fatalf("missing cluster_table wrapper:\n%s", formatted)
	}

	parsed := workflow.ParseClusterTable(formatted)
	if len(parsed) != len(categories) {
		t.Fatalf("roundtrip count = %d, want %d", len(parsed), len(categories))
	}
	for i := range categories {
		if parsed[i] != categories[i] {
			t.Errorf("roundtrip category %d = %+v, want %+v", i, parsed[i], categories[i])
		}
	}
}

func TestParseLabel(t *testing.T) {
	taxonomy := []workflow.Category{
		{ID: "1", Name: "Billing", Description: "Invoices and payment disputes"},
		{ID: "2", Name: "Outages", Description: "Service availability reports"},
	}

	t.Run("resolves by id", func(t *testing.T) {
		l := workflow.ParseLabel("<category_id>2</category_id>\n<explanation>Reports downtime.</explanation>", taxonomy)
		if l.Category != "Outages" {
			t.Errorf("category = %q, want Outages", l.Category)
		}
		if l.Explanation != "Reports downtime." {
			t.Errorf("explanation = %q", l.Explanation)
		}
		if len(l.Warnings) != 0 {
			t.Errorf("warnings = %v, want none", l.Warnings)
		}
	})

	t.Run("multiple ids use first and warn", func(t *testing.T) {
		l := workflow.ParseLabel("<category_id>1</category_id><category_id>2</category_id>", taxonomy)
		if l.Category != "Billing" {
			t.Errorf("category = %q, want Billing", l.Category)
		}
		if len(l.Warnings) != 1 {
			t.Fatalf("warnings = %v, want one", l.Warnings)
		}
	})

	t.Run("unknown id falls back to Other", func(t *testing.T) {
		l := workflow.ParseLabel("<category_id>9</category_id>", taxonomy)
		if l.Category != workflow.OtherCategory {
			t.Errorf("category = %q, want %s", l.Category, workflow.OtherCategory)
		}
		if len(l.Warnings) != 1 {
			t.Fatalf("warnings = %v, want one", l.Warnings)
		}
	})

	t.Run("name fallback strips enumeration prefix", func(t *testing.T) {
		l := workflow.ParseLabel("<category>2. outages</category>", taxonomy)
		if l.Category != "Outages" {
			t.Errorf("category = %q, want Outages", l.Category)
		}
		if len(l.Warnings) != 1 || !strings.Contains(l.Warnings[0], "resolved by name") {
			t.Errorf("warnings = %v, want resolved-by-name warning", l.Warnings)
		}
	})

	t.Run("unmatched name falls back to Other", func(t *testing.T) {
		l := workflow.ParseLabel("<category>Weather</category>", taxonomy)
		if l.Category != workflow.OtherCategory {
			t.Errorf("category = %q, want %s", l.Category, workflow.OtherCategory)
		}
	})

	t.Run("no tags falls back to Other", func(t *testing.T) {
		l := workflow.ParseLabel("this document is about billing", taxonomy)
		if l.Category != workflow.OtherCategory {
			t.Errorf("category = %q, want %s", l.Category, workflow.OtherCategory)
		}
		if len(l.Warnings) != 1 {
			t.Fatalf("warnings = %v, want one", l.Warnings)
		}
	})
}

func TestOptionsFinalize(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		var opts workflow.Options
		if err := opts.Finalize(10); err != nil {
			t.Fatalf("Finalize error: %v", err)
		}
		if opts.BatchSize != 200 {
			t.Errorf("BatchSize = %d, want 200", opts.BatchSize)
		}
		if opts.MaxClusters != 25 {
			t.Errorf("MaxClusters = %d, want 25", opts.MaxClusters)
		}
		if opts.UseCase == "" {
			t.Error("UseCase default not applied")
		}
		if opts.EmbeddingModel == "" {
			t.Error("EmbeddingModel default not applied")
		}
		if opts.NameWordLimit == 0 || opts.DescriptionWordLimit == 0 || opts.ExplanationWordLimit == 0 {
			t.Error("word limit defaults not applied")
		}
		if opts.LabelWorkers < 1 {
			t.Errorf("LabelWorkers = %d, want at least 1", opts.LabelWorkers)
		}
	})

	t.Run("preserves explicit values", func(t *testing.T) {
		opts := workflow.Options{BatchSize: 50, MaxClusters: 5, UseCase: "Support triage"}
		if err := opts.Finalize(10); err != nil {
			t.Fatalf("Finalize error: %v", err)
		}
		if opts.BatchSize != 50 || opts.MaxClusters != 5 || opts.UseCase != "Support triage" {
			t.Errorf("explicit values overwritten: %+v", opts)
		}
	})

	t.Run("zero documents", func(t *testing.T) {
		var opts workflow.Options
		if err := opts.Finalize(0); !errors.Is(err, workflow.ErrEmptyDocumentSet) {
			t.Errorf("error = %v, want ErrEmptyDocumentSet", err)
		}
	})

	tests := []struct {
		name string
		opts workflow.Options
	}{
		{"negative batch size", workflow.Options{BatchSize: -1}},
		{"negative sample size", workflow.Options{SampleSize: -5}},
		{"negative max clusters", workflow.Options{MaxClusters: -1}},
		{"threshold above one", workflow.Options{ConfidenceThreshold: 1.5}},
		{"predefined entry missing description", workflow.Options{
			PredefinedTaxonomy: []workflow.Category{{ID: "1", Name: "Billing"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Finalize(10); !errors.Is(err, workflow.ErrInvalidOptions) {
				t.Errorf("error = %v, want ErrInvalidOptions", err)
			}
		})
	}
}

func TestDocumentText(t *testing.T) {
	withSummary := workflow.Document{ID: "a", Content: "full content", Summary: "short summary"}
	if got := withSummary.Text(); got != "short summary" {
		t.Errorf("Text() = %q, want summary", got)
	}

	withoutSummary := workflow.Document{ID: "b", Content: "full content"}
	if got := withoutSummary.Text(); got != "full content" {
		t.Errorf("Text() = %q, want content", got)
	}
}

func TestRunStateTaxonomy(t *testing.T) {
	var rs workflow.RunState
	if rs.Taxonomy() != nil {
		t.Error("Taxonomy() before synthesis should be nil")
	}
	if rs.Revisions() != 0 {
		t.Errorf("Revisions() = %d, want 0", rs.Revisions())
	}

	first := []workflow.Category{{ID: "1", Name: "Billing", Description: "d"}}
	second := []workflow.Category{
		{ID: "1", Name: "Billing", Description: "d"},
		{ID: "2", Name: "Outages", Description: "d"},
	}
	rs.Clusters = append(rs.Clusters, first, second)

	if rs.Revisions() != 2 {
		t.Errorf("Revisions() = %d, want 2", rs.Revisions())
	}
	got := rs.Taxonomy()
	if len(got) != 2 || got[1].Name != "Outages" {
		t.Errorf("Taxonomy() = %+v, want latest revision", got)
	}

	if fmt.Sprint(rs.Clusters[0]) != fmt.Sprint(first) {
		t.Error("revision history mutated")
	}
}
