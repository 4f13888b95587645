// Package metadata builds the schema/statistics description of a mode's
// dataset that is sent to a generative backend at most once per session.
package metadata

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/finsight-ai/finsight/ai/session"
	"github.com/finsight-ai/finsight/store"
)

// DataProvider supplies the collection snapshot the descriptor is computed
// from.
type DataProvider interface {
	Snapshot(ctx context.Context, collection string) ([]store.Record, error)
}

// domainField names the field whose distinct values are enumerated as the
// collection's value domain.
var domainField = map[string]string{
	store.CollectionExpenses:    "category",
	store.CollectionInvestments: "type",
}

const (
	maxSampleValues = 3
	maxDomainValues = 20
)

// Generator produces dataset descriptors. Concurrent generations for the
// same mode are deduplicated; the descriptor is pure over the snapshot, so
// sharing one in-flight computation is safe.
type Generator struct {
	data   DataProvider
	assets *PromptAssets
	group  singleflight.Group
}

// NewGenerator creates a Generator. assets may be nil, in which case the
// compiled-in prompt assets are used.
func NewGenerator(data DataProvider, assets *PromptAssets) *Generator {
	if assets == nil {
		assets = DefaultPromptAssets()
	}
	return &Generator{data: data, assets: assets}
}

// Generate builds the descriptor for a mode: field names/types/samples,
// observed value domains, numeric and date ranges, a record total, and the
// structured-query contract the backend is expected to follow.
func (g *Generator) Generate(ctx context.Context, mode session.Mode) (string, error) {
	v, err, _ := g.group.Do(string(mode), func() (any, error) {
		return g.generate(ctx, mode)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (g *Generator) generate(ctx context.Context, mode session.Mode) (string, error) {
	if !mode.Valid() {
		return "", fmt.Errorf("unsupported mode %q", mode)
	}
	collection := string(mode)

	records, err := g.data.Snapshot(ctx, collection)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", collection, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dataset: %s\n", collection)

	if len(records) == 0 {
		// Never compute ranges over an empty sequence.
		b.WriteString("The dataset is currently empty; no records to describe.\n\n")
		g.writeContract(&b)
		return b.String(), nil
	}

	fmt.Fprintf(&b, "Total records: %d\n\n", len(records))

	g.writeFields(&b, records)
	g.writeDomain(&b, collection, records)
	g.writeAmountRange(&b, collection, records)
	g.writeDateRange(&b, collection, records)
	g.writeContract(&b)

	return b.String(), nil
}

func (g *Generator) writeFields(b *strings.Builder, records []store.Record) {
	fields := make(map[string]bool)
	for _, record := range records {
		for name := range record {
			fields[name] = true
		}
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("Fields:\n")
	for _, name := range names {
		fmt.Fprintf(b, "- %s (%s), e.g. %s\n", name, fieldType(records, name), strings.Join(sampleValues(records, name), ", "))
	}
	b.WriteString("\n")
}

func (g *Generator) writeDomain(b *strings.Builder, collection string, records []store.Record) {
	field, ok := domainField[collection]
	if !ok {
		return
	}
	seen := make(map[string]bool)
	var values []string
	for _, record := range records {
		v := record.String(field)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
		if len(values) == maxDomainValues {
			break
		}
	}
	if len(values) > 0 {
		sort.Strings(values)
		fmt.Fprintf(b, "Observed %s values: %s\n", field, strings.Join(values, ", "))
	}
}

func (g *Generator) writeAmountRange(b *strings.Builder, collection string, records []store.Record) {
	field := store.AmountField(collection)
	var minV, maxV float64
	found := false
	for _, record := range records {
		n, ok := record.Number(field)
		if !ok {
			continue
		}
		if !found {
			minV, maxV = n, n
			found = true
			continue
		}
		if n < minV {
			minV = n
		}
		if n > maxV {
			maxV = n
		}
	}
	if found {
		fmt.Fprintf(b, "%s range: %.2f to %.2f\n", field, minV, maxV)
	}
}

func (g *Generator) writeDateRange(b *strings.Builder, collection string, records []store.Record) {
	field := store.DateField(collection)
	var minD, maxD string
	for _, record := range records {
		// ISO dates sort lexicographically.
		v := record.String(field)
		if v == "" {
			continue
		}
		if minD == "" || v < minD {
			minD = v
		}
		if v > maxD {
			maxD = v
		}
	}
	if minD != "" {
		fmt.Fprintf(b, "%s range: %s to %s\n", field, minD, maxD)
	}
}

func (g *Generator) writeContract(b *strings.Builder) {
	b.WriteString("\n")
	b.WriteString(g.assets.QueryContract)
	b.WriteString("\n\nExamples:\n")
	for _, example := range g.assets.Examples {
		fmt.Fprintf(b, "Q: %s\nA: %s\n", example.Question, example.Response)
	}
}

func fieldType(records []store.Record, name string) string {
	for _, record := range records {
		switch record[name].(type) {
		case nil:
			continue
		case string:
			return "string"
		case float64, float32, int, int64:
			return "number"
		case bool:
			return "bool"
		default:
			return "object"
		}
	}
	return "unknown"
}

func sampleValues(records []store.Record, name string) []string {
	seen := make(map[string]bool)
	var samples []string
	for _, record := range records {
		v := record.String(name)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		samples = append(samples, v)
		if len(samples) == maxSampleValues {
			break
		}
	}
	if len(samples) == 0 {
		samples = []string{"(empty)"}
	}
	return samples
}
