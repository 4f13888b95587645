package metadata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WorkedExample pairs a natural-language question with the exact structured
// reply the backend is expected to produce for it.
type WorkedExample struct {
	Question string `yaml:"question"`
	Response string `yaml:"response"`
}

// PromptAssets holds the structured-query contract description and worked
// examples sent alongside schema metadata.
type PromptAssets struct {
	QueryContract string          `yaml:"query_contract"`
	Examples      []WorkedExample `yaml:"examples"`
}

// LoadPromptAssets loads prompt assets from a YAML file.
func LoadPromptAssets(path string) (*PromptAssets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt assets: %w", err)
	}

	var assets PromptAssets
	if err := yaml.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	// Fill gaps from the compiled-in defaults.
	defaults := DefaultPromptAssets()
	if assets.QueryContract == "" {
		assets.QueryContract = defaults.QueryContract
	}
	if len(assets.Examples) == 0 {
		assets.Examples = defaults.Examples
	}
	return &assets, nil
}

// DefaultPromptAssets returns the compiled-in prompt assets, used when no
// YAML override is present.
func DefaultPromptAssets() *PromptAssets {
	return &PromptAssets{
		QueryContract: `When the question asks for a computation over the dataset, reply with a single JSON object and nothing else:
{
  "operation": "query",
  "filterExpression": "<boolean expression over one record>",
  "aggregation": "sum" | "count" | "average" | "group" | "none",
  "aggregationField": "<numeric field, required for sum/average>",
  "groupBy": "<field name, or 'month'/'year', required for group>",
  "explanation": "<one sentence describing the computation>"
}
The filter expression references a single record as 'expense' or 'investment', e.g. expense.category == 'Groceries' && expense.amount > 500. Use month(expense.date) and year(expense.date) to compare calendar parts. Do not call any other function.`,
		Examples: []WorkedExample{
			{
				Question: "How much did I spend on groceries?",
				Response: `{"operation":"query","filterExpression":"expense.category == 'Groceries'","aggregation":"sum","aggregationField":"amount","explanation":"Total grocery spending."}`,
			},
			{
				Question: "Break down my spending by category this year.",
				Response: `{"operation":"query","filterExpression":"year(expense.date) == 2024","aggregation":"group","groupBy":"category","aggregationField":"amount","explanation":"Spending per category for 2024."}`,
			},
			{
				Question: "How many SIPs do I have?",
				Response: `{"operation":"query","filterExpression":"investment.type == 'SIP'","aggregation":"count","explanation":"Number of SIP investments."}`,
			},
		},
	}
}
