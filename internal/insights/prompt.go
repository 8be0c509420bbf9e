package insights

import (
	"fmt"
	"strings"
)

// Chart kinds a generated query may target.
const (
	ChartCumulative = "cumulative"
	ChartArea       = "area"
	ChartBar        = "bar"
	ChartPie        = "pie"
)

var chartKinds = []string{ChartCumulative, ChartArea, ChartBar, ChartPie}

func validChart(kind string) bool {
	for _, k := range chartKinds {
		if k == kind {
			return true
		}
	}
	return false
}

const schemaDescription = `You are helping generate SQLite SQL for a personal finance app.

Database schema (SQLite) - use only these tables/columns:

Table accounts (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  currency TEXT NOT NULL,
  balance TEXT NOT NULL,           -- decimal string
  balance_date INTEGER NOT NULL,   -- unix seconds
  type TEXT DEFAULT 'uncategorized'
);

Table transactions (
  id TEXT PRIMARY KEY,
  account_id TEXT,
  posted INTEGER,                  -- unix seconds
  amount TEXT,                     -- signed decimal string; expenses are negative
  description TEXT,                -- usable in place of payee
  payee TEXT NULL,
  transacted_at INTEGER NULL,      -- unix seconds, fall back to posted
  pending INTEGER,                 -- 0/1
  hidden INTEGER,                  -- 0/1
  category TEXT                    -- includes 'Internal Transfer'
);
`

const rules = `
Rules:
- Always filter out hidden = 1 and category = 'Internal Transfer'.
- For spend analyses, use amount < 0 and ABS(CAST(amount AS REAL)) for magnitude.
- When grouping by date use DATE(COALESCE(transacted_at, posted), 'unixepoch').
- Return exactly one SELECT statement. No comments. No backticks.
- Keep time series to a reasonable number of rows.

Chart types allowed:
- cumulative: cumulative spending over time. Provide date and series columns.
- area: non-cumulative time series. Provide date and series columns.
- bar: stacked bars. Time series use a 'date' column plus series columns; categorical bars use 'label' and 'value'.
- pie: composition breakdown with 'label' and 'value' columns.
`

// BuildPrompt assembles the instruction sent to the model.
func BuildPrompt(request string, categories []string) string {
	var b strings.Builder
	b.WriteString(schemaDescription)
	if len(categories) > 0 {
		b.WriteString("\nCategory values present in data (case-sensitive; exclude 'Internal Transfer' in queries):\n")
		for _, c := range categories {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	b.WriteString(rules)
	fmt.Fprintf(&b, "\nUser request: %s\n", request)
	fmt.Fprintf(&b, "Return a strict JSON object with keys sql and chart where chart is one of [%s].\n", strings.Join(chartKinds, ", "))
	return b.String()
}
