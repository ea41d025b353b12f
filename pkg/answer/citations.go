package answer

import (
	"strings"

	"github.com/hybriq/hybriq/pkg/models"
)

// RelevanceFloor is the minimum similarity score a retrieved chunk needs
// to be cited. Chunks retrieved only to satisfy the fixed top-k count
// should not show up as evidence.
const RelevanceFloor = 0.1

// KnownTables are the relational entities recognized in generated SQL for
// citation purposes.
var KnownTables = []string{
	"Orders",
	"Order Details",
	"Products",
	"Customers",
	"Categories",
	"Suppliers",
}

// Citations collects the evidence identifiers for the final answer:
// retrieved chunk ids above the relevance floor, plus any known table name
// appearing in the SQL — the latter only when execution actually
// succeeded. The result contains no duplicates; first-seen order is kept
// for determinism.
func Citations(state *models.WorkflowState) []string {
	citations := []string{}
	seen := map[string]bool{}

	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			citations = append(citations, id)
		}
	}

	for _, doc := range state.Retrieved {
		if doc.Score > RelevanceFloor {
			add(doc.ID)
		}
	}

	if state.SQLResults.Success && state.SQL != "" {
		sql := strings.ToUpper(state.SQL)

		for _, table := range KnownTables {
			if strings.Contains(sql, strings.ToUpper(table)) {
				add(table)
			}
		}
	}

	return citations
}
