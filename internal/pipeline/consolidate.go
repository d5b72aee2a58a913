package pipeline

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// Consolidator merges stage results into a report.
type Consolidator struct {
	required []string
}

// NewConsolidator creates a Consolidator that requires one result for each of
// the given stage names.
func NewConsolidator(required []string) *Consolidator {
	return &Consolidator{required: append([]string(nil), required...)}
}

// Required returns the required stage names.
func (c *Consolidator) Required() []string {
	return append([]string(nil), c.required...)
}

// Consolidate builds the report for item. It never returns a partial report:
// a missing, duplicated or foreign result fails the item with IncompleteStages.
func (c *Consolidator) Consolidate(item Item, results []StageResult) (Report, error) {
	fields := make(map[string]string, len(results))
	for _, r := range results {
		if r.ItemID != item.ID {
			return Report{}, newItemError(ReasonIncompleteStages,
				fmt.Errorf("result of stage %s belongs to item %s", r.StageName, r.ItemID))
		}
		if _, dup := fields[r.StageName]; dup {
			return Report{}, newItemError(ReasonIncompleteStages,
				fmt.Errorf("stage %s produced more than one result", r.StageName))
		}
		fields[r.StageName] = r.Output
	}

	var missing []string
	for _, name := range c.required {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Report{}, newItemError(ReasonIncompleteStages,
			fmt.Errorf("missing stages: %s", strings.Join(missing, ", ")))
	}

	report := Report{
		ItemID:      item.ID,
		DisplayName: item.DisplayName,
		Link:        item.Link,
		Fields:      fields,
	}
	if len(item.Metadata) > 0 {
		report.Metadata = maps.Clone(item.Metadata)
	}
	return report, nil
}
