package truncate

// Item is one tool-call result subject to proportional budgeting.
type Item struct {
	Content string
}

// Result pairs the (possibly truncated) content with whether it changed.
type Result struct {
	Content      string
	WasTruncated bool
}

// TruncateToolResults splits totalBudget across items: if every item
// fits within totalBudget as-is, all pass through unchanged. Otherwise
// each item is budgeted proportionally to its original size (uniformly if
// the total size is 0) and truncated individually.
func TruncateToolResults(items []Item, totalBudget int) []Result {
	results := make([]Result, len(items))

	totalSize := 0
	for _, it := range items {
		totalSize += len(it.Content)
	}

	if totalSize <= totalBudget {
		for i, it := range items {
			results[i] = Result{Content: it.Content, WasTruncated: false}
		}
		return results
	}

	n := len(items)
	for i, it := range items {
		var itemBudget int
		if totalSize == 0 {
			if n == 0 {
				itemBudget = 0
			} else {
				itemBudget = totalBudget / n
			}
		} else {
			itemBudget = int(float64(totalBudget) * float64(len(it.Content)) / float64(totalSize))
		}

		truncated := TruncateToolResult(it.Content, itemBudget, DefaultOptions())
		results[i] = Result{
			Content:      truncated,
			WasTruncated: truncated != it.Content,
		}
	}

	return results
}
