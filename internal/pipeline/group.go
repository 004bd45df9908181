package pipeline

// GroupKey identifies one artwork instruction document: all line items of a
// sales order that share a logo SKU are rendered together.
type GroupKey struct {
	Order string
	Sku   string
}

type Group struct {
	Key      GroupKey
	Verdicts []*Verdict
}

// GroupRows buckets valid rows by (order, SKU), preserving the order in which
// each key first appears in the input so document output is deterministic.
func GroupRows(verdicts []*Verdict) []*Group {
	var groups []*Group
	index := make(map[GroupKey]*Group)

	for _, v := range verdicts {
		if !v.Valid {
			continue
		}

		key := GroupKey{Order: v.Order, Sku: v.Sku}
		group, ok := index[key]
		if !ok {
			group = &Group{Key: key}
			index[key] = group
			groups = append(groups, group)
		}
		group.Verdicts = append(group.Verdicts, v)
	}

	return groups
}
