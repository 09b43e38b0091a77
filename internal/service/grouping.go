package service

import "multi-timer/internal/model"

// GroupByCategory splits timers into groups ordered by the first appearance of
// each category. Members keep their roster order. Categories match exactly.
func GroupByCategory(timers []model.Timer) []model.Group {
	index := make(map[string]int)
	groups := make([]model.Group, 0)
	for _, timer := range timers {
		i, ok := index[timer.Category]
		if !ok {
			i = len(groups)
			index[timer.Category] = i
			groups = append(groups, model.Group{Category: timer.Category})
		}
		groups[i].Timers = append(groups[i].Timers, timer)
	}
	return groups
}
