package service

import (
	"fmt"
	"sort"

	"github.com/hakimzulkifli/tnb-bill-extractor/dto"
)

// Aggregate merges the records of all documents by (year, month), keeping the
// maximum observed kWh and RM per month and the first-seen label and status.
// Duplicate or partial scans of the same bill combine into the most complete
// reading; summing would double-count.
func Aggregate(records []dto.BillRecord) []dto.BillRecord {
	merged := make(map[dto.MonthKey]dto.BillRecord)
	var order []dto.MonthKey

	for _, rec := range records {
		key := rec.Key()
		existing, ok := merged[key]
		if !ok {
			merged[key] = rec
			order = append(order, key)
			continue
		}
		if rec.KWh > existing.KWh {
			existing.KWh = rec.KWh
		}
		if rec.RM > existing.RM {
			existing.RM = rec.RM
		}
		merged[key] = existing
	}

	out := make([]dto.BillRecord, 0, len(order))
	for _, key := range order {
		out = append(out, merged[key])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].MonthNum < out[j].MonthNum
	})
	return out
}

// CompleteTimeline fills every calendar month between the earliest and latest
// observed billing period, synthesizing a zero-valued MISSING record for each
// gap. Found records are never touched. An empty aggregate yields an empty
// timeline.
func CompleteTimeline(records []dto.BillRecord) []dto.BillRecord {
	if len(records) == 0 {
		return nil
	}

	byKey := make(map[dto.MonthKey]dto.BillRecord, len(records))
	minIdx := monthIndex(records[0].Key())
	maxIdx := minIdx
	for _, rec := range records {
		key := rec.Key()
		byKey[key] = rec
		if idx := monthIndex(key); idx < minIdx {
			minIdx = idx
		} else if idx > maxIdx {
			maxIdx = idx
		}
	}

	timeline := make([]dto.BillRecord, 0, maxIdx-minIdx+1)
	for idx := minIdx; idx <= maxIdx; idx++ {
		key := dto.MonthKey{Year: idx / 12, Month: idx%12 + 1}
		if rec, ok := byKey[key]; ok {
			timeline = append(timeline, rec)
			continue
		}
		timeline = append(timeline, dto.BillRecord{
			Year:     key.Year,
			Month:    dto.MonthAbbrev(key.Month),
			MonthNum: key.Month,
			Status:   dto.StatusMissing,
		})
	}
	return timeline
}

func monthIndex(key dto.MonthKey) int {
	return key.Year*12 + key.Month - 1
}

// Summarize computes the headline totals over Found records and lists the
// missing months as "Mon YYYY" strings.
func Summarize(timeline []dto.BillRecord) (dto.Summary, []string) {
	var summary dto.Summary
	var missing []string

	for _, rec := range timeline {
		if rec.Status == dto.StatusMissing {
			missing = append(missing, fmt.Sprintf("%s %d", rec.Month, rec.Year))
			continue
		}
		summary.TotalKWh += rec.KWh
		summary.TotalRM += rec.RM
	}

	if summary.TotalKWh > 0 {
		summary.AvgRMPerKWh = summary.TotalRM / summary.TotalKWh
	}
	return summary, missing
}
