package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/keyscope-dev/keyscope-engine/pkg/jsonutil"
	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

// implicitValueField is the field name assigned when a table holds a single
// scalar value instead of record objects.
const implicitValueField = "value"

// sampleTable extracts object-shaped records from a stored table value, up
// to limit. Non-object array elements are skipped and reported as warnings;
// a single scalar value becomes a one-record table with an implicit "value"
// field.
func sampleTable(value models.Value, limit int) ([]models.Value, []string) {
	var warnings []string

	switch value.Type() {
	case models.ValueTypeArray:
		items := value.Items()
		total := len(items)
		if total > limit {
			items = items[:limit]
			warnings = append(warnings, fmt.Sprintf("sample truncated to %d of %d records", limit, total))
		}

		records := make([]models.Value, 0, len(items))
		skipped := 0
		for _, item := range items {
			if item.Type() != models.ValueTypeObject {
				skipped++
				continue
			}
			records = append(records, item)
		}
		if skipped > 0 {
			warnings = append(warnings, fmt.Sprintf("skipped %d non-object records", skipped))
		}
		return records, warnings

	case models.ValueTypeObject:
		return []models.Value{value}, nil

	case models.ValueTypeNull, models.ValueTypeUndefined:
		return nil, nil

	default:
		// Scalar slot: treat as a one-record table with an implicit field.
		record := models.Object(map[string]models.Value{implicitValueField: value})
		return []models.Value{record}, nil
	}
}

// isIDName reports whether a column name follows the id naming convention:
// exactly "id", suffix "_id", or prefix "id_" (case-insensitive).
func isIDName(name string) bool {
	lower := strings.ToLower(name)
	return lower == "id" || strings.HasSuffix(lower, "_id") || strings.HasPrefix(lower, "id_")
}

// isForeignKeyName reports whether a column name follows a foreign-key
// naming convention: suffix "id" or "_ref", or prefix "fk_". The literal
// name "id" is the table's own key, never a reference.
func isForeignKeyName(name string) bool {
	lower := strings.ToLower(name)
	if lower == "id" {
		return false
	}
	return strings.HasSuffix(lower, "id") ||
		strings.HasSuffix(lower, "_ref") ||
		strings.HasPrefix(lower, "fk_")
}

// hasReferenceSuffix reports the explicit reference conventions that go
// beyond a plain id suffix.
func hasReferenceSuffix(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, "_ref") || strings.HasPrefix(lower, "fk_")
}

// guessReferencedTable extracts a probable referenced-table name from a
// foreign-key-shaped column name by stripping the reference affixes:
// "user_id" and "userId" yield "user", "fk_account" yields "account",
// "owner_ref" yields "owner". Returns "" when nothing remains.
func guessReferencedTable(name string) string {
	lower := strings.ToLower(name)

	lower = strings.TrimPrefix(lower, "fk_")
	switch {
	case strings.HasSuffix(lower, "_id"):
		lower = strings.TrimSuffix(lower, "_id")
	case strings.HasSuffix(lower, "_ref"):
		lower = strings.TrimSuffix(lower, "_ref")
	case strings.HasSuffix(lower, "id") && len(lower) > 2:
		lower = strings.TrimSuffix(lower, "id")
	}

	return strings.Trim(lower, "_")
}

// columnAccumulator collects per-column observations across the sample.
type columnAccumulator struct {
	name     string
	present  int
	nulls    int
	nonNull  []models.Value
	kinds    map[models.Kind]int
	kindSeen []models.Kind

	// distinct holds stringified distinct non-null values.
	distinct map[string]struct{}
}

func newColumnAccumulator(name string) *columnAccumulator {
	return &columnAccumulator{
		name:     name,
		kinds:    make(map[models.Kind]int),
		distinct: make(map[string]struct{}),
	}
}

func (a *columnAccumulator) observe(v models.Value) {
	a.present++
	if v.IsNull() {
		a.nulls++
		return
	}

	a.nonNull = append(a.nonNull, v)

	kind := InferKind(v)
	if _, seen := a.kinds[kind]; !seen {
		a.kindSeen = append(a.kindSeen, kind)
	}
	a.kinds[kind]++

	a.distinct[stringifyForSet(v)] = struct{}{}
}

// stringifyForSet renders any value as a stable distinct-set key. Scalars
// use the flexible string form so 1 and "1" bucket together; composites use
// the deterministic Value rendering.
func stringifyForSet(v models.Value) string {
	if s, ok := jsonutil.FlexibleString(v); ok {
		return s
	}
	return v.String()
}

// majorityKind returns the most frequent kind across non-null observations,
// breaking ties by first-seen order. Columns with no non-null observations
// are null-kinded.
func (a *columnAccumulator) majorityKind() models.Kind {
	if len(a.nonNull) == 0 {
		if a.nulls > 0 {
			return models.KindNull
		}
		return models.KindUndefined
	}

	best := a.kindSeen[0]
	for _, k := range a.kindSeen[1:] {
		if a.kinds[k] > a.kinds[best] {
			best = k
		}
	}
	return best
}

// buildColumnAnalyses computes a ColumnAnalysis for every field across the
// sampled records. Field order is first-seen by record, alphabetical within
// a record, so repeated analysis over the same sample is deterministic.
func buildColumnAnalyses(records []models.Value, maxExamples int) (map[string]*models.ColumnAnalysis, []string) {
	accs := make(map[string]*columnAccumulator)
	var order []string

	for _, record := range records {
		fields := record.Fields()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := fields[k]
			if v.IsUndefined() {
				continue
			}
			acc, ok := accs[k]
			if !ok {
				acc = newColumnAccumulator(k)
				accs[k] = acc
				order = append(order, k)
			}
			acc.observe(v)
		}
	}

	analyses := make(map[string]*models.ColumnAnalysis, len(accs))
	for _, name := range order {
		analyses[name] = accs[name].finalize(len(records), maxExamples)
	}
	return analyses, order
}

func (a *columnAccumulator) finalize(totalRecords, maxExamples int) *models.ColumnAnalysis {
	nonNullCount := len(a.nonNull)
	cardinality := len(a.distinct)

	analysis := &models.ColumnAnalysis{
		Name:         a.name,
		Type:         a.majorityKind(),
		Nullable:     a.present < totalRecords || a.nulls > 0,
		Unique:       nonNullCount >= 2 && cardinality == nonNullCount,
		Cardinality:  cardinality,
		NonNullCount: nonNullCount,
	}
	if totalRecords > 0 {
		analysis.Frequency = float64(a.present) / float64(totalRecords)
	}

	for i := 0; i < len(a.nonNull) && i < maxExamples; i++ {
		analysis.Examples = append(analysis.Examples, a.nonNull[i].Clone())
	}

	analysis.Patterns = a.detectPatterns()
	a.attachStats(analysis)
	return analysis
}

// detectPatterns computes the column's name- and value-shape heuristics.
func (a *columnAccumulator) detectPatterns() models.ColumnPatterns {
	p := models.ColumnPatterns{
		IsID:               isIDName(a.name),
		IsForeignKey:       isForeignKeyName(a.name),
		HasReferenceSuffix: hasReferenceSuffix(a.name),
	}
	if len(a.nonNull) == 0 {
		return p
	}

	p.IsUUID = true
	p.IsNumericID = true
	p.IsEmail = true
	p.IsURL = true
	p.IsPhone = true

	for _, v := range a.nonNull {
		s, scalar := jsonutil.FlexibleString(v)
		if !scalar {
			return models.ColumnPatterns{
				IsID:               p.IsID,
				IsForeignKey:       p.IsForeignKey,
				HasReferenceSuffix: p.HasReferenceSuffix,
			}
		}

		p.IsNumericID = p.IsNumericID && numericIDPattern.MatchString(s)

		str, isStr := v.AsString()
		if !isStr {
			p.IsUUID = false
			p.IsEmail = false
			p.IsURL = false
			p.IsPhone = false
			continue
		}
		p.IsUUID = p.IsUUID && isUUIDValue(str)
		p.IsEmail = p.IsEmail && emailPattern.MatchString(str)
		p.IsURL = p.IsURL && urlPattern.MatchString(str)
		p.IsPhone = p.IsPhone && phonePattern.MatchString(str)
	}
	return p
}

// attachStats computes the type-specific statistics block matching the
// column's majority kind.
func (a *columnAccumulator) attachStats(analysis *models.ColumnAnalysis) {
	switch analysis.Type {
	case models.KindString:
		var lengths []int
		for _, v := range a.nonNull {
			if s, ok := v.AsString(); ok {
				lengths = append(lengths, len(s))
			}
		}
		if len(lengths) == 0 {
			return
		}
		stats := &models.StringStats{MinLength: lengths[0], MaxLength: lengths[0]}
		sum := 0
		for _, l := range lengths {
			if l < stats.MinLength {
				stats.MinLength = l
			}
			if l > stats.MaxLength {
				stats.MaxLength = l
			}
			sum += l
		}
		stats.AvgLength = float64(sum) / float64(len(lengths))
		analysis.StringStats = stats

	case models.KindNumber:
		var nums []float64
		isInteger := true
		for _, v := range a.nonNull {
			if n, ok := v.AsNumber(); ok {
				nums = append(nums, n)
				if n != float64(int64(n)) {
					isInteger = false
				}
			}
		}
		if len(nums) == 0 {
			return
		}
		sorted := make([]float64, len(nums))
		copy(sorted, nums)
		sort.Float64s(sorted)

		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		median := sorted[len(sorted)/2]
		if len(sorted)%2 == 0 {
			median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
		}
		analysis.NumberStats = &models.NumberStats{
			Min:       sorted[0],
			Max:       sorted[len(sorted)-1],
			Avg:       sum / float64(len(nums)),
			Median:    median,
			IsInteger: isInteger,
		}

	case models.KindDate:
		stats := &models.DateStats{}
		variants := make(map[string]struct{})
		first := true
		for _, v := range a.nonNull {
			s, ok := v.AsString()
			if !ok {
				continue
			}
			t, variant, ok := ParseDate(s)
			if !ok {
				continue
			}
			if _, seen := variants[variant]; !seen {
				variants[variant] = struct{}{}
				stats.FormatVariants = append(stats.FormatVariants, variant)
			}
			if first {
				stats.Earliest, stats.Latest = t, t
				first = false
				continue
			}
			if t.Before(stats.Earliest) {
				stats.Earliest = t
			}
			if t.After(stats.Latest) {
				stats.Latest = t
			}
		}
		if first {
			return
		}
		stats.SpanDays = stats.Latest.Sub(stats.Earliest).Hours() / 24
		analysis.DateStats = stats
	}
}
