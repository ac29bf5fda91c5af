// Package validator implements the Data Validator: per-column type
// detection with confidence scoring, issue/suggestion generation, and
// auto-fix coercion.
package validator

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DataType is the detected category of a column's values.
type DataType int

const (
	DataTypeUnknown DataType = iota
	DataTypeNumeric
	DataTypeDatetime
	DataTypeBoolean
	DataTypeMixed
	DataTypeString
)

func (t DataType) String() string {
	switch t {
	case DataTypeNumeric:
		return "numeric"
	case DataTypeDatetime:
		return "datetime"
	case DataTypeBoolean:
		return "boolean"
	case DataTypeMixed:
		return "mixed"
	case DataTypeString:
		return "string"
	default:
		return "unknown"
	}
}

// SuggestedAction names the auto-fix action a caller can apply to a column.
type SuggestedAction int

const (
	ActionNone SuggestedAction = iota
	ActionCoerceNumeric
	ActionParseDatetime
	ActionDropColumn
	ActionManualReview
)

func (a SuggestedAction) String() string {
	switch a {
	case ActionCoerceNumeric:
		return "coerce_numeric"
	case ActionParseDatetime:
		return "parse_datetime"
	case ActionDropColumn:
		return "drop_column"
	case ActionManualReview:
		return "manual_review"
	default:
		return "none"
	}
}

// Confidence thresholds for each detection step, in detection order.
const (
	numericThreshold  = 0.8
	datetimeThreshold = 0.7
	booleanThreshold  = 0.8
	mixedConfidence   = 0.6
	stringConfidence  = 0.5

	highNullPercentage   = 50.0
	mediumNullPercentage = 20.0
	lowUniqueCount       = 3
	highUniqueRatio      = 0.95
	highUniqueRatioRows  = 100
	mixedSampleSize      = 20
)

var booleanValues = map[string]bool{
	"true": true, "false": true, "1": true, "0": true,
	"yes": true, "no": true, "y": true, "n": true,
}

type datetimePattern struct {
	name       string
	re         *regexp.Regexp
	format     string
	confidence float64
}

// datetimePatterns mirrors the original detector's pattern library, in the
// order ISO, US, EU, Turkish, Unix timestamp, Excel serial.
var datetimePatterns = []datetimePattern{
	{"iso_datetime", regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[\sT]\d{2}:\d{2}:\d{2}`), "2006-01-02 15:04:05", 0.95},
	{"iso_date", regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), "2006-01-02", 0.90},
	{"us_datetime", regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}\s\d{1,2}:\d{2}:\d{2}`), "01/02/2006 15:04:05", 0.85},
	{"eu_datetime", regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}\s\d{1,2}:\d{2}:\d{2}`), "02/01/2006 15:04:05", 0.80},
	{"turkish_datetime", regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}\s\d{1,2}:\d{2}:\d{2}`), "02.01.2006 15:04:05", 0.85},
	{"timestamp", regexp.MustCompile(`^\d{10}(\.\d+)?$`), "timestamp", 0.90},
	{"excel_serial", regexp.MustCompile(`^\d{5}(\.\d+)?$`), "excel_serial", 0.70},
}

// excelEpoch is Excel's day-zero (1899-12-30, accounting for the historical
// leap-year bug) used to convert Excel serial dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Result is one column's validation outcome.
type Result struct {
	IsValid         bool
	DataType        DataType
	Confidence      float64
	DetectedFormat  string
	Issues          []string
	Suggestions     []string
	SuggestedAction SuggestedAction
	Statistics      map[string]float64
}

// ValidateColumn runs detection, type-specific checks, and suggestion
// generation over a column's raw string values (empty string means null).
func ValidateColumn(values []string) Result {
	result := Result{IsValid: true, DataType: DataTypeUnknown, Statistics: map[string]float64{}}

	nonNull := nonNullValues(values)
	computeBasicStats(values, nonNull, result.Statistics)

	if len(nonNull) == 0 {
		return result
	}

	result.DataType, result.Confidence, result.DetectedFormat = detectDataType(nonNull)

	switch result.DataType {
	case DataTypeDatetime:
		validateDatetimeColumn(nonNull, &result)
	case DataTypeNumeric:
		validateNumericColumn(nonNull, &result)
	case DataTypeString:
		validateStringColumn(nonNull, &result)
	case DataTypeMixed:
		validateMixedColumn(nonNull, &result)
	}

	checkCommonIssues(&result)
	generateSuggestions(&result)

	return result
}

func nonNullValues(values []string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}

	return out
}

func computeBasicStats(all, nonNull []string, stats map[string]float64) {
	stats["total_count"] = float64(len(all))
	stats["null_count"] = float64(len(all) - len(nonNull))

	if len(all) > 0 {
		stats["null_percentage"] = stats["null_count"] / float64(len(all)) * 100
	}

	stats["unique_count"] = float64(len(uniqueSet(nonNull)))
}

func uniqueSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}

	return set
}

// detectDataType runs a fixed detection order: numeric, then datetime,
// then boolean, then a mixed-type heuristic, then string as the fallback.
// The first step whose confidence clears its threshold wins.
func detectDataType(values []string) (DataType, float64, string) {
	if confidence := checkNumericType(values); confidence > numericThreshold {
		return DataTypeNumeric, confidence, ""
	}

	if confidence, format := checkDatetimeType(values); confidence > datetimeThreshold {
		return DataTypeDatetime, confidence, format
	}

	if confidence := checkBooleanType(values); confidence > booleanThreshold {
		return DataTypeBoolean, confidence, ""
	}

	if isMixedType(values) {
		return DataTypeMixed, mixedConfidence, ""
	}

	return DataTypeString, stringConfidence, ""
}

func checkNumericType(values []string) float64 {
	validCount := 0

	for _, v := range values {
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			validCount++
		}
	}

	confidence := float64(validCount) / float64(len(values))

	switch {
	case confidence > 0.9:
		return confidence
	case confidence > 0.7:
		return confidence * 0.9
	default:
		return confidence * 0.5
	}
}

func checkDatetimeType(values []string) (float64, string) {
	maxConfidence := 0.0
	bestFormat := ""

	for _, p := range datetimePatterns {
		matches := 0

		for _, v := range values {
			if p.re.MatchString(v) {
				matches++
			}
		}

		if matches == 0 {
			continue
		}

		confidence := float64(matches) / float64(len(values)) * p.confidence
		if confidence > maxConfidence {
			maxConfidence = confidence
			bestFormat = p.format
		}
	}

	return maxConfidence, bestFormat
}

func checkBooleanType(values []string) float64 {
	matches := 0

	for _, v := range values {
		if booleanValues[strings.ToLower(v)] {
			matches++
		}
	}

	return float64(matches) / float64(len(values))
}

func isMixedType(values []string) bool {
	sampleSize := min(mixedSampleSize, len(values))
	types := make(map[string]bool)

	for _, v := range values[:sampleSize] {
		types[coarseValueType(v)] = true
	}

	return len(types) > 1
}

// coarseValueType classifies one value for the mixed-type sample heuristic.
func coarseValueType(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return "numeric"
	}

	for _, p := range datetimePatterns {
		if p.format != "timestamp" && p.format != "excel_serial" && p.re.MatchString(v) {
			return "datetime"
		}
	}

	return "string"
}

func validateDatetimeColumn(values []string, result *Result) {
	failed := 0

	for _, v := range values {
		if _, err := parseDatetime(v, result.DetectedFormat); err != nil {
			failed++
		}
	}

	if failed > 0 {
		result.Issues = append(result.Issues, "values could not be converted to datetime")
		result.IsValid = false
	}

	var minDate, maxDate time.Time

	first := true

	for _, v := range values {
		t, err := parseDatetime(v, result.DetectedFormat)
		if err != nil {
			continue
		}

		if first || t.Before(minDate) {
			minDate = t
		}

		if first || t.After(maxDate) {
			maxDate = t
		}

		first = false
	}

	if !first {
		if minDate.Before(time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)) {
			result.Issues = append(result.Issues, "suspiciously old date detected")
		}

		if maxDate.After(time.Now().AddDate(0, 0, 365)) {
			result.Issues = append(result.Issues, "future date detected")
		}

		result.Statistics["date_range_days"] = maxDate.Sub(minDate).Hours() / 24
	}
}

// parseDatetime converts a raw value using format, which is either a Go
// layout string, "timestamp" (Unix seconds), or "excel_serial".
func parseDatetime(v, format string) (time.Time, error) {
	switch format {
	case "timestamp":
		seconds, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return time.Time{}, err
		}

		return time.Unix(int64(seconds), 0).UTC(), nil
	case "excel_serial":
		days, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return time.Time{}, err
		}

		return excelEpoch.Add(time.Duration(days * 24 * float64(time.Hour))), nil
	default:
		return time.Parse(format, v)
	}
}

func validateNumericColumn(values []string, result *Result) {
	nums := make([]float64, 0, len(values))
	failed := 0

	for _, v := range values {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			failed++

			continue
		}

		if math.IsInf(n, 0) {
			result.IsValid = false
		}

		nums = append(nums, n)
	}

	if failed > 0 {
		result.Issues = append(result.Issues, "values could not be converted to a numeric type")
	}

	if len(nums) == 0 {
		return
	}

	q1, q3 := quartiles(nums)
	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr

	outliers := 0
	infinities := 0

	for _, n := range nums {
		if n < lower || n > upper {
			outliers++
		}

		if math.IsInf(n, 0) {
			infinities++
		}
	}

	if outliers > 0 {
		result.Issues = append(result.Issues, "outlier values detected")
	}

	if infinities > 0 {
		result.Issues = append(result.Issues, "infinite values detected")
		result.IsValid = false
	}
}

func quartiles(values []float64) (q1, q3 float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return percentile(sorted, 0.25), percentile(sorted, 0.75)
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	if len(sorted) == 1 {
		return sorted[0]
	}

	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))

	if lo == hi {
		return sorted[lo]
	}

	frac := idx - float64(lo)

	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

const maxReasonableStringLength = 1000

func validateStringColumn(values []string, result *Result) {
	emptyStrings := 0
	maxLength := 0

	for _, v := range values {
		if v == "" {
			emptyStrings++
		}

		if len(v) > maxLength {
			maxLength = len(v)
		}
	}

	if emptyStrings > 0 {
		result.Issues = append(result.Issues, "empty string values detected")
	}

	if maxLength > maxReasonableStringLength {
		result.Issues = append(result.Issues, "unusually long string values detected")
	}
}

func validateMixedColumn(values []string, result *Result) {
	result.Issues = append(result.Issues, "mixed data types detected")
	result.IsValid = false

	sampleSize := min(50, len(values))
	typeCounts := make(map[string]float64)

	for _, v := range values[:sampleSize] {
		typeCounts[coarseValueType(v)]++
	}

	for t, count := range typeCounts {
		result.Statistics["type_distribution_"+t] = count
	}
}

func checkCommonIssues(result *Result) {
	nullPct := result.Statistics["null_percentage"]

	switch {
	case nullPct > highNullPercentage:
		result.Issues = append(result.Issues, "high null percentage")
		result.IsValid = false
	case nullPct > mediumNullPercentage:
		result.Issues = append(result.Issues, "moderate null percentage")
	}

	unique := result.Statistics["unique_count"]
	total := result.Statistics["total_count"]

	if unique == 1 {
		result.Issues = append(result.Issues, "all values are identical (constant column)")
	} else if unique < lowUniqueCount && total > 10 {
		result.Issues = append(result.Issues, "very few unique values")
	}

	if total > 0 && unique/total > highUniqueRatio && total > highUniqueRatioRows {
		result.Issues = append(result.Issues, "very high unique-value ratio (may be an identifier column)")
	}
}

func generateSuggestions(result *Result) {
	result.SuggestedAction = ActionNone

	switch result.DataType {
	case DataTypeDatetime:
		if result.DetectedFormat != "" {
			result.Suggestions = append(result.Suggestions, "detected format: "+result.DetectedFormat)
		}

		if containsIssue(result.Issues, "could not be converted to datetime") {
			result.Suggestions = append(result.Suggestions, "try a different datetime format", "clean malformed values")
			result.SuggestedAction = ActionParseDatetime
		}
	case DataTypeNumeric:
		if containsIssue(result.Issues, "could not be converted to a numeric type") {
			result.Suggestions = append(result.Suggestions, "strip non-numeric characters", "check decimal separator")
			result.SuggestedAction = ActionCoerceNumeric
		}

		if containsIssue(result.Issues, "outlier") {
			result.Suggestions = append(result.Suggestions, "review outlier values")
		}
	case DataTypeMixed:
		result.Suggestions = append(result.Suggestions, "standardize value types", "consider splitting into separate columns")
		result.SuggestedAction = ActionManualReview
	case DataTypeBoolean, DataTypeString, DataTypeUnknown:
		// No type-specific suggestions beyond the common ones below.
	}

	if result.Statistics["null_percentage"] > mediumNullPercentage {
		result.Suggestions = append(result.Suggestions, "consider filling or dropping null values")
	}
}

func containsIssue(issues []string, substr string) bool {
	for _, issue := range issues {
		if strings.Contains(issue, substr) {
			return true
		}
	}

	return false
}

// AutoFix coerces values per result.DataType: numeric parses to float64
// (failures become NaN, which propagates to the Column Store's forward
// fill), datetime parses to Unix-epoch seconds. For other data types it
// returns nil and ok false.
func AutoFix(values []string, result Result) ([]float64, bool) {
	switch result.DataType {
	case DataTypeNumeric:
		out := make([]float64, len(values))

		for i, v := range values {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				out[i] = math.NaN()

				continue
			}

			out[i] = n
		}

		return out, true
	case DataTypeDatetime:
		out := make([]float64, len(values))

		for i, v := range values {
			t, err := parseDatetime(v, result.DetectedFormat)
			if err != nil {
				out[i] = math.NaN()

				continue
			}

			out[i] = float64(t.Unix())
		}

		return out, true
	default:
		return nil, false
	}
}

// TableSummary is the aggregate report across every validated column,
// mirroring the original detector's validation report.
type TableSummary struct {
	TotalColumns         int
	ValidColumns         int
	DataTypeDistribution map[string]int
	CommonIssues         map[string]int
	Recommendations      []string
}

// Summarize builds a TableSummary from a column-name-to-Result map.
func Summarize(results map[string]Result) TableSummary {
	summary := TableSummary{
		TotalColumns:         len(results),
		DataTypeDistribution: map[string]int{},
		CommonIssues:         map[string]int{},
	}

	for _, r := range results {
		if r.IsValid {
			summary.ValidColumns++
		}

		summary.DataTypeDistribution[r.DataType.String()]++

		for _, issue := range r.Issues {
			summary.CommonIssues[issue]++
		}
	}

	summary.Recommendations = globalRecommendations(results)

	return summary
}

func globalRecommendations(results map[string]Result) []string {
	var recs []string

	datetimeIssues := 0
	mixedIssues := 0
	highNullColumns := 0

	for _, r := range results {
		if r.DataType == DataTypeDatetime && !r.IsValid {
			datetimeIssues++
		}

		if r.DataType == DataTypeMixed {
			mixedIssues++
		}

		if r.Statistics["null_percentage"] > highNullPercentage {
			highNullColumns++
		}
	}

	if datetimeIssues > 0 {
		recs = append(recs, "review datetime format settings for columns with conversion failures")
	}

	if mixedIssues > 0 {
		recs = append(recs, "clean up columns with mixed data types")
	}

	if highNullColumns > 0 {
		recs = append(recs, "investigate the data source for columns with high null rates")
	}

	return recs
}
