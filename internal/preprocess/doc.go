// Package preprocess turns the raw trade and sentiment tables into a single
// merged table keyed by UTC calendar date.
//
// Trade timestamps are day-first IST wall-clock values; sentiment
// timestamps are Unix seconds. Both are converted to UTC before the date is
// taken, so a trade placed shortly after midnight IST belongs to the
// previous UTC day.
package preprocess
