// Package report renders analysis results for people: an HTML chart of the
// openness series and plain-text tables of the play evaluation.
package report
