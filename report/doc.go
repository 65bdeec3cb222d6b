// Package report renders fitted models for inspection: boosting learning
// curves through gonum/plot and tree structure through Graphviz.
package report
