// Package workflow implements the taxonomy generation pipeline for Delve.
// It provides foundational types, prompt composition, response parsing, and
// the state graph that sequences the pipeline stages
// (init → batch → synthesize → update → review → decide? → label → classify).
package workflow

import "errors"

// Sentinel errors for workflow operations.
var (
	ErrEmptyDocumentSet = errors.New("document set is empty")
	ErrInvalidOptions   = errors.New("invalid run options")
	ErrEmptyTaxonomy    = errors.New("taxonomy parse produced no categories")
	ErrSynthesizeFailed = errors.New("taxonomy synthesis failed")
	ErrUpdateFailed     = errors.New("taxonomy update failed")
	ErrReviewFailed     = errors.New("taxonomy review failed")
	ErrDecideFailed     = errors.New("taxonomy decision failed")
	ErrLabelFailed      = errors.New("document labeling failed")
	ErrClassifyFailed   = errors.New("classifier labeling failed")
)
