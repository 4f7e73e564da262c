// Package workflow defines the result approval pipeline: the ordered stages,
// the role that owns each forward edge, and the batch eligibility rules the
// result service applies before anything is persisted.
package workflow
