// Package model holds the classifier handle the pipeline predicts through.
//
// Lazy defers loading until the first prediction (or an explicit Warm) and
// makes concurrent first callers share one load. A failed load is not
// remembered, so the next call tries again.
package model
