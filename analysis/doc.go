// Package analysis defines the result types produced for an MRI upload and
// the fixed rules used to assemble them from model and explainer output.
//
// A Record is the unit stored in the result cache. Its Variant says which
// result kinds it holds; a Full record can serve Classification and
// Interpretation requests, narrower records serve only themselves.
package analysis
