// Package ingestion maintains the corpus: it imports translation pairs and
// re-embeds stored pairs with the configured model.
//
// Embedding runs on an ants worker pool in batches. Each batch is embedded
// with bounded retry and written in a single repository call, so a failed
// batch never leaves partially embedded pairs behind.
package ingestion
