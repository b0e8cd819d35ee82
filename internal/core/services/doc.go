// Package services implements the driving port interfaces.
//
// The dump pipeline is split into small pieces that the DumpService
// orchestrates: the Fetcher paginates one channel, the Classifier assigns
// a category, the ArchiveWriter persists both record views and the
// ProgressTracker derives percent and ETA. The CollectorService reuses
// the classifier and writer for messages received live.
package services
