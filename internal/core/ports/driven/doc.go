// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for a dump run to function:
//
//   - MessageSource: Paginated channel history (cursor-before)
//   - Directory: Current account, servers and channels
//   - TokenProvider: Resolves the auth token at run start
//   - ArchiveStorage: Write-once record file persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - TextClassifier: Remote fallback. Without it, unmatched items are Conversations.
//   - Reporter: Per-scope and final summaries. Without it, summaries are only logged.
//   - Revealer: Opens the archive folder. Without it, completion is silent.
//   - RunStore: Run history. Without it, history is not kept.
//   - PipelineMetrics: Counters. Without it, a no-op is used.
//   - MessageStream: Live gateway feed for the collector.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
