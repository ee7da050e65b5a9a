// Package core provides the business logic of the lead CRM.
//
// This package contains all domain logic independent of the HTTP layer. It
// can be used by web handlers, CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Service: The entry point for lead, user, team and location operations.
//   - Ingestor: Bulk lead ingestion with phone dedup and an all-or-nothing insert.
//   - LeadStore: The transactional store the Ingestor writes through.
//   - SheetSource: Downloads a shared spreadsheet as CSV.
//
// # Bulk Ingestion
//
// Both import paths end in the same pipeline:
//
//  1. CSV bytes arrive from an upload or from [SheetSource.Fetch]
//  2. [ParseRows] sanitizes UTF-8, reads the header and yields [RawRow] values
//  3. [Ingestor.Ingest] opens one transaction and snapshots stored phones
//  4. Rows are resolved in order; invalid rows and repeated phones are skipped
//  5. Accepted rows are inserted and the transaction commits, or nothing is kept
//
// Column labels are accepted in a human-readable form ("Full Name") or a
// camel-case form ("fullName"). Phones are compared after stripping every
// non-digit character.
//
// Concurrent imports are bounded by [UploadLimiter].
//
// # Error Handling
//
// Domain failures are sentinel errors checked with errors.Is, and
// [MapError] turns any error into a [UserMessage] with a support code:
//
//   - LEAD001: Duplicate lead phone
//   - VAL003: Required field missing
//   - SRC001-SRC003: Sheet link and download errors
//   - ING001, UPL002: Ingestion failure, too many uploads
//   - DB002-DB007: Database errors (constraints, connections, timeouts)
package core
