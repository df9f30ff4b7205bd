// Package sheetmusic provides the service layer of the sheet-music catalog:
// creating, listing, searching, editing and deleting sheet-music records and
// the PDF attachments that belong to them.
//
// A Service orchestrates a relational Repository for the records and a
// FileStore for the PDF bytes. Implementations of repositories (memory,
// Postgres, SQLite) and file stores (memory, filesystem, S3) are provided
// under subpackages.
//
// Consistency
//
// Every public operation runs inside one Transactor boundary. Uploads are
// issued after the relational write commits and blob deletions are issued
// without compensation, so a failure between the two stores can leave an
// orphaned blob or a Pdf row pointing at a missing blob. Callers that need
// stronger guarantees must reconcile the stores themselves.
package sheetmusic
