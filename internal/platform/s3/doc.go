// Package s3 provides the object storage client behind the run journal.
//
// It works against AWS S3 or any S3-compatible endpoint. A custom endpoint
// switches the client to path-style addressing.
package s3
