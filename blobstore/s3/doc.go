// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("ingest/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	db, err := vecingest.Open(vecingest.WithSink(sink.NewBlob(store)))
//
// Use DDBCommitStore when several writers may commit to the same table.
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads with CRC32C checksums for large segments
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
