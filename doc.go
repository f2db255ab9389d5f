// Package vecingest is the row ingestion core of a vector database.
//
// A client inserts batches of logical rows (column name to value maps) into
// a table. Every batch is validated against the table schema, each cell is
// coerced to the declared column type, and the result is packed into an
// immutable column-major batch that is handed to a persistence sink. A batch
// either commits in full or is rejected with one precisely classified status
// code; there are no partial inserts.
//
// # Quick Start
//
//	ctx := context.Background()
//	db := vecingest.Open(vecingest.WithLogger(vecingest.NewTextLogger(slog.LevelInfo)))
//
//	tbl, _ := db.CreateTable(ctx, "docs", []schema.ColumnDef{
//	    {Name: "id", Type: "bigint", Constraints: []string{"primary key"}},
//	    {Name: "body", Type: "varchar", Constraints: []string{"null"}},
//	    {Name: "emb", Type: "vector,4,float"},
//	}, vecingest.ConflictError)
//
//	res, err := tbl.InsertMaps(ctx, map[string]any{
//	    "id": 1, "emb": []float64{0.1, 0.2, 0.3, 0.4},
//	})
//	fmt.Println(res.Code, res.Rows) // OK 1
//
// # Tables
//
// Tables can also be declared with the fluent builder:
//
//	tbl, err := vecingest.NewTable("docs").
//	    Column("id", "bigint", schema.ConstraintPrimaryKey).
//	    Vector("emb", 128, "float").
//	    Create(ctx, db, vecingest.ConflictIgnore)
//
// # Persistence
//
// The default sink discards batches. Use sink.NewMemory for tests and
// sink.NewBlob with a blobstore (local disk, S3, MinIO) to write segments:
//
//	store := blobstore.NewLocalStore("./data")
//	db := vecingest.Open(vecingest.WithSink(sink.NewBlob(store, sink.BlobOptions{
//	    Compression: segment.CompressionZstd,
//	})))
//
// # Error Handling
//
// Every failure carries a stable status.Code:
//
//	res, err := tbl.Insert(ctx, rows)
//	switch status.CodeOf(err) {
//	case status.OK:
//	case status.DimensionMismatch:
//	    // ...
//	}
package vecingest
