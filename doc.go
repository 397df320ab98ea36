// Package blockstream adapts streams of columnar blocks to the column layout
// of the table they are inserted into.
//
// A block is an Arrow record. An insert execution pulls blocks laid out like
// its source and must hand the table blocks laid out like the table's
// insertion schema. Usually the two agree column by column but differ in
// nullability: a computed column cannot hold NULL while the table column
// can, or the other way round. The nullable adapter closes that gap:
//
//   - a non-nullable source column headed for a nullable table column gets
//     an all-valid null bitmap; its values are shared, not copied;
//   - a nullable source column headed for a non-nullable table column loses
//     its null bitmap after a scan proves no row is NULL;
//   - anything else passes through.
//
// When no column needs work and the layouts coincide, blocks are handed on
// exactly as pulled.
//
// # Quick Start
//
//	src, _ := blockio.NewIPCSource(in)
//	defer src.Close()
//
//	sourceSample := block.Sample(src.Schema())
//	targetSample := block.Sample(tableSchema)
//
//	a, err := adapter.NewNullableAdapter(src, sourceSample, targetSample,
//	    schema.FromArrowSchema(tableSchema))
//	if err != nil {
//	    return err // missing column or type mismatch
//	}
//
//	err = stream.Drain(ctx, a, func(rec arrow.Record) error {
//	    defer rec.Release()
//	    return sink.Write(rec)
//	})
//
// # Key Packages
//
//	pkg/adapter       - Nullable adapter, action plan and column conversions
//	pkg/stream        - Pull-based operator interface and profiling base
//	pkg/block         - Block samples and shape checks
//	pkg/schema        - Insertion schemas and block descriptor files
//	pkg/blockio       - Arrow IPC sources, IPC/Parquet/Avro sinks, stream framing
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus collectors per operator
//	pkg/observability - OpenTelemetry tracing
//	pkg/config        - Configuration loading
//	internal/pipeline - Insert pipeline: source, adapter, sink
//
// # Command Line
//
//	blockstream adapt --input events.arrows --output events.parquet --target table.yaml
//	blockstream plan --source events.yaml --target table.yaml
//	blockstream version
package blockstream
