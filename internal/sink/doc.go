// Package sink persists fetched records and binaries.
//
// FileSink writes the on-disk output tree and produces the result reference
// recorded in the tracker. PostgresSink upserts records into a relational
// table in one batched transaction per flush. FanOut chains writers so a
// flush succeeds only when every destination accepted the batch.
package sink
