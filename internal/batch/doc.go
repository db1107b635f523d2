// Package batch buffers successfully fetched records and commits them in one
// durable write.
//
// A flush hands the whole buffer to the record writer first and only then
// marks the items completed in the tracker, in a single transaction. A
// failed write leaves every buffered item untouched in the tracker so the
// next run fetches it again.
package batch
