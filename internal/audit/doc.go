// Package audit buffers session lifecycle events and hands them to a sink off the
// caller's goroutine.
//
// Sinks: [ChannelSink] for tests and in-process consumers, [JSONWriterSink] for
// line-delimited logs, [RedisStreamSink] for a shared stream. The [Dispatcher] either
// blocks or drops (and counts) when its buffer is full.
//
// The package does not decide which events exist; the session store emits them and
// the root package translates.
package audit
