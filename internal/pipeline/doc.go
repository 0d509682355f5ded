// Package pipeline turns sensor reads into stored and streamed readings.
//
// Each configured sensor gets a Sampler goroutine that reads its driver on a
// fixed interval and passes readings through a ChangeFilter. Emitted readings
// go to the StagingBuffer and to the live EventHub. The Flusher drains the
// buffer into the store periodically (and early when the buffer reaches its
// high-water mark) and the RetentionSweeper deletes rows older than the
// retention window. Pipeline wires these together and owns shutdown order:
// samplers, flusher, sweeper, final flush, store close.
package pipeline
