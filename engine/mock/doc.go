// Package mock provides a test double for engine.Engine.
//
// The mock runs without any model and produces deterministic per-position
// vectors, so tests can check reduction results exactly. Like a real
// batched model it pads every matrix in a call to the longest sequence plus
// PadRows extra rows; padding rows hold PadValue so a caller that forgets to
// trim gets visibly wrong means.
//
// # Usage in Tests
//
//	// Default behavior
//	eng := mock.NewEngine(8)
//	matrices, err := eng.Embed(ctx, []string{"MKV", "AC"})
//
//	// Simulate a device that only fits 500 residues per call
//	eng.Capacity = 500
//
//	// Custom behavior injection
//	eng.EmbedFunc = func(ctx context.Context, seqs []string) ([]engine.Matrix, error) {
//	    return nil, engine.NewError(engine.KindInternal, "embed", errors.New("boom"))
//	}
//
//	// Check call counts
//	count := eng.CallCount()
package mock
