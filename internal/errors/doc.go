// Package errors provides coded, terminal-friendly errors for the rstore CLI.
//
// Every failure the CLI reports maps to a registered code:
//   - config (E120-E139): rstore.json / rstore.yaml problems
//   - cli (E140-E159): command usage and environment problems
//   - store (E200-E219): bootstrap documents and writes rejected by the store
//   - storage (E220-E239): snapshot backends
//
// Library packages return plain typed errors that expose a Code() method.
// FromError turns those into a *StoreError for display:
//
//	if err := s.Initialize(ctx, cfg); err != nil {
//	    errors.PrintError(errors.FromError(err, "E200"))
//	}
//	// Output:
//	// ERROR E201: Value not set
//	//
//	//   A slot cannot hold the absent sentinel. ...
//	//
//	//   Cause: store: value for 'n' is not set
package errors
