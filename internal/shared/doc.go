// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides BufferedSlogHandler, an slog.Handler
// that keeps records in memory so tests can assert on the events a
// component logged:
//
//	logger, handler := testutil.NewTestLogger(t)
//	stage := operations.NewTrimStage(options, logger)
//	...
//	assert.True(t, handler.ContainsMessage("file_trimmed"))
//	testutil.AssertNoErrors(t, handler)
//
// Nothing here may import a domain package.
package shared
