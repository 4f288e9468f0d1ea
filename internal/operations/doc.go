// Package operations runs the DRT batch pipeline as a sequence of steps.
//
// The pipeline has three steps, each reading one directory below the root
// and writing the next:
//
//   - trim:   0_Raw_Input      -> 1_Trimmed_Data   (TrimStage)
//   - drt:    1_Trimmed_Data   -> 2_DRT_Output     (DRTStage)
//   - matrix: 2_DRT_Output     -> 3_Summary_Matrix (MatrixStage)
//
// Manager executes registered steps in dependency order, or a single step
// when the request carries a "step" parameter. Each step gets its own
// timeout; only errors marked retryable are attempted again. Per-file
// problems never fail a step: they are logged, counted in the step
// metadata and the step moves on to the next file.
//
// Every run writes a PipelineManifest (run_manifest.json) describing the
// data each step saw and produced, with per-step file counts.
//
// Example usage:
//
//	registry := operations.NewRegistry()
//	for _, step := range operations.StageFactory(options, logger) {
//		registry.Register(step)
//	}
//	manager := operations.NewManager(registry, operations.NewConfig(), tracer, logger)
//	resp, err := manager.Execute(ctx, operations.OperationRequest{
//		Parameters: map[string]interface{}{operations.ParamStep: "all"},
//	})
package operations
