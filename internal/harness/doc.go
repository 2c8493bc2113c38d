// Package harness runs end-to-end build scenarios against the compiler.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config: |
//	  runtimeFunctions: ["listFiles"]
//	files:
//	  src/review.tsx: |
//	    export default <Command description="Review">Go.</Command>;
//	flow:
//	  - build: {}
//	    expect:
//	      compiled: 1
//	  - write:
//	      src/review.tsx: |
//	        export default <Command description="Review">Stop.</Command>;
//	    build:
//	      incremental: true
//	assertions:
//	  - type: output_contains
//	    document: src/review.tsx
//	    text: "Stop."
//	  - type: error_code
//	    document: src/broken.tsx
//	    code: E200
//
// Each flow step applies its file edits and then builds every document
// below the configured source directory (or the scenario's documents list).
// Assertions are evaluated against the last build.
//
// # Assertion Types
//
//   - output_contains: the rendered artifact of a document contains text
//   - output_not_contains: the rendered artifact does not contain text
//   - output_equals: the rendered artifact is exactly text
//   - error_code: the document failed with the given error code
//   - manifest_contains: the bundler recorded a call of function
//
// # Deterministic Testing
//
// Every scenario runs in a fresh temporary project with an in-memory
// build cache, so identical scenarios yield identical snapshots for golden
// file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/review.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
