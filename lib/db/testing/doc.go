// Package testing provides standardised tests and benchmarks for
// database implementations that satisfy the db.StringDB interface.
//
// The package contains:
//   - testing: A comprehensive test suite for validating conformance to the StringDB interface contract
//   - benchmark: Performance tests for measuring throughput of common database operations
//
// This package is particularly useful for:
//   - Applications that need to select the most appropriate database implementation
//     based on performance characteristics
//   - Database developers implementing the StringDB interface
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() db.StringDB {
//		return NewMyDatabase()
//	}
//
//	// Running the standard test suite
//	testing.RunStringDBTests(t, "MyDatabase", factory)
//
//	// Running performance benchmarks
//	testing.RunStringDBBenchmarks(b, "MyDatabase", factory)
package testing
