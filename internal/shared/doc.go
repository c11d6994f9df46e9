// Package shared provides common utilities and test helpers used across the
// SupplyPulse codebase. It serves as a central location for shared
// functionality that doesn't belong to any specific domain or architectural
// layer.
//
// # Structure
//
// The package is organized into the following components:
//
// - testutil: Testing utilities including dataset fixtures and slog capture
//
// # Usage Guidelines
//
// This package should only contain:
//
// 1. Test utilities used by multiple packages
// 2. Generic helper functions with no domain-specific logic
// 3. Common constants or types used across packages
//
// It should NOT contain:
//
// 1. Business logic or domain-specific code
// 2. External dependencies beyond standard library
// 3. Circular dependencies with other internal packages
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - Raw dataset fixtures mirroring the customer's dirty source files
//   - A buffered slog handler for asserting on structured log output
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    fixtures := testutil.NewDatasetFixtures(t)
//	    paths := fixtures.WriteAll(t)
//
//	    // Use paths in tests
//	}
package shared
