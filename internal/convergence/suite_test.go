package convergence_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// TestConvergenceScenarios is the entry point for the Ginkgo scenario suite.
func TestConvergenceScenarios(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Convergence Scenario Suite")
}
