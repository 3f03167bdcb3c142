package xrpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidatePorts_PreferredFirst(t *testing.T) {
	ports := CandidatePorts(8080, []int{6006, 51233})
	assert.Equal(t, []int{8080, 6006, 51233}, ports)
}

func TestCandidatePorts_DeduplicatesPreferred(t *testing.T) {
	// Preferred port already appears in the fallback list
	ports := CandidatePorts(6006, []int{6006, 51233, 5005})
	assert.Equal(t, []int{6006, 51233, 5005}, ports)
}

func TestCandidatePorts_DeduplicatesWithinFallbacks(t *testing.T) {
	ports := CandidatePorts(8080, []int{6006, 6006, 51233})
	assert.Equal(t, []int{8080, 6006, 51233}, ports)
}

func TestCandidatePorts_NoPreferred(t *testing.T) {
	ports := CandidatePorts(0, []int{6006, 51233})
	assert.Equal(t, []int{6006, 51233}, ports)
}

func TestCandidatePorts_SkipsInvalidPorts(t *testing.T) {
	ports := CandidatePorts(8080, []int{0, -1, 6006})
	assert.Equal(t, []int{8080, 6006}, ports)
}

func TestCandidatePorts_EmptyEverything(t *testing.T) {
	assert.Empty(t, CandidatePorts(0, nil))
}

func TestDefaultFallbackPorts_AreValid(t *testing.T) {
	for _, port := range DefaultFallbackPorts {
		assert.Greater(t, port, 0)
		assert.LessOrEqual(t, port, 65535)
	}
}
