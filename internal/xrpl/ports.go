package xrpl

// DefaultFallbackPorts are well-known rippled websocket ports, tried in
// order after the preferred port. Operators frequently advertise the wrong
// port for the websocket surface, so a miss on the configured port is not
// treated as fatal until the whole list is exhausted.
var DefaultFallbackPorts = []int{6006, 51233, 5005, 443}

// CandidatePorts builds the ordered port list for one request: the
// preferred port first, then the fallback list with duplicates of the
// preferred port (and within the list itself) removed.
func CandidatePorts(preferred int, fallback []int) []int {
	candidates := make([]int, 0, len(fallback)+1)
	seen := make(map[int]bool)

	if preferred > 0 {
		candidates = append(candidates, preferred)
		seen[preferred] = true
	}

	for _, port := range fallback {
		if port <= 0 || seen[port] {
			continue
		}
		candidates = append(candidates, port)
		seen[port] = true
	}

	return candidates
}
