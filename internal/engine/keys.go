package engine

import "fmt"

// Repository key namespaces. Keys are namespace + separator + caseId
// (process-info snapshot or journey marker) so a single flat Repository can hold every case without a
// dedicated table per document kind.
const (
	keyNsProcessInfo = "workflow_process_info"
	keyNsJourney     = "workflow_journey"
)

func processInfoKey(sep byte, caseID string) string {
	return fmt.Sprintf("%s%c%s", keyNsProcessInfo, sep, caseID)
}

func journeyKey(sep byte, caseID string) string {
	return fmt.Sprintf("%s%c%s", keyNsJourney, sep, caseID)
}
