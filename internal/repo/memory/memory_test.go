package memory

import (
	"testing"

	"github.com/yungbote/journeyengine/internal/repo/repotest"
)

func TestConformance(t *testing.T) {
	repotest.Conformance(t, New(), "memory_test")
}
