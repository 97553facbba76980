package ndnface

import (
	"testing"

	"ndnrtc/internal/names"
)

func TestEncNameRoundTrip(t *testing.T) {
	n := names.Name{"ndn", "edu", "test", "stream", "t0", "D", "32", "0"}
	en, err := toEncName(n)
	if err != nil {
		t.Fatalf("toEncName: %v", err)
	}
	back := fromEncName(en)
	if back.String() != n.String() {
		t.Fatalf("round trip mismatch: got %s, want %s", back.String(), n.String())
	}
}
