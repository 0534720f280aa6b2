package theme

import (
	"strings"
	"testing"
)

func TestBannerNamesTool(t *testing.T) {
	if !strings.Contains(Banner(), "GIFTBOARD") {
		t.Fatalf("banner should name the tool: %q", Banner())
	}
}
