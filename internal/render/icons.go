package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"giftboard/internal/logging"
)

// ErrIconLoad marks an icon list that could not be used.
var ErrIconLoad = errors.New("icon load failed")

// DefaultIcon is used when the icon list is missing or empty.
const DefaultIcon = "mdi:star"

type iconFile struct {
	Icons []string `json:"icons"`
}

// ReadIcons parses the icon list at path.
func ReadIcons(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIconLoad, err)
	}
	var f iconFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrIconLoad, path, err)
	}
	icons := f.Icons[:0]
	for _, ic := range f.Icons {
		if ic != "" {
			icons = append(icons, ic)
		}
	}
	if len(icons) == 0 {
		return nil, fmt.Errorf("%w: %s lists no icons", ErrIconLoad, path)
	}
	return icons, nil
}

// LoadIcons is ReadIcons with the single default icon as fallback.
func LoadIcons(path string) []string {
	icons, err := ReadIcons(path)
	if err != nil {
		logging.Warn("icon_fallback", map[string]any{"path": path, "error": err.Error()})
		return []string{DefaultIcon}
	}
	return icons
}
