package imgx

import (
	"fmt"
	"regexp"
)

// Same forms that gg.SetHexColor accepts. gg draws black for anything else, so check first.
var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// ValidateHexColor returns an error unless s is "#rgb", "#rrggbb" or "#rrggbbaa" (the '#' is optional)
func ValidateHexColor(s string) error {
	if !hexColor.MatchString(s) {
		return fmt.Errorf("Invalid color '%v'", s)
	}
	return nil
}
