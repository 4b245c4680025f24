package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	internalsettings "github.com/optilift/entitlements/internal/settings"
)

// applyOverrides mutates limits with any DB-config overrides for the plan.
func applyOverrides(p Plan, limits *Limits) {
	name := strings.ToUpper(string(p))

	if raw, ok := internalsettings.DBConfigValue(fmt.Sprintf(internalsettings.PlanDailyLimitKeyFormat, name)); ok {
		if v, okParse := parseLimitInt(raw); okParse {
			limits.OptimizationsPerDay = v
		}
	}
	if raw, ok := internalsettings.DBConfigValue(fmt.Sprintf(internalsettings.PlanMaxFileUploadsKeyFormat, name)); ok {
		if v, okParse := parseLimitInt(raw); okParse {
			limits.MaxFileUploads = v
		}
	}
	if raw, ok := internalsettings.DBConfigValue(fmt.Sprintf(internalsettings.PlanMaxPasteCharactersKeyFormat, name)); ok {
		if v, okParse := parseLimitInt(raw); okParse {
			limits.MaxPasteCharacters = v
		}
	}
	if raw, ok := internalsettings.DBConfigValue(fmt.Sprintf(internalsettings.PlanMaxFileSizeKeyFormat, name)); ok {
		if v, okParse := parseLimitInt(raw); okParse {
			limits.MaxFileSizeBytes = int64(v)
		}
	}
}

// parseLimitInt parses a JSON number or numeric string. -1 is allowed and
// means unlimited; values below -1 are rejected.
func parseLimitInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var parsedInt int
	if errUnmarshalInt := json.Unmarshal(raw, &parsedInt); errUnmarshalInt == nil {
		return parsedInt, parsedInt >= Unlimited
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(parsedString))
		if errParse != nil {
			return 0, false
		}
		return parsed, parsed >= Unlimited
	}
	var parsedFloat float64
	if errUnmarshalFloat := json.Unmarshal(raw, &parsedFloat); errUnmarshalFloat == nil {
		if math.IsNaN(parsedFloat) || math.IsInf(parsedFloat, 0) {
			return 0, false
		}
		if parsedFloat < Unlimited || parsedFloat != math.Trunc(parsedFloat) {
			return 0, false
		}
		return int(parsedFloat), true
	}
	return 0, false
}
