package store

import (
	"fmt"
	"strings"

	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/models"
)

// requiredFields must all be present in a record for it to be recoverable at
// all; a record missing any of them is quarantined without further checks.
var requiredFields = []string{"id", "to", "from", "subject", "content", "timestamp"}

// allowedFields is the full record schema; anything else is stripped during
// repair.
var allowedFields = map[string]struct{}{
	"id": {}, "to": {}, "from": {}, "subject": {}, "content": {},
	"timestamp": {}, "isResponseTo": {}, "readBy": {}, "deletedBy": {},
}

// validateEmailRecord classifies a raw decoded record. It returns whether the
// record is usable (possibly after the repairs applied to fixed), and every
// violation found, not just the first. It is a pure function of the record:
// duplicate-id detection happens across the whole collection in Initialize.
//
// Recoverable repairs: name normalization and deduplication, non-string
// entries dropped from name lists, missing readBy/deletedBy defaulted,
// subject/content trimmed, unknown keys stripped. Everything else is
// unrecoverable.
func validateEmailRecord(raw map[string]any) (ok bool, reasons []string, fixed map[string]any) {
	fixed = make(map[string]any, len(raw))
	for k, v := range raw {
		fixed[k] = v
	}

	for _, field := range requiredFields {
		if _, present := raw[field]; !present {
			reasons = append(reasons, fmt.Sprintf("missing required field: %s", field))
		}
	}
	if len(reasons) > 0 {
		return false, reasons, fixed
	}

	if id, isString := raw["id"].(string); !isString {
		reasons = append(reasons, "field 'id' must be a string")
	} else if !models.ValidUUID(id) {
		reasons = append(reasons, fmt.Sprintf("invalid UUID format for 'id': %s", id))
	}

	if items, isList := raw["to"].([]any); !isList {
		reasons = append(reasons, "field 'to' must be an array")
	} else {
		recipients := cleanNameList(items)
		fixed["to"] = recipients
		if len(recipients) == 0 {
			reasons = append(reasons, "field 'to' must have at least one valid recipient")
		}
	}

	if from, isString := raw["from"].(string); !isString {
		reasons = append(reasons, "field 'from' must be a string")
	} else {
		normalized := models.NormalizeName(from)
		fixed["from"] = normalized
		if normalized == "" {
			reasons = append(reasons, "field 'from' cannot be empty")
		}
	}

	if subject, isString := raw["subject"].(string); !isString {
		reasons = append(reasons, "field 'subject' must be a string")
	} else {
		fixed["subject"] = strings.TrimSpace(subject)
	}

	if content, isString := raw["content"].(string); !isString {
		reasons = append(reasons, "field 'content' must be a string")
	} else {
		fixed["content"] = strings.TrimSpace(content)
	}

	if ts, isString := raw["timestamp"].(string); !isString || !models.ValidTimestamp(ts) {
		reasons = append(reasons, fmt.Sprintf("invalid timestamp format: %v", raw["timestamp"]))
	}

	if parent, present := raw["isResponseTo"]; present && parent != nil {
		if parentID, isString := parent.(string); !isString {
			reasons = append(reasons, "field 'isResponseTo' must be a string or null")
		} else if !models.ValidUUID(parentID) {
			reasons = append(reasons, fmt.Sprintf("invalid UUID format for 'isResponseTo': %s", parentID))
		}
	}

	for _, field := range []string{"readBy", "deletedBy"} {
		value, present := raw[field]
		if !present {
			fixed[field] = []string{}
			continue
		}
		items, isList := value.([]any)
		if !isList {
			reasons = append(reasons, fmt.Sprintf("field '%s' must be an array", field))
			continue
		}
		fixed[field] = cleanNameList(items)
	}

	for key := range fixed {
		if _, allowed := allowedFields[key]; !allowed {
			delete(fixed, key)
		}
	}

	return len(reasons) == 0, reasons, fixed
}

// cleanNameList drops non-string entries, normalizes the rest, and
// deduplicates preserving first-occurrence order.
func cleanNameList(items []any) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		if s, isString := item.(string); isString {
			names = append(names, s)
		}
	}
	return models.NormalizeNames(names)
}

// emailFromRecord builds an Email from a repaired record. Only call with the
// fixed output of a successful validateEmailRecord; the type assertions hold
// by construction.
func emailFromRecord(fixed map[string]any) models.Email {
	e := models.Email{
		ID:        fixed["id"].(string),
		To:        fixed["to"].([]string),
		From:      fixed["from"].(string),
		Subject:   fixed["subject"].(string),
		Content:   fixed["content"].(string),
		Timestamp: fixed["timestamp"].(string),
		ReadBy:    fixed["readBy"].([]string),
		DeletedBy: fixed["deletedBy"].([]string),
	}
	if parent, present := fixed["isResponseTo"]; present && parent != nil {
		parentID := parent.(string)
		e.IsResponseTo = &parentID
	}
	return e
}
