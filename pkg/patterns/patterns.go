// Package patterns holds the closed item-type vocabulary shared by the
// Detector and the Scrubber, and the regular expressions the Scrubber
// uses to find sensitive spans for each item type.
package patterns

import "regexp"

// Pattern is a named regular expression paired with the token prefix
// the Tokenizer should use for its matches, and the index of the
// capture group that holds the value to tokenize (0 = whole match).
type Pattern struct {
	ItemType string
	Prefix   string
	Regexp   *regexp.Regexp
	Group    int
}

// Prompt-set item types.
const (
	TypeEmail      = "email"
	TypePhone      = "phone"
	TypeName       = "name"
	TypeAPIKey     = "api_key"
	TypeSecret     = "secret"
	TypeBearer     = "bearer"
	TypePath       = "path"
	TypeResourceID = "resource_id"
)

// Log-set item types.
const (
	TypeIP           = "ip"
	TypePrivateIP    = "private_ip"
	TypeInternalURL  = "internal_url"
	TypeTimestamp    = "timestamp"
	TypeEndpoint     = "endpoint"
	TypeUser         = "user"
	TypeTerminalUser = "terminal_user"
)

// PromptItemTypes is the closed vocabulary for prompt-shaped content.
var PromptItemTypes = []string{
	TypeEmail, TypePhone, TypeName, TypeAPIKey, TypeSecret, TypeBearer, TypePath, TypeResourceID,
}

// LogItemTypes is the closed vocabulary for log-shaped content.
var LogItemTypes = []string{
	TypeIP, TypePrivateIP, TypeInternalURL, TypeTimestamp, TypeEndpoint, TypeUser, TypeTerminalUser,
}

// Union returns the deduplicated union of the prompt and log item-type
// vocabularies, in a stable order. The Gateway always scrubs against
// this union (see spec §9: "this spec commits to always use the union").
func Union() []string {
	union := make([]string, 0, len(PromptItemTypes)+len(LogItemTypes))
	union = append(union, PromptItemTypes...)
	union = append(union, LogItemTypes...)
	return union
}

// IsKnown reports whether itemType belongs to the closed vocabulary.
func IsKnown(itemType string) bool {
	for _, t := range PromptItemTypes {
		if t == itemType {
			return true
		}
	}
	for _, t := range LogItemTypes {
		if t == itemType {
			return true
		}
	}
	return false
}

// byItemType indexes the pattern set for lookup by item type; built once
// at init from the all slice below.
var byItemType map[string]Pattern

// all is the complete pattern set, one entry per item type in the
// closed vocabulary. Regex bodies follow spec §4.3 literally.
var all = []Pattern{
	{
		ItemType: TypeEmail,
		Prefix:   "EMAIL",
		Regexp:   regexp.MustCompile(`\b[\w.-]+@[\w-]+(?:\.[\w-]+)+\b`),
		Group:    0,
	},
	{
		ItemType: TypePhone,
		Prefix:   "PHONE",
		Regexp:   regexp.MustCompile(`\b\d{3}[-. ]?\d{3}[-. ]?\d{4}\b`),
		Group:    0,
	},
	{
		ItemType: TypeName,
		Prefix:   "NAME",
		Regexp:   regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`),
		Group:    0,
	},
	{
		ItemType: TypeAPIKey,
		Prefix:   "APIKEY",
		Regexp:   regexp.MustCompile(`\b[A-Za-z]{2,6}[-_]?[A-Za-z0-9]{20,}\b`),
		Group:    0,
	},
	{
		ItemType: TypeSecret,
		Prefix:   "SECRET",
		Regexp:   regexp.MustCompile(`(?i)\b(?:secret|token|password|passwd|pwd|apikey|api_key|auth)\b\s*[:=]\s*(['"]?)([^\s'"]{8,})`),
		Group:    2,
	},
	{
		ItemType: TypeBearer,
		Prefix:   "BEARER",
		Regexp:   regexp.MustCompile(`\bBearer [A-Za-z0-9._-]{20,}\b`),
		Group:    0,
	},
	{
		ItemType: TypePath,
		Prefix:   "PATH",
		Regexp:   regexp.MustCompile(`~/[\w./-]*|(?:/[\w.-]+){2,}`),
		Group:    0,
	},
	{
		ItemType: TypeResourceID,
		Prefix:   "RESOURCE",
		Regexp:   regexp.MustCompile(`\b[a-z]{2,10}[-:][a-z0-9-]+[-:][A-Za-z0-9/_-]{10,}\b`),
		Group:    0,
	},
	{
		ItemType: TypeIP,
		Prefix:   "IP",
		Regexp:   regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
		Group:    0,
	},
	{
		ItemType: TypePrivateIP,
		Prefix:   "IP",
		Regexp: regexp.MustCompile(
			`\b(?:10\.\d{1,3}\.\d{1,3}\.\d{1,3}|172\.(?:1[6-9]|2\d|3[01])\.\d{1,3}\.\d{1,3}|192\.168\.\d{1,3}\.\d{1,3})\b`),
		Group: 0,
	},
	{
		ItemType: TypeInternalURL,
		Prefix:   "URL",
		Regexp:   regexp.MustCompile(`\bhttps?://[\w.-]*\.(?:internal|local|corp|lan|private)(?:[/:][^\s]*)?`),
		Group:    0,
	},
	{
		ItemType: TypeTimestamp,
		Prefix:   "TIMESTAMP",
		Regexp:   regexp.MustCompile(`\d{4}[-/:]\d{2}[-/:]\d{2}[T ]\d{2}:\d{2}:\d{2}|\d{2}:\d{2}:\d{2}[,.]\d{3}`),
		Group:    0,
	},
	{
		ItemType: TypeEndpoint,
		Prefix:   "ENDPOINT",
		Regexp:   regexp.MustCompile(`\b(?:GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS) (/\S*)`),
		Group:    1,
	},
	{
		ItemType: TypeUser,
		Prefix:   "USER",
		Regexp:   regexp.MustCompile(`(?i)\b(?:user|uid|username)[=: ]\s*([\w.-]+)`),
		Group:    1,
	},
	{
		ItemType: TypeTerminalUser,
		Prefix:   "USER",
		Regexp:   regexp.MustCompile(`(?m)^(?:❯ )?(?:whoami|id|logname)\n([\w.-]+)`),
		Group:    1,
	},
}

func init() {
	byItemType = make(map[string]Pattern, len(all))
	for _, p := range all {
		byItemType[p.ItemType] = p
	}
}

// Lookup returns the Pattern for itemType and whether it was found.
func Lookup(itemType string) (Pattern, bool) {
	p, ok := byItemType[itemType]
	return p, ok
}

// CategoryDefaults backfills item_types when the Detector's verdict
// omits them but category is recognized (spec §4.2 step 4).
var CategoryDefaults = map[string][]string{
	"pii":            {TypeEmail, TypePhone, TypeName},
	"credentials":    {TypeAPIKey, TypeSecret, TypeBearer},
	"log_file":       {TypeIP, TypePrivateIP, TypeInternalURL, TypeTimestamp, TypeEndpoint, TypeUser},
	"code_secrets":   {TypeAPIKey, TypeSecret, TypePath},
	"infrastructure": {TypeIP, TypeInternalURL, TypeResourceID},
}
