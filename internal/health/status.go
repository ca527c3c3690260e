package health

import (
	"encoding/json"
	"fmt"
)

// Kind is the outcome class of one probe.
type Kind uint8

const (
	KindOk Kind = iota + 1
	KindUnreachable
	KindEmbedMissing
	KindSlugMismatch
)

var kindNames = map[Kind]string{
	KindOk:           "ok",
	KindUnreachable:  "unreachable",
	KindEmbedMissing: "embed_missing",
	KindSlugMismatch: "slug_mismatch",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Status is the verdict of one probe. Observed is only set for
// KindSlugMismatch and holds the slug fragment found in the page.
//
// A member that has never been probed has no Status at all; readers carry that
// as a nil *Status.
type Status struct {
	Kind     Kind
	Observed string
}

func Ok() Status           { return Status{Kind: KindOk} }
func Unreachable() Status  { return Status{Kind: KindUnreachable} }
func EmbedMissing() Status { return Status{Kind: KindEmbedMissing} }

func SlugMismatch(observed string) Status {
	return Status{Kind: KindSlugMismatch, Observed: observed}
}

// IsOk reports whether s is present and Ok. A nil status is pending.
func IsOk(s *Status) bool {
	return s != nil && s.Kind == KindOk
}

// Reason is the human-readable failure reason shown in the directory.
func Reason(s *Status) string {
	if s == nil {
		return "healthcheck pending..."
	}
	switch s.Kind {
	case KindOk:
		return "ok"
	case KindUnreachable:
		return "site unreachable"
	case KindEmbedMissing:
		return "embed missing from site"
	case KindSlugMismatch:
		return "embed url has wrong slug"
	default:
		return "unknown"
	}
}

func (s Status) String() string {
	if s.Kind == KindSlugMismatch {
		return fmt.Sprintf("%s(%q)", s.Kind, s.Observed)
	}
	return s.Kind.String()
}

type statusJSON struct {
	Kind     string `json:"kind"`
	Observed string `json:"observed,omitempty"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusJSON{Kind: s.Kind.String(), Observed: s.Observed})
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw statusJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for kind, name := range kindNames {
		if name == raw.Kind {
			*s = Status{Kind: kind, Observed: raw.Observed}
			return nil
		}
	}
	return fmt.Errorf("unknown health kind %q", raw.Kind)
}
