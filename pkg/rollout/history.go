package rollout

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// anonymousActor stands in for a missing actor id in history lines.
const anonymousActor = "-"

// Operation names recorded in flag history.
const (
	OpActivate             = "activate"
	OpDeactivate           = "deactivate"
	OpSet                  = "set"
	OpActivateGroup        = "activate_group"
	OpDeactivateGroup      = "deactivate_group"
	OpActivateUser         = "activate_user"
	OpDeactivateUser       = "deactivate_user"
	OpActivateUsers        = "activate_users"
	OpDeactivateUsers      = "deactivate_users"
	OpSetUsers             = "set_users"
	OpActivatePercentage   = "activate_percentage"
	OpDeactivatePercentage = "deactivate_percentage"
	OpSetFeatureData       = "set_feature_data"
	OpClearFeatureData     = "clear_feature_data"
	OpDelete               = "delete"
	OpClear                = "clear"
)

// HistoryRecord is one audit entry of a flag mutation.
type HistoryRecord struct {
	Operation  string
	Actor      string
	Timestamp  time.Time
	Percentage float64
	Comment    string
}

// String encodes the record as "operation actor unix_ts percentage comment".
func (r HistoryRecord) String() string {
	actor := r.Actor
	if actor == "" {
		actor = anonymousActor
	}
	return fmt.Sprintf("%s %s %d %s %s",
		r.Operation,
		actor,
		r.Timestamp.Unix(),
		formatPercentage(r.Percentage),
		r.Comment,
	)
}

// ParseHistoryRecord decodes a history line. Only the first four spaces
// separate fields; the comment keeps any spaces it contains.
func ParseHistoryRecord(line string) (HistoryRecord, error) {
	parts := strings.SplitN(line, " ", 5)
	if len(parts) < 4 {
		return HistoryRecord{}, fmt.Errorf("%w: history line %q has %d fields", ErrMalformedRecord, line, len(parts))
	}

	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return HistoryRecord{}, fmt.Errorf("%w: history timestamp %q", ErrMalformedRecord, parts[2])
	}
	pct, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return HistoryRecord{}, fmt.Errorf("%w: history percentage %q", ErrMalformedRecord, parts[3])
	}

	rec := HistoryRecord{
		Operation:  parts[0],
		Actor:      parts[1],
		Timestamp:  time.Unix(ts, 0),
		Percentage: pct,
	}
	if rec.Actor == anonymousActor {
		rec.Actor = ""
	}
	if len(parts) == 5 {
		rec.Comment = parts[4]
	}
	return rec, nil
}

// validateToken rejects values that would break the space-delimited encoding.
func validateToken(kind, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidArgument, kind)
	}
	if strings.ContainsFunc(value, unicode.IsSpace) {
		return fmt.Errorf("%w: %s %q contains whitespace", ErrInvalidArgument, kind, value)
	}
	return nil
}

func validateRecord(op, actor string) error {
	if err := validateToken("operation", op); err != nil {
		return err
	}
	if actor == "" {
		return nil
	}
	return validateToken("actor", actor)
}

// MutationOption attaches audit details to a flag mutation.
// Without any option the mutation leaves no history.
type MutationOption func(*mutation)

type mutation struct {
	actor      string
	comment    string
	hasActor   bool
	hasComment bool
}

// WithActor records who performed the mutation.
func WithActor(id string) MutationOption {
	return func(m *mutation) {
		m.actor = id
		m.hasActor = true
	}
}

// WithComment records a free-text reason for the mutation.
func WithComment(comment string) MutationOption {
	return func(m *mutation) {
		m.comment = comment
		m.hasComment = true
	}
}

func newMutation(opts []MutationOption) mutation {
	var m mutation
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

func (m mutation) audited() bool {
	return m.hasActor || m.hasComment
}
