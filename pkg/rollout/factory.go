package rollout

// ResolveFormat decides which encoding a record is read with.
//
// A forced format always wins. Otherwise a missing record gets the fallback
// format, and an existing one is read as sets when it carries the format
// token and as embedded when it does not. Records written under either
// encoding therefore keep working side by side without a migration.
func ResolveFormat(raw string, found bool, forced, fallback Format) Format {
	if forced != FormatAuto {
		return forced
	}
	if !found {
		if fallback == FormatAuto {
			return FormatSets
		}
		return fallback
	}
	if hasFormatToken(raw) {
		return FormatSets
	}
	return FormatEmbedded
}

// Factory materializes flags from raw records.
type Factory struct {
	store    Store
	keys     keyspace
	forced   Format
	fallback Format
	opts     flagOptions
}

// Materialize builds the flag named name from its raw record.
// found reports whether the record exists at all.
func (fy *Factory) Materialize(name, raw string, found bool) (Flag, error) {
	switch ResolveFormat(raw, found, fy.forced, fy.fallback) {
	case FormatSets:
		f, err := newSetsFlag(name, raw, found, fy.store, fy.keys, fy.opts)
		if err != nil {
			return nil, err
		}
		return f, nil
	case FormatEmbedded:
		f, err := newEmbeddedFlag(name, raw, found, fy.opts)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, ErrUnknownFormat
	}
}
