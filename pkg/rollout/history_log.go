package rollout

import "context"

// AddHistory appends an entry to the flag's history, stamped with the
// flag's current percentage. Operation names and actor ids must not
// contain whitespace.
func (e *Engine) AddHistory(ctx context.Context, name, op, actor, comment string) error {
	if err := validateRecord(op, actor); err != nil {
		return err
	}
	f, err := e.Get(ctx, name)
	if err != nil {
		return err
	}
	return e.appendHistory(ctx, name, op, f.Percentage(), actor, comment)
}

// MostRecentHistory returns the newest history entry of the flag.
// The boolean is false when the flag has no history.
func (e *Engine) MostRecentHistory(ctx context.Context, name string) (HistoryRecord, bool, error) {
	line, found, err := e.store.LIndex(ctx, e.keys.history(name), 0)
	if err != nil || !found {
		return HistoryRecord{}, false, err
	}
	rec, err := ParseHistoryRecord(line)
	if err != nil {
		return HistoryRecord{}, false, err
	}
	return rec, true, nil
}

// FullHistory returns up to limit history entries, newest first.
// A limit of zero or less returns every entry.
func (e *Engine) FullHistory(ctx context.Context, name string, limit int) ([]HistoryRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	lines, err := e.store.LRange(ctx, e.keys.history(name), 0, stop)
	if err != nil {
		return nil, err
	}

	records := make([]HistoryRecord, 0, len(lines))
	for _, line := range lines {
		rec, err := ParseHistoryRecord(line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e *Engine) appendHistory(ctx context.Context, name, op string, percentage float64, actor, comment string) error {
	rec := HistoryRecord{
		Operation:  op,
		Actor:      actor,
		Timestamp:  e.now(),
		Percentage: percentage,
		Comment:    comment,
	}
	return e.store.LPush(ctx, e.keys.history(name), rec.String())
}
