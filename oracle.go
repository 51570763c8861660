package orgauth

import (
	"context"
	"errors"
	"fmt"
)

// statusOracle answers "does this identity exist, and is it active" against the
// record store. It is consulted before any session grant and on every
// deactivation recheck.
type statusOracle struct {
	records RecordStore
}

func newStatusOracle(records RecordStore) *statusOracle {
	return &statusOracle{records: records}
}

// CheckStatus resolves a StatusQuery. Exactly one of IdentityID/Email must be
// set; anything else fails fast with ErrStatusQueryInvalid. A store transport
// failure is surfaced as ErrTransport, never as a negative result.
func (o *statusOracle) CheckStatus(ctx context.Context, query StatusQuery) (AccountStatus, error) {
	if o == nil || o.records == nil {
		return AccountStatus{}, ErrMachineNotReady
	}
	if (query.IdentityID == "") == (query.Email == "") {
		return AccountStatus{}, ErrStatusQueryInvalid
	}

	var (
		record AccountRecord
		err    error
	)
	if query.IdentityID != "" {
		record, err = o.records.AccountByID(ctx, query.IdentityID)
	} else {
		record, err = o.records.AccountByEmail(ctx, query.Email)
	}

	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return AccountStatus{Exists: false}, nil
		}
		return AccountStatus{}, fmt.Errorf("%w: account lookup: %v", ErrTransport, err)
	}

	return AccountStatus{
		Exists:   true,
		IsActive: record.IsActive,
		Record:   record,
	}, nil
}
