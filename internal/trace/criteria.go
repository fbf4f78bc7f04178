package trace

import "time"

// Criteria is the mutable set of identifying facts a Tracer searches for.
// Empty strings and zero times mean "not specified". A search needs at least
// one specified field besides FromStart, or it fails fast with ErrNoCriteria.
type Criteria struct {
	FromAddress  string
	ToAddresses  []string // deduplicated; order irrelevant
	MessageID    string
	RelayHost    string
	Subject      string
	SentTime     time.Time
	ReceivedTime time.Time

	// Dialect-specific identifiers.
	ConnectionID string
	ProcessID    string
	Status       string

	// FromStart rewinds the cursor before this search instead of resuming
	// from the current position. It is a per-call flag, not a criterion.
	FromStart bool
}

// Merge folds the specified fields of args into c. To-addresses are unioned;
// scalar fields are overwritten only by specified values, so facts set on an
// earlier call survive later calls that omit them.
func (c *Criteria) Merge(args Criteria) {
	if args.FromAddress != "" {
		c.FromAddress = args.FromAddress
	}
	for _, addr := range args.ToAddresses {
		c.addTo(addr)
	}
	if args.MessageID != "" {
		c.MessageID = args.MessageID
	}
	if args.RelayHost != "" {
		c.RelayHost = args.RelayHost
	}
	if args.Subject != "" {
		c.Subject = args.Subject
	}
	if !args.SentTime.IsZero() {
		c.SentTime = args.SentTime
	}
	if !args.ReceivedTime.IsZero() {
		c.ReceivedTime = args.ReceivedTime
	}
	if args.ConnectionID != "" {
		c.ConnectionID = args.ConnectionID
	}
	if args.ProcessID != "" {
		c.ProcessID = args.ProcessID
	}
	if args.Status != "" {
		c.Status = args.Status
	}
}

// AnyDefined reports whether at least one identifying fact is set.
// FromStart alone does not count.
func (c *Criteria) AnyDefined() bool {
	return c.FromAddress != "" ||
		len(c.ToAddresses) > 0 ||
		c.MessageID != "" ||
		c.RelayHost != "" ||
		c.Subject != "" ||
		!c.SentTime.IsZero() ||
		!c.ReceivedTime.IsZero() ||
		c.ConnectionID != "" ||
		c.ProcessID != "" ||
		c.Status != ""
}

func (c *Criteria) addTo(addr string) {
	if addr == "" {
		return
	}
	for _, a := range c.ToAddresses {
		if a == addr {
			return
		}
	}
	c.ToAddresses = append(c.ToAddresses, addr)
}
