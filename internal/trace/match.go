package trace

import "github.com/tinytelemetry/mailtrace/internal/model"

// matches decides whether one log record satisfies the criteria. Every
// specified scalar criterion must be present and exactly equal in the
// record's mapped field; a non-empty to-address criterion needs at least one
// address in common with the record. A record matches only when nothing
// disqualified it and at least one criterion was actually checked.
func matches(c *Criteria, rec *model.LogRecord) bool {
	checked := false

	scalar := []struct {
		want string
		got  string
	}{
		{c.FromAddress, rec.From},
		{c.MessageID, rec.MessageID},
		{c.RelayHost, rec.Relay},
		{c.ConnectionID, rec.ConnectionID},
		{c.Status, rec.Status},
	}
	for _, f := range scalar {
		if f.want == "" {
			continue
		}
		if f.got != f.want {
			return false
		}
		checked = true
	}

	if len(c.ToAddresses) > 0 {
		if !intersects(c.ToAddresses, rec.To) {
			return false
		}
		checked = true
	}

	return checked
}

func intersects(want, got []string) bool {
	for _, w := range want {
		for _, g := range got {
			if w == g {
				return true
			}
		}
	}
	return false
}
