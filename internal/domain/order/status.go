package order

type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"
	StatusRefunded Status = "refunded"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusExpired, StatusCanceled, StatusRefunded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition may leave this status.
func (s Status) IsTerminal() bool {
	return s == StatusCanceled || s == StatusRefunded
}

var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusExpired, StatusCanceled},
	StatusExpired: {StatusPaid, StatusPending},
	StatusPaid:    {StatusPending, StatusRefunded},
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}
