package boundary

// Status is the stable, exhaustive vocabulary surfaced across the process
// boundary. Callers branch on Success, NullPointer and InvalidArgument;
// InternalError directs them to the logs instead.
type Status int

const (
	Success Status = iota
	NullPointer
	InvalidArgument
	InternalError
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case NullPointer:
		return "NullPointer"
	case InvalidArgument:
		return "InvalidArgument"
	case InternalError:
		return "InternalError"
	default:
		return "Invalid"
	}
}
