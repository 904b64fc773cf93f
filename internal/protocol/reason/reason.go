package reason

import "fmt"

// Reason is a wire error: a numeric code and a human readable message.
type Reason struct {
	Code    int
	Message string
}

func (r Reason) String() string { return fmt.Sprintf("%d: %s", r.Code, r.Message) }

// WithMessage returns r with its message replaced.
func (r Reason) WithMessage(msg string) Reason {
	r.Message = msg
	return r
}

// Coded is implemented by every reason family.
type Coded interface {
	Reason() Reason
	family()
}

// Invalid covers malformed or unacceptable requests.
type Invalid int

const (
	InvalidMethod Invalid = iota + 1
	InvalidEvent
	InvalidUpdateRequest
	InvalidExtendRequest
	InvalidSessionSettlementRequest
	InvalidRequestParams
	InvalidResponseParams
	InvalidMessageIntegrity
)

var invalidReasons = map[Invalid]Reason{
	InvalidMethod:                   {1001, "Invalid method"},
	InvalidEvent:                    {1002, "Invalid event"},
	InvalidUpdateRequest:            {1003, "Invalid update request"},
	InvalidExtendRequest:            {1004, "Invalid extend request"},
	InvalidSessionSettlementRequest: {1005, "Invalid session settle request"},
	InvalidRequestParams:            {1006, "Malformed request params"},
	InvalidResponseParams:           {1007, "Malformed response params"},
	InvalidMessageIntegrity:         {1008, "Message integrity check failed"},
}

func (i Invalid) Reason() Reason { return lookup(invalidReasons, i) }
func (Invalid) family()          {}

// Unauthorized covers requests the peer is not permitted to make.
type Unauthorized int

const (
	UnauthorizedMethod Unauthorized = iota + 1
	UnauthorizedEvent
	UnauthorizedUpdateRequest
	UnauthorizedExtendRequest
	UnauthorizedChain
)

var unauthorizedReasons = map[Unauthorized]Reason{
	UnauthorizedMethod:        {3001, "Unauthorized method"},
	UnauthorizedEvent:         {3002, "Unauthorized event"},
	UnauthorizedUpdateRequest: {3003, "Unauthorized update request"},
	UnauthorizedExtendRequest: {3004, "Unauthorized extend request"},
	UnauthorizedChain:         {3005, "Unauthorized target chain"},
}

func (u Unauthorized) Reason() Reason { return lookup(unauthorizedReasons, u) }
func (Unauthorized) family()          {}

// CAIP25 covers namespace negotiation failures.
type CAIP25 int

const (
	UserRejected CAIP25 = iota + 1
	UserRejectedChains
	UserRejectedMethods
	UserRejectedEvents
	UnsupportedChains
	UnsupportedMethods
	UnsupportedEvents
	UnsupportedAccounts
	UnsupportedNamespaceKey
)

var caip25Reasons = map[CAIP25]Reason{
	UserRejected:            {5000, "User rejected."},
	UserRejectedChains:      {5001, "User rejected chains."},
	UserRejectedMethods:     {5002, "User rejected methods."},
	UserRejectedEvents:      {5003, "User rejected events."},
	UnsupportedChains:       {5100, "Unsupported chains."},
	UnsupportedMethods:      {5101, "Unsupported methods."},
	UnsupportedEvents:       {5102, "Unsupported events."},
	UnsupportedAccounts:     {5103, "Unsupported accounts."},
	UnsupportedNamespaceKey: {5104, "Unsupported namespace key."},
}

func (c CAIP25) Reason() Reason { return lookup(caip25Reasons, c) }
func (CAIP25) family()          {}

// Session covers session lifecycle failures.
type Session int

const (
	UserDisconnected Session = iota + 1
	SessionSettlementFailed
	NoSessionForTopic
	SessionRequestExpired
)

var sessionReasons = map[Session]Reason{
	UserDisconnected:        {6000, "User disconnected."},
	SessionSettlementFailed: {7000, "Session settlement failed."},
	NoSessionForTopic:       {7001, "No matching session for topic."},
	SessionRequestExpired:   {8000, "Session request expired."},
}

func (s Session) Reason() Reason { return lookup(sessionReasons, s) }
func (Session) family()          {}

// Method covers methods the receiver does not implement.
type Method int

const (
	MethodUnsupported Method = iota + 1
)

var methodReasons = map[Method]Reason{
	MethodUnsupported: {10001, "Unsupported wc_ method."},
}

func (m Method) Reason() Reason { return lookup(methodReasons, m) }
func (Method) family()          {}

func lookup[K comparable](table map[K]Reason, k K) Reason {
	r, ok := table[k]
	if !ok {
		panic(fmt.Sprintf("reason: undefined %T(%v)", k, k))
	}
	return r
}

// Known reports whether code belongs to any family.
func Known(code int) bool {
	for _, r := range All() {
		if r.Code == code {
			return true
		}
	}
	return false
}

// All lists every reason of every family.
func All() []Reason {
	var out []Reason
	for _, r := range invalidReasons {
		out = append(out, r)
	}
	for _, r := range unauthorizedReasons {
		out = append(out, r)
	}
	for _, r := range caip25Reasons {
		out = append(out, r)
	}
	for _, r := range sessionReasons {
		out = append(out, r)
	}
	for _, r := range methodReasons {
		out = append(out, r)
	}
	return out
}
