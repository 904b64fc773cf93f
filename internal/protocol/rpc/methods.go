package rpc

import "time"

// Method names.
const (
	MethodPairingDelete       = "wc_pairingDelete"
	MethodPairingPing         = "wc_pairingPing"
	MethodSessionPropose      = "wc_sessionPropose"
	MethodSessionSettle       = "wc_sessionSettle"
	MethodSessionUpdate       = "wc_sessionUpdate"
	MethodSessionExtend       = "wc_sessionExtend"
	MethodSessionRequest      = "wc_sessionRequest"
	MethodSessionEvent        = "wc_sessionEvent"
	MethodSessionDelete       = "wc_sessionDelete"
	MethodSessionPing         = "wc_sessionPing"
	MethodSessionAuthenticate = "wc_sessionAuthenticate"
)

// Relay tags.
const (
	TagPairingDelete         = 1000
	TagPairingDeleteResponse = 1001
	TagPairingPing           = 1002
	TagPairingPingResponse   = 1003

	TagSessionPropose                = 1100
	TagSessionProposeApprove         = 1101
	TagSessionSettle                 = 1102
	TagSessionSettleResponse         = 1103
	TagSessionUpdate                 = 1104
	TagSessionUpdateResponse         = 1105
	TagSessionExtend                 = 1106
	TagSessionExtendResponse         = 1107
	TagSessionRequest                = 1108
	TagSessionRequestResponse        = 1109
	TagSessionEvent                  = 1110
	TagSessionEventResponse          = 1111
	TagSessionDelete                 = 1112
	TagSessionDeleteResponse         = 1113
	TagSessionPing                   = 1114
	TagSessionPingResponse           = 1115
	TagSessionAuthenticate           = 1116
	TagSessionAuthenticateApprove    = 1117
	TagSessionAuthenticateReject     = 1118
	TagSessionAuthenticateAutoReject = 1119
	TagSessionProposeReject          = 1120
	TagSessionProposeAutoReject      = 1121
)

const (
	ttlThirtySeconds = 30 * time.Second
	ttlFiveMinutes   = 5 * time.Minute
	ttlOneHour       = time.Hour
	ttlOneDay        = 24 * time.Hour
)

// Route is how one message of a method is published on the relay.
type Route struct {
	Tag    int
	TTL    time.Duration
	Prompt bool
}

// Method groups the request route of a protocol method with its response
// routes. Methods without a distinct rejection path reuse Approve.
type Method struct {
	Name       string
	Request    Route
	Approve    Route
	Reject     Route
	AutoReject Route
}

func simple(name string, req, resp int, ttl time.Duration, prompt bool) Method {
	r := Route{Tag: resp, TTL: ttl}
	return Method{
		Name:       name,
		Request:    Route{Tag: req, TTL: ttl, Prompt: prompt},
		Approve:    r,
		Reject:     r,
		AutoReject: r,
	}
}

var registry = map[string]Method{
	MethodPairingDelete: simple(MethodPairingDelete, TagPairingDelete, TagPairingDeleteResponse, ttlOneDay, false),
	MethodPairingPing:   simple(MethodPairingPing, TagPairingPing, TagPairingPingResponse, ttlThirtySeconds, false),
	MethodSessionPropose: {
		Name:       MethodSessionPropose,
		Request:    Route{Tag: TagSessionPropose, TTL: ttlOneHour, Prompt: true},
		Approve:    Route{Tag: TagSessionProposeApprove, TTL: ttlOneHour},
		Reject:     Route{Tag: TagSessionProposeReject, TTL: ttlOneHour},
		AutoReject: Route{Tag: TagSessionProposeAutoReject, TTL: ttlOneHour},
	},
	MethodSessionSettle:  simple(MethodSessionSettle, TagSessionSettle, TagSessionSettleResponse, ttlOneHour, false),
	MethodSessionUpdate:  simple(MethodSessionUpdate, TagSessionUpdate, TagSessionUpdateResponse, ttlOneDay, false),
	MethodSessionExtend:  simple(MethodSessionExtend, TagSessionExtend, TagSessionExtendResponse, ttlOneDay, false),
	MethodSessionRequest: simple(MethodSessionRequest, TagSessionRequest, TagSessionRequestResponse, ttlFiveMinutes, true),
	MethodSessionEvent:   simple(MethodSessionEvent, TagSessionEvent, TagSessionEventResponse, ttlFiveMinutes, true),
	MethodSessionDelete:  simple(MethodSessionDelete, TagSessionDelete, TagSessionDeleteResponse, ttlOneDay, false),
	MethodSessionPing:    simple(MethodSessionPing, TagSessionPing, TagSessionPingResponse, ttlThirtySeconds, false),
	MethodSessionAuthenticate: {
		Name:       MethodSessionAuthenticate,
		Request:    Route{Tag: TagSessionAuthenticate, TTL: ttlOneHour, Prompt: true},
		Approve:    Route{Tag: TagSessionAuthenticateApprove, TTL: ttlOneHour},
		Reject:     Route{Tag: TagSessionAuthenticateReject, TTL: ttlOneHour},
		AutoReject: Route{Tag: TagSessionAuthenticateAutoReject, TTL: ttlOneHour},
	},
}

// Lookup returns the registered method with the given name.
func Lookup(name string) (Method, bool) {
	m, ok := registry[name]
	return m, ok
}

// MustLookup is Lookup for names declared in this package.
func MustLookup(name string) Method {
	m, ok := registry[name]
	if !ok {
		panic("rpc: unregistered method " + name)
	}
	return m
}

// ByTag finds the method owning tag and the route that carries it.
func ByTag(tag int) (Method, Route, bool) {
	for _, m := range registry {
		for _, r := range []Route{m.Request, m.Approve, m.Reject, m.AutoReject} {
			if r.Tag == tag {
				return m, r, true
			}
		}
	}
	return Method{}, Route{}, false
}

// Methods returns every registered method name.
func Methods() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}
