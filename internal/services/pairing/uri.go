package pairing

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"walletlink/internal/domain"
)

const uriVersion = "2"

var (
	// ErrInvalidURI is returned by ParseURI for anything that is not a
	// version 2 pairing URI.
	ErrInvalidURI = errors.New("invalid pairing uri")
)

// URI is the decoded form of
// wc:<topic>@2?relay-protocol=irn&symKey=<hex>&expiryTimestamp=<unix>&methods=<csv>
type URI struct {
	Topic         domain.Topic
	SymKey        domain.SymmetricKey
	RelayProtocol string
	Expiry        time.Time
	Methods       []string
}

// String renders u.
func (u URI) String() string {
	q := url.Values{}
	q.Set("relay-protocol", u.RelayProtocol)
	q.Set("symKey", u.SymKey.Hex())
	if !u.Expiry.IsZero() {
		q.Set("expiryTimestamp", strconv.FormatInt(u.Expiry.Unix(), 10))
	}
	if len(u.Methods) > 0 {
		q.Set("methods", strings.Join(u.Methods, ","))
	}
	return fmt.Sprintf("wc:%s@%s?%s", u.Topic, uriVersion, q.Encode())
}

// ParseURI decodes a pairing URI.
func ParseURI(s string) (URI, error) {
	rest, ok := strings.CutPrefix(s, "wc:")
	if !ok {
		return URI{}, fmt.Errorf("%w: missing wc: scheme", ErrInvalidURI)
	}
	head, query, _ := strings.Cut(rest, "?")
	topic, version, ok := strings.Cut(head, "@")
	if !ok || version != uriVersion {
		return URI{}, fmt.Errorf("%w: unsupported version %q", ErrInvalidURI, version)
	}
	if len(topic) != 64 {
		return URI{}, fmt.Errorf("%w: bad topic", ErrInvalidURI)
	}
	q, err := url.ParseQuery(query)
	if err != nil {
		return URI{}, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}

	u := URI{Topic: domain.Topic(topic), RelayProtocol: q.Get("relay-protocol")}
	if u.RelayProtocol == "" {
		return URI{}, fmt.Errorf("%w: missing relay-protocol", ErrInvalidURI)
	}
	if u.SymKey, err = domain.ParseSymmetricKey(q.Get("symKey")); err != nil {
		return URI{}, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if exp := q.Get("expiryTimestamp"); exp != "" {
		sec, err := strconv.ParseInt(exp, 10, 64)
		if err != nil {
			return URI{}, fmt.Errorf("%w: bad expiryTimestamp", ErrInvalidURI)
		}
		u.Expiry = time.Unix(sec, 0)
	}
	if m := q.Get("methods"); m != "" {
		u.Methods = strings.Split(m, ",")
	}
	return u, nil
}
