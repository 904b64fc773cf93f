package namespace

import (
	"regexp"
	"strings"
)

var (
	namespaceRE = regexp.MustCompile(`^[-a-z0-9]{3,8}$`)
	chainRE     = regexp.MustCompile(`^[-a-z0-9]{3,8}:[-_a-zA-Z0-9]{1,32}$`)
	accountRE   = regexp.MustCompile(`^[-a-z0-9]{3,8}:[-_a-zA-Z0-9]{1,32}:[-.%a-zA-Z0-9]{1,128}$`)
)

// IsNamespace reports whether s is a bare CAIP-2 namespace such as "eip155".
func IsNamespace(s string) bool { return namespaceRE.MatchString(s) }

// IsChainID reports whether s is a CAIP-2 chain id such as "eip155:1".
func IsChainID(s string) bool { return chainRE.MatchString(s) }

// IsAccount reports whether s is a CAIP-10 account id.
func IsAccount(s string) bool { return accountRE.MatchString(s) }

// ChainOf returns the chain id of a CAIP-10 account.
func ChainOf(account string) string {
	i := strings.LastIndexByte(account, ':')
	if i < 0 {
		return ""
	}
	return account[:i]
}

// NamespaceOf returns the namespace part of a chain id or account.
func NamespaceOf(s string) string {
	ns, _, _ := strings.Cut(s, ":")
	return ns
}

func validKey(key string) bool { return IsNamespace(key) || IsChainID(key) }
