// Package login provides the credential service consumed by the
// attempt-login tool.
//
// The service is an environment collaborator: tools receive it through the
// tool delegate and never own it. Lookups are asynchronous and single
// flight; a second request while one is pending fails with a busy error
// rather than queueing.
package login

import (
	"errors"
	"strings"
	"sync"

	"github.com/fatalapps/pageactor/pkg/actor/loop"
)

// Credential is one stored username/password pair for an origin.
type Credential struct {
	Origin   string `yaml:"origin"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ErrBusy is returned when a lookup is requested while another is pending.
var ErrBusy = errors.New("login: credential lookup already in progress")

// CredentialService resolves stored credentials for an origin. The callback
// is invoked exactly once on a later loop turn.
type CredentialService interface {
	ListCredentials(origin string, cb func([]Credential, error))
}

// StaticService is a CredentialService backed by a fixed credential list,
// typically loaded from configuration.
type StaticService struct {
	loop *loop.Loop

	mu          sync.Mutex
	credentials []Credential
	pending     bool
}

// NewStaticService creates a service over the given credentials.
func NewStaticService(l *loop.Loop, credentials []Credential) *StaticService {
	return &StaticService{loop: l, credentials: credentials}
}

// ListCredentials resolves credentials whose origin matches, delivering the
// result on the next loop turn. Origin matching is case-insensitive and
// ignores a scheme prefix on the stored origin.
func (s *StaticService) ListCredentials(origin string, cb func([]Credential, error)) {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		s.loop.Post(func() { cb(nil, ErrBusy) })
		return
	}
	s.pending = true
	var matches []Credential
	for _, c := range s.credentials {
		if originsEqual(c.Origin, origin) {
			matches = append(matches, c)
		}
	}
	s.mu.Unlock()

	s.loop.Post(func() {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
		cb(matches, nil)
	})
}

func originsEqual(a, b string) bool {
	return strings.EqualFold(stripScheme(a), stripScheme(b))
}

func stripScheme(origin string) string {
	if i := strings.Index(origin, "://"); i >= 0 {
		return origin[i+3:]
	}
	return origin
}
