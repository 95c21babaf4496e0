// internal/services/credential_service.go
package services

import (
	"strings"
	"sync"
)

// CredentialSource says where the effective credential came from
type CredentialSource string

const (
	CredentialNone    CredentialSource = "none"
	CredentialAmbient CredentialSource = "ambient"
	CredentialUser    CredentialSource = "user"
)

// CredentialStatus is safe to render; it never carries the key itself
type CredentialStatus struct {
	Configured bool             `json:"configured"`
	Ambient    bool             `json:"ambient"`
	Source     CredentialSource `json:"source"`
}

// CredentialService resolves the key used for generation. An ambient key
// from the environment always wins over one entered by the user.
type CredentialService struct {
	mu      sync.RWMutex
	ambient string
	user    string
	sink    StateSink
}

func NewCredentialService(ambient, stored string, sink StateSink) *CredentialService {
	return &CredentialService{
		ambient: strings.TrimSpace(ambient),
		user:    strings.TrimSpace(stored),
		sink:    sink,
	}
}

// Resolve returns the effective credential, or "" when none is available
func (cs *CredentialService) Resolve() string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.ambient != "" {
		return cs.ambient
	}
	return cs.user
}

func (cs *CredentialService) HasCredential() bool {
	return cs.Resolve() != ""
}

func (cs *CredentialService) Status() CredentialStatus {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	switch {
	case cs.ambient != "":
		return CredentialStatus{Configured: true, Ambient: true, Source: CredentialAmbient}
	case cs.user != "":
		return CredentialStatus{Configured: true, Source: CredentialUser}
	default:
		return CredentialStatus{Source: CredentialNone}
	}
}

// SetUserCredential stores the user's key; an empty value removes it
func (cs *CredentialService) SetUserCredential(value string) {
	value = strings.TrimSpace(value)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.user == value {
		return
	}
	cs.user = value
	if cs.sink == nil {
		return
	}
	if value == "" {
		cs.sink.RemoveCredential()
	} else {
		cs.sink.SaveCredential(value)
	}
}
