package models

import "strings"

// EvidenceKind classifies an opaque evidence reference. The core stores and
// checks references only; bytes live with the evidence store collaborator.
type EvidenceKind string

const (
	EvidenceKindSelfie    EvidenceKind = "selfie"
	EvidenceKindDocument  EvidenceKind = "document"
	EvidenceKindPhoneToken EvidenceKind = "phone_token"
)

// Evidence is the bundle of opaque references attached to a claim.
//
// Two alternative verification paths satisfy the evidence requirement:
// selfie + ID document together, or a confirmed phone verification token.
// Presenting both paths is accepted, never rejected as "too much".
type Evidence struct {
	SelfieRef   string `json:"selfie_ref,omitempty"`
	DocumentRef string `json:"document_ref,omitempty"`
	PhoneToken  string `json:"phone_token,omitempty"`
}

// Normalize trims whitespace from all references.
func (e Evidence) Normalize() Evidence {
	return Evidence{
		SelfieRef:   strings.TrimSpace(e.SelfieRef),
		DocumentRef: strings.TrimSpace(e.DocumentRef),
		PhoneToken:  strings.TrimSpace(e.PhoneToken),
	}
}

// IsEmpty reports whether no reference is present at all.
func (e Evidence) IsEmpty() bool {
	return e.SelfieRef == "" && e.DocumentRef == "" && e.PhoneToken == ""
}

// HasIdentityPath reports whether at least one complete verification path is
// present.
func (e Evidence) HasIdentityPath() bool {
	if e.SelfieRef != "" && e.DocumentRef != "" {
		return true
	}
	return e.PhoneToken != ""
}

// Refs returns every present reference with its kind, for existence checks
// against the evidence store.
func (e Evidence) Refs() map[EvidenceKind]string {
	refs := make(map[EvidenceKind]string, 3)
	if e.SelfieRef != "" {
		refs[EvidenceKindSelfie] = e.SelfieRef
	}
	if e.DocumentRef != "" {
		refs[EvidenceKindDocument] = e.DocumentRef
	}
	if e.PhoneToken != "" {
		refs[EvidenceKindPhoneToken] = e.PhoneToken
	}
	return refs
}
